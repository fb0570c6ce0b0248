package ratelimit

import (
	"testing"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"go.uber.org/zap"
)

func newTestWindow(t *testing.T) (*SlidingWindow, *time.Time) {
	t.Helper()

	current := time.Unix(1_700_000_000, 0)
	w := NewSlidingWindow(zap.NewNop())
	w.now = func() time.Time { return current }
	return w, &current
}

func TestCheckDisabledAlwaysAllows(t *testing.T) {
	t.Parallel()

	w, _ := newTestWindow(t)
	limits := domain.RateLimit{Enabled: false}

	for i := 0; i < 1000; i++ {
		if !w.Check("ep", "1.2.3.4", limits) {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestCheckMinuteLimit(t *testing.T) {
	t.Parallel()

	w, current := newTestWindow(t)
	limits := domain.RateLimit{Enabled: true, RequestsPerMinute: 5, RequestsPerHour: 100}

	allowed := 0
	rejected := 0
	for i := 0; i < 6; i++ {
		if w.Check("ep", "1.2.3.4", limits) {
			allowed++
		} else {
			rejected++
		}
	}

	if allowed != 5 || rejected != 1 {
		t.Fatalf("allowed = %d, rejected = %d, want 5 and 1", allowed, rejected)
	}

	// After the minute window slides past, a 6th request succeeds.
	*current = current.Add(61 * time.Second)
	if !w.Check("ep", "1.2.3.4", limits) {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestCheckHourLimit(t *testing.T) {
	t.Parallel()

	w, current := newTestWindow(t)
	limits := domain.RateLimit{Enabled: true, RequestsPerMinute: 10, RequestsPerHour: 20}

	allowed := 0
	for i := 0; i < 30; i++ {
		if w.Check("ep", "1.2.3.4", limits) {
			allowed++
		}
		// Spread requests so the minute limit never trips.
		*current = current.Add(10 * time.Second)
	}

	if allowed != 20 {
		t.Fatalf("allowed = %d, want 20", allowed)
	}

	*current = current.Add(time.Hour)
	if !w.Check("ep", "1.2.3.4", limits) {
		t.Fatal("request after the hour window should be allowed")
	}
}

func TestCheckIsolatesAddressesAndEndpoints(t *testing.T) {
	t.Parallel()

	w, _ := newTestWindow(t)
	limits := domain.RateLimit{Enabled: true, RequestsPerMinute: 1, RequestsPerHour: 10}

	if !w.Check("ep1", "1.1.1.1", limits) {
		t.Fatal("first request should pass")
	}
	if w.Check("ep1", "1.1.1.1", limits) {
		t.Fatal("second request from same pair should be rejected")
	}
	if !w.Check("ep1", "2.2.2.2", limits) {
		t.Fatal("other address should not be affected")
	}
	if !w.Check("ep2", "1.1.1.1", limits) {
		t.Fatal("other endpoint should not be affected")
	}
}

func TestSweepDropsStaleState(t *testing.T) {
	t.Parallel()

	w, current := newTestWindow(t)
	limits := domain.RateLimit{Enabled: true, RequestsPerMinute: 5, RequestsPerHour: 100}

	w.Check("ep1", "1.1.1.1", limits)
	w.Check("ep2", "2.2.2.2", limits)

	*current = current.Add(2 * time.Hour)
	w.Check("ep2", "2.2.2.2", limits)
	w.Sweep()

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.endpoints["ep1"]; ok {
		t.Fatal("stale endpoint should be swept")
	}
	if _, ok := w.endpoints["ep2"]; !ok {
		t.Fatal("active endpoint should survive the sweep")
	}
}
