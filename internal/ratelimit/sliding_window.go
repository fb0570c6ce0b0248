package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"go.uber.org/zap"
)

const (
	minuteWindow         = time.Minute
	hourWindow           = time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// SlidingWindow is an in-memory inbound rate limiter counting request
// timestamps per (endpoint, source address) pair over trailing one-minute and
// one-hour windows.
type SlidingWindow struct {
	mu        sync.Mutex
	endpoints map[string]map[string][]time.Time

	logger        *zap.Logger
	sweepInterval time.Duration
	now           func() time.Time
}

func NewSlidingWindow(logger *zap.Logger) *SlidingWindow {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SlidingWindow{
		endpoints:     make(map[string]map[string][]time.Time),
		logger:        logger,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
}

// Check records a request for the (endpoint, address) pair and reports
// whether it is allowed under the endpoint's limits. A disallowed request is
// not recorded.
func (w *SlidingWindow) Check(endpointID, address string, limits domain.RateLimit) bool {
	if !limits.Enabled {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	hourCutoff := now.Add(-hourWindow)
	minuteCutoff := now.Add(-minuteWindow)

	addresses, ok := w.endpoints[endpointID]
	if !ok {
		addresses = make(map[string][]time.Time)
		w.endpoints[endpointID] = addresses
	}

	timestamps := pruneBefore(addresses[address], hourCutoff)

	inLastMinute := 0
	for _, ts := range timestamps {
		if ts.After(minuteCutoff) {
			inLastMinute++
		}
	}
	if inLastMinute >= limits.RequestsPerMinute {
		addresses[address] = timestamps
		return false
	}
	if len(timestamps) >= limits.RequestsPerHour {
		addresses[address] = timestamps
		return false
	}

	timestamps = append(timestamps, now)
	if len(timestamps) > limits.RequestsPerHour {
		timestamps = timestamps[len(timestamps)-limits.RequestsPerHour:]
	}
	addresses[address] = timestamps

	return true
}

// Sweep drops addresses with no activity in the last hour and endpoints with
// no remaining addresses, bounding memory.
func (w *SlidingWindow) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	hourCutoff := w.now().Add(-hourWindow)
	for endpointID, addresses := range w.endpoints {
		for address, timestamps := range addresses {
			remaining := pruneBefore(timestamps, hourCutoff)
			if len(remaining) == 0 {
				delete(addresses, address)
				continue
			}
			addresses[address] = remaining
		}
		if len(addresses) == 0 {
			delete(w.endpoints, endpointID)
		}
	}
}

// Start runs the periodic sweep until context cancellation.
func (w *SlidingWindow) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep()
			w.logger.Debug("rate limiter sweep completed")
		}
	}
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
