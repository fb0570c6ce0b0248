package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
)

func TestStatsAggregation(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	processedAt := base.Add(200 * time.Millisecond)
	lastError := "transform failed: boom"

	webhooks := &fakeWebhookRepo{
		listByEndpointInRangeFn: func(ctx context.Context, endpointID string, from, to time.Time) ([]domain.IncomingWebhook, error) {
			return []domain.IncomingWebhook{
				{
					Event:       "order.created",
					Status:      domain.WebhookStatusProcessed,
					Verified:    true,
					CreatedAt:   base,
					ProcessedAt: &processedAt,
				},
				{
					Event:     "order.created",
					Status:    domain.WebhookStatusDropped,
					CreatedAt: base.Add(time.Hour),
				},
				{
					Event:      "order.deleted",
					Status:     domain.WebhookStatusDeadLettered,
					RetryCount: 3,
					LastError:  &lastError,
					CreatedAt:  base.Add(2 * time.Hour),
				},
			}, nil
		},
	}

	svc, err := NewStatsService(webhooks)
	if err != nil {
		t.Fatalf("NewStatsService() error = %v", err)
	}

	stats, err := svc.GetEndpointStats(context.Background(), "ep-1", base.Add(-time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("GetEndpointStats() error = %v", err)
	}

	if stats.TotalReceived != 3 {
		t.Fatalf("totalReceived = %d, want 3", stats.TotalReceived)
	}
	if stats.TotalProcessed != 1 || stats.TotalDropped != 1 || stats.TotalDeadLettered != 1 {
		t.Fatalf("processed/dropped/deadLettered = %d/%d/%d, want 1/1/1",
			stats.TotalProcessed, stats.TotalDropped, stats.TotalDeadLettered)
	}
	if stats.TotalVerified != 1 {
		t.Fatalf("totalVerified = %d, want 1", stats.TotalVerified)
	}
	if stats.TotalRetried != 1 {
		t.Fatalf("totalRetried = %d, want 1", stats.TotalRetried)
	}

	// Dropped counts as successfully handled.
	if want := 2.0 / 3.0; stats.SuccessRate != want {
		t.Fatalf("successRate = %v, want %v", stats.SuccessRate, want)
	}
	if want := 1.0 / 3.0; stats.ErrorRate != want {
		t.Fatalf("errorRate = %v, want %v", stats.ErrorRate, want)
	}
	if stats.AvgLatencyMillis != 200 {
		t.Fatalf("avgLatencyMillis = %v, want 200", stats.AvgLatencyMillis)
	}

	if len(stats.TopEvents) != 2 || stats.TopEvents[0].Value != "order.created" || stats.TopEvents[0].Count != 2 {
		t.Fatalf("topEvents = %v, want order.created first with 2", stats.TopEvents)
	}
	if len(stats.TopErrors) != 1 || stats.TopErrors[0].Value != lastError {
		t.Fatalf("topErrors = %v, want %q", stats.TopErrors, lastError)
	}

	if stats.HourlyHistogram[9] != 1 || stats.HourlyHistogram[10] != 1 || stats.HourlyHistogram[11] != 1 {
		t.Fatalf("hourly histogram = %v, want buckets 9,10,11 set", stats.HourlyHistogram)
	}
}

func TestStatsRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	svc, err := NewStatsService(&fakeWebhookRepo{})
	if err != nil {
		t.Fatalf("NewStatsService() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = svc.GetEndpointStats(context.Background(), "ep-1", now, now)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetEndpointStats() error = %v, want ErrValidation", err)
	}

	_, err = svc.GetEndpointStats(context.Background(), " ", now.Add(-time.Hour), now)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetEndpointStats() blank id error = %v, want ErrValidation", err)
	}
}

func TestStatsTopNIsDeterministic(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"b": 2, "a": 2, "c": 5}
	top := topN(counts, 2)
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].Value != "c" || top[1].Value != "a" {
		t.Fatalf("top = %v, want c then a (ties alphabetical)", top)
	}
}
