package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/repository"
)

const topListSize = 10

// EndpointStats summarizes the ingestion history of one endpoint over a time
// range. Read-side only.
type EndpointStats struct {
	EndpointID        string
	From              time.Time
	To                time.Time
	TotalReceived     int
	TotalProcessed    int
	TotalDropped      int
	TotalDeadLettered int
	TotalRetried      int
	TotalVerified     int
	SuccessRate       float64
	ErrorRate         float64
	AvgLatencyMillis  float64
	TopEvents         []FrequencyCount
	TopErrors         []FrequencyCount
	HourlyHistogram   [24]int
}

type FrequencyCount struct {
	Value string
	Count int
}

type StatsService struct {
	webhooks repository.WebhookRepository
	now      func() time.Time
}

func NewStatsService(webhooks repository.WebhookRepository) (*StatsService, error) {
	if webhooks == nil {
		return nil, fmt.Errorf("webhook repository is required")
	}
	return &StatsService{
		webhooks: webhooks,
		now:      time.Now,
	}, nil
}

// GetEndpointStats computes summary statistics over the stored webhooks of an
// endpoint between from and to. A zero `to` means now.
func (s *StatsService) GetEndpointStats(ctx context.Context, endpointID string, from, to time.Time) (*EndpointStats, error) {
	if strings.TrimSpace(endpointID) == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", domain.ErrValidation)
	}

	webhooks, err := s.webhooks.ListByEndpointInRange(ctx, strings.TrimSpace(endpointID), from, to)
	if err != nil {
		return nil, err
	}

	stats := &EndpointStats{
		EndpointID: strings.TrimSpace(endpointID),
		From:       from,
		To:         to,
	}

	eventCounts := make(map[string]int)
	errorCounts := make(map[string]int)
	var latencySum time.Duration
	latencySamples := 0

	for i := range webhooks {
		w := &webhooks[i]
		stats.TotalReceived++
		stats.HourlyHistogram[w.CreatedAt.UTC().Hour()]++

		if w.Event != "" {
			eventCounts[w.Event]++
		}
		if w.LastError != nil && *w.LastError != "" {
			errorCounts[*w.LastError]++
		}
		if w.Verified {
			stats.TotalVerified++
		}
		if w.RetryCount > 0 {
			stats.TotalRetried++
		}

		switch w.Status {
		case domain.WebhookStatusProcessed:
			stats.TotalProcessed++
		case domain.WebhookStatusDropped:
			stats.TotalDropped++
		case domain.WebhookStatusDeadLettered:
			stats.TotalDeadLettered++
		}

		if w.ProcessedAt != nil {
			latencySum += w.ProcessedAt.Sub(w.CreatedAt)
			latencySamples++
		}
	}

	if stats.TotalReceived > 0 {
		handled := stats.TotalProcessed + stats.TotalDropped
		stats.SuccessRate = float64(handled) / float64(stats.TotalReceived)
		stats.ErrorRate = float64(stats.TotalDeadLettered) / float64(stats.TotalReceived)
	}
	if latencySamples > 0 {
		stats.AvgLatencyMillis = float64(latencySum.Milliseconds()) / float64(latencySamples)
	}

	stats.TopEvents = topN(eventCounts, topListSize)
	stats.TopErrors = topN(errorCounts, topListSize)

	return stats, nil
}

// topN returns the n highest counts, ties broken alphabetically so results
// are deterministic.
func topN(counts map[string]int, n int) []FrequencyCount {
	out := make([]FrequencyCount, 0, len(counts))
	for value, count := range counts {
		out = append(out, FrequencyCount{Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
