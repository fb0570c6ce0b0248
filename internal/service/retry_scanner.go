package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/queue"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRetryScanInterval = 5 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner periodically re-enqueues due webhook and delivery retries.
type RetryScanner struct {
	webhooks   repository.WebhookRepository
	deliveries repository.DeliveryRepository
	publisher  queue.Publisher
	logger     *zap.Logger
	interval   time.Duration
	limit      int
}

func NewRetryScanner(
	webhooks repository.WebhookRepository,
	deliveries repository.DeliveryRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if webhooks == nil {
		return nil, fmt.Errorf("webhook repository is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		webhooks:   webhooks,
		deliveries: deliveries,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		limit:      limit,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due retries do not wait for the first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	if err := s.scanWebhooks(ctx); err != nil {
		return err
	}
	return s.scanDeliveries(ctx)
}

func (s *RetryScanner) scanWebhooks(ctx context.Context) error {
	due, err := s.webhooks.GetDueForRetry(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due webhook retries: %w", err)
	}

	for i := range due {
		webhook := due[i]
		msg := queue.WebhookMessage{
			WebhookID:  webhook.ID,
			EndpointID: webhook.EndpointID,
			Event:      webhook.Event,
		}

		if err := s.publisher.Publish(ctx, queue.IngestQueue, msg); err != nil {
			s.logger.Error("failed to enqueue webhook retry",
				zap.String("webhookId", webhook.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.webhooks.ClearNextRetryAt(ctx, webhook.ID); err != nil {
			s.logger.Error("failed to clear webhook retry timestamp after enqueue",
				zap.String("webhookId", webhook.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}

func (s *RetryScanner) scanDeliveries(ctx context.Context) error {
	due, err := s.deliveries.GetDueForRetry(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due delivery retries: %w", err)
	}

	for i := range due {
		delivery := due[i]
		msg := queue.DeliveryMessage{DeliveryID: delivery.ID}

		if err := s.publisher.Publish(ctx, queue.DeliverQueue, msg); err != nil {
			s.logger.Error("failed to enqueue delivery retry",
				zap.String("deliveryId", delivery.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.deliveries.ClearNextAttemptAt(ctx, delivery.ID); err != nil {
			s.logger.Error("failed to clear delivery retry timestamp after enqueue",
				zap.String("deliveryId", delivery.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}
