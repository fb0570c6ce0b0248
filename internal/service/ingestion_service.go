package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/filter"
	"github.com/kursadbilgin/hookrelay/internal/observability"
	"github.com/kursadbilgin/hookrelay/internal/queue"
	"github.com/kursadbilgin/hookrelay/internal/ratelimit"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"github.com/kursadbilgin/hookrelay/internal/signature"
	"github.com/kursadbilgin/hookrelay/internal/transform"
	"go.uber.org/zap"
)

const (
	rejectReasonInactive        = "endpoint_inactive"
	rejectReasonRateLimited     = "rate_limited"
	rejectReasonEventNotAllowed = "event_not_allowed"
	rejectReasonBadSignature    = "invalid_signature"
)

// ReceiveRequest carries one inbound webhook exactly as it arrived. Payload
// keeps the raw request body so signature verification sees the same bytes
// the sender signed.
type ReceiveRequest struct {
	Event         string
	Payload       []byte
	Headers       map[string]string
	SourceAddress string
	UserAgent     string
	Signature     string
}

// Fanout distributes a processed event to matching subscriptions.
type Fanout interface {
	Fanout(ctx context.Context, webhookID string, event string, payload map[string]any) (int, error)
}

type IngestionService struct {
	endpoints repository.EndpointRepository
	webhooks  repository.WebhookRepository
	publisher queue.Publisher
	limiter   *ratelimit.SlidingWindow
	fanout    Fanout
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewIngestionService(
	endpoints repository.EndpointRepository,
	webhooks repository.WebhookRepository,
	publisher queue.Publisher,
	limiter *ratelimit.SlidingWindow,
	fanout Fanout,
	logger *zap.Logger,
) (*IngestionService, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if webhooks == nil {
		return nil, fmt.Errorf("webhook repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IngestionService{
		endpoints: endpoints,
		webhooks:  webhooks,
		publisher: publisher,
		limiter:   limiter,
		fanout:    fanout,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *IngestionService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Receive validates an inbound webhook against the endpoint configuration,
// persists it, and enqueues it for processing. The rejection checks run in a
// fixed order: endpoint lookup, active flag, rate limit, allowed events,
// signature.
func (s *IngestionService) Receive(ctx context.Context, endpointID string, req ReceiveRequest) (*domain.IncomingWebhook, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(endpointID) == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}

	endpoint, err := s.endpoints.GetByID(ctx, endpointID)
	if err != nil {
		return nil, err
	}

	if !endpoint.Active {
		s.countRejected(endpoint.ID, rejectReasonInactive)
		return nil, fmt.Errorf("%w: endpoint is not active", domain.ErrRejected)
	}

	if endpoint.RateLimit.Enabled {
		if !s.limiter.Check(endpoint.ID, req.SourceAddress, endpoint.RateLimit) {
			s.countRejected(endpoint.ID, rejectReasonRateLimited)
			return nil, fmt.Errorf("%w: Rate limit exceeded", domain.ErrRejected)
		}
	}

	if !endpoint.AllowsEvent(req.Event) {
		s.countRejected(endpoint.ID, rejectReasonEventNotAllowed)
		return nil, fmt.Errorf("%w: event %q is not allowed for this endpoint", domain.ErrRejected, req.Event)
	}

	verified := false
	if endpoint.HasSecret() {
		if !signature.Verify(req.Payload, *endpoint.Secret, req.Signature) {
			s.countRejected(endpoint.ID, rejectReasonBadSignature)
			return nil, fmt.Errorf("%w: invalid signature", domain.ErrRejected)
		}
		verified = true
	}

	webhook := &domain.IncomingWebhook{
		ID:            uuid.NewString(),
		EndpointID:    endpoint.ID,
		Event:         strings.TrimSpace(req.Event),
		Payload:       json.RawMessage(req.Payload),
		Headers:       req.Headers,
		SourceAddress: req.SourceAddress,
		UserAgent:     req.UserAgent,
		Verified:      verified,
		Status:        domain.WebhookStatusReceived,
	}
	if sig := strings.TrimSpace(req.Signature); sig != "" {
		webhook.Signature = &sig
	}

	if err := webhook.Validate(); err != nil {
		return nil, err
	}

	if err := s.webhooks.Create(ctx, webhook); err != nil {
		return nil, err
	}

	msg := queue.WebhookMessage{
		WebhookID:  webhook.ID,
		EndpointID: webhook.EndpointID,
		Event:      webhook.Event,
	}
	if err := s.publisher.Publish(ctx, queue.IngestQueue, msg); err != nil {
		// The webhook row survives; the retry scanner will not pick it up
		// without a schedule, so set one immediately.
		s.logger.Error("failed to enqueue webhook for processing",
			zap.String("webhookId", webhook.ID),
			zap.Error(err),
		)
		retryAt := s.now().UTC()
		if schedErr := s.webhooks.ScheduleRetry(ctx, webhook.ID, 0, retryAt, "enqueue failed: "+err.Error()); schedErr != nil {
			return nil, fmt.Errorf("failed to enqueue webhook: %w (failed to schedule retry: %v)", err, schedErr)
		}
	}

	if s.metrics != nil {
		s.metrics.IncWebhookReceived(endpoint.ID)
	}

	return webhook, nil
}

func (s *IngestionService) GetWebhook(ctx context.Context, id string) (*domain.IncomingWebhook, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: webhook id is required", domain.ErrValidation)
	}
	return s.webhooks.GetByID(ctx, strings.TrimSpace(id))
}

// Process runs the filter and transformation pipeline for a stored webhook
// and fans the result out to matching subscriptions. Called from the ingest
// queue worker, so returning nil acknowledges the message.
func (s *IngestionService) Process(ctx context.Context, webhookID string) error {
	webhook, err := s.webhooks.GetByID(ctx, webhookID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("webhook not found during processing, skipping",
				zap.String("webhookId", webhookID),
			)
			return nil
		}
		return fmt.Errorf("failed to load webhook: %w", err)
	}

	// Already handled by another worker or a previous retry.
	if webhook.Status.IsTerminal() {
		return nil
	}

	endpoint, err := s.endpoints.GetByID(ctx, webhook.EndpointID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.deadLetter(ctx, webhook, "endpoint no longer exists")
		}
		return fmt.Errorf("failed to load endpoint: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(webhook.Payload, &payload); err != nil {
		return s.deadLetter(ctx, webhook, "payload is not a JSON object: "+err.Error())
	}

	matched, err := filter.Evaluate(payload, endpoint.Filters)
	if err != nil {
		return s.retryOrDeadLetter(ctx, webhook, endpoint, "filter evaluation failed: "+err.Error())
	}
	if !matched {
		if err := s.webhooks.MarkProcessed(ctx, webhook.ID, domain.WebhookStatusDropped, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to mark webhook dropped: %w", err)
		}
		s.countProcessed(endpoint.ID, "dropped")
		return nil
	}

	transformed, err := transform.Apply(payload, endpoint.Transformations)
	if err != nil {
		return s.retryOrDeadLetter(ctx, webhook, endpoint, "transformation failed: "+err.Error())
	}

	if s.fanout != nil {
		count, err := s.fanout.Fanout(ctx, webhook.ID, webhook.Event, transformed)
		if err != nil && count == 0 {
			return s.retryOrDeadLetter(ctx, webhook, endpoint, "fanout failed: "+err.Error())
		}
		if err != nil {
			// Partial fanout: retrying the webhook would duplicate the
			// deliveries that did get created, so log and move on.
			s.logger.Warn("fanout completed with partial failure",
				zap.String("webhookId", webhook.ID),
				zap.Int("deliveries", count),
				zap.Error(err),
			)
		}
		s.logger.Info("webhook fanned out",
			zap.String("webhookId", webhook.ID),
			zap.String("event", webhook.Event),
			zap.Int("deliveries", count),
		)
	}

	if err := s.webhooks.MarkProcessed(ctx, webhook.ID, domain.WebhookStatusProcessed, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	s.countProcessed(endpoint.ID, "processed")

	return nil
}

// retryOrDeadLetter schedules a linear retry (retryDelay * retryCount) until
// the endpoint's attempt budget is spent, then dead-letters the webhook.
func (s *IngestionService) retryOrDeadLetter(ctx context.Context, webhook *domain.IncomingWebhook, endpoint *domain.Endpoint, reason string) error {
	retryCount := webhook.RetryCount + 1
	if retryCount >= endpoint.RetryAttempts {
		return s.deadLetterWithCount(ctx, webhook, retryCount, reason)
	}

	delay := endpoint.RetryDelay * time.Duration(retryCount)
	nextRetryAt := s.now().UTC().Add(delay)
	if err := s.webhooks.ScheduleRetry(ctx, webhook.ID, retryCount, nextRetryAt, reason); err != nil {
		return fmt.Errorf("failed to schedule webhook retry: %w", err)
	}

	s.logger.Warn("webhook processing failed, retry scheduled",
		zap.String("webhookId", webhook.ID),
		zap.Int("retryCount", retryCount),
		zap.Duration("delay", delay),
		zap.String("reason", reason),
	)
	if s.metrics != nil {
		s.metrics.IncRetryScheduled("webhook")
	}
	return nil
}

func (s *IngestionService) deadLetter(ctx context.Context, webhook *domain.IncomingWebhook, reason string) error {
	return s.deadLetterWithCount(ctx, webhook, webhook.RetryCount, reason)
}

func (s *IngestionService) deadLetterWithCount(ctx context.Context, webhook *domain.IncomingWebhook, retryCount int, reason string) error {
	if err := s.webhooks.MarkDeadLettered(ctx, webhook.ID, retryCount, reason); err != nil {
		return fmt.Errorf("failed to dead-letter webhook: %w", err)
	}
	s.logger.Error("webhook dead-lettered",
		zap.String("webhookId", webhook.ID),
		zap.String("reason", reason),
	)
	s.countProcessed(webhook.EndpointID, "dead_lettered")
	return nil
}

func (s *IngestionService) countRejected(endpointID string, reason string) {
	if s.metrics != nil {
		s.metrics.IncWebhookRejected(endpointID, reason)
	}
}

func (s *IngestionService) countProcessed(endpointID string, outcome string) {
	if s.metrics != nil {
		s.metrics.IncWebhookProcessed(endpointID, outcome)
	}
}
