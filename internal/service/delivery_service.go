package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hookrelay/internal/dispatcher"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/observability"
	"github.com/kursadbilgin/hookrelay/internal/queue"
	"github.com/kursadbilgin/hookrelay/internal/ratelimit"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"github.com/kursadbilgin/hookrelay/internal/signature"
	"go.uber.org/zap"
)

const baseDeliveryBackoff = time.Minute

// SendRequest describes one outbound delivery to create and enqueue.
type SendRequest struct {
	TargetURL      string
	Event          string
	Payload        json.RawMessage
	Headers        map[string]string
	Secret         string
	WebhookID      *string
	SubscriptionID *string
	MaxAttempts    int
}

type DeliveryService struct {
	deliveries repository.DeliveryRepository
	attempts   repository.AttemptRepository
	publisher  queue.Publisher
	dispatcher dispatcher.Dispatcher
	limiter    ratelimit.DeliveryLimiter
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewDeliveryService(
	deliveries repository.DeliveryRepository,
	attempts repository.AttemptRepository,
	publisher queue.Publisher,
	disp dispatcher.Dispatcher,
	limiter ratelimit.DeliveryLimiter,
	logger *zap.Logger,
) (*DeliveryService, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if disp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		deliveries: deliveries,
		attempts:   attempts,
		publisher:  publisher,
		dispatcher: disp,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *DeliveryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Send creates a pending delivery and enqueues it. The payload is signed with
// the request secret when one is set; the signature travels in the
// X-Signature header.
func (s *DeliveryService) Send(ctx context.Context, req SendRequest) (*domain.Delivery, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	headers := make(map[string]string, len(req.Headers)+2)
	for k, v := range req.Headers {
		headers[k] = v
	}
	if strings.TrimSpace(req.Event) != "" {
		headers["X-Webhook-Event"] = req.Event
	}
	if strings.TrimSpace(req.Secret) != "" {
		headers["X-Signature"] = signature.Sign(req.Payload, req.Secret)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	now := s.now().UTC()
	delivery := &domain.Delivery{
		ID:             uuid.NewString(),
		WebhookID:      req.WebhookID,
		SubscriptionID: req.SubscriptionID,
		TargetURL:      req.TargetURL,
		Event:          req.Event,
		Payload:        req.Payload,
		Headers:        headers,
		Status:         domain.DeliveryStatusPending,
		MaxAttempts:    maxAttempts,
		// A schedule at creation time keeps the delivery visible to the retry
		// scanner in case the publish below fails.
		NextAttemptAt: &now,
	}
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}

	// During fan-out the context carries the originating webhook id, so
	// enqueue failures stay traceable to the received event.
	logger := observability.WithContextLogger(s.logger, ctx)

	msg := queue.DeliveryMessage{DeliveryID: delivery.ID}
	if err := s.publisher.Publish(ctx, queue.DeliverQueue, msg); err != nil {
		logger.Error("failed to enqueue delivery",
			zap.String("deliveryId", delivery.ID),
			zap.Error(err),
		)
		return delivery, nil
	}

	if err := s.deliveries.ClearNextAttemptAt(ctx, delivery.ID); err != nil {
		logger.Warn("failed to clear delivery schedule after enqueue",
			zap.String("deliveryId", delivery.ID),
			zap.Error(err),
		)
	}
	delivery.NextAttemptAt = nil

	return delivery, nil
}

// Deliver executes one delivery attempt. Called from the delivery queue
// worker, so returning nil acknowledges the message.
func (s *DeliveryService) Deliver(ctx context.Context, deliveryID string) error {
	delivery, err := s.deliveries.LockForDelivering(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("delivery not found during lock, skipping",
				zap.String("deliveryId", deliveryID),
			)
			return nil
		}
		return fmt.Errorf("failed to lock delivery: %w", err)
	}

	// Nil means terminal state; ack and skip.
	if delivery == nil {
		return nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, targetHost(delivery.TargetURL)); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	attemptNumber := delivery.AttemptCount + 1
	resp, dispatchErr := s.dispatcher.Dispatch(ctx, dispatcher.Request{
		URL:     delivery.TargetURL,
		Body:    delivery.Payload,
		Headers: delivery.Headers,
	})

	if err := s.recordAttempt(ctx, delivery.ID, attemptNumber, resp, dispatchErr); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if dispatchErr == nil {
		if err := s.deliveries.MarkDelivered(ctx, delivery.ID, attemptNumber, resp.StatusCode, resp.Body, s.now().UTC()); err != nil {
			return fmt.Errorf("failed to mark delivery delivered: %w", err)
		}
		s.observeAttempt("delivered", resp.DurationMillis)
		if s.metrics != nil {
			s.metrics.IncDelivery("delivered")
		}
		return nil
	}

	statusCode, durationMillis := dispatchDetails(dispatchErr)
	s.observeAttempt("failed", durationMillis)

	// Every failed attempt retries until the attempt budget is spent, so a
	// FAILED delivery always carries exactly MaxAttempts attempts.
	if attemptNumber < delivery.MaxAttempts {
		nextAttemptAt := s.now().UTC().Add(deliveryBackoff(attemptNumber))
		if err := s.deliveries.ScheduleRetry(ctx, delivery.ID, attemptNumber, nextAttemptAt, statusCode, dispatchErr.Error()); err != nil {
			return fmt.Errorf("failed to schedule delivery retry: %w", err)
		}
		s.logger.Warn("delivery attempt failed, retry scheduled",
			zap.String("deliveryId", delivery.ID),
			zap.Int("attempt", attemptNumber),
			zap.Bool("transient", dispatcher.IsTransient(dispatchErr)),
			zap.Error(dispatchErr),
		)
		if s.metrics != nil {
			s.metrics.IncRetryScheduled("delivery")
		}
		return nil
	}

	if err := s.deliveries.MarkFailed(ctx, delivery.ID, attemptNumber, statusCode, dispatchErr.Error()); err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncDelivery("failed")
	}
	s.logger.Warn("delivery failed",
		zap.String("deliveryId", delivery.ID),
		zap.Int("attempts", attemptNumber),
		zap.Error(dispatchErr),
	)

	return nil
}

func (s *DeliveryService) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	return s.deliveries.GetByID(ctx, strings.TrimSpace(id))
}

func (s *DeliveryService) Cancel(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	return s.deliveries.Cancel(ctx, strings.TrimSpace(id))
}

func (s *DeliveryService) ListAttempts(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error) {
	if strings.TrimSpace(deliveryID) == "" {
		return nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	return s.attempts.GetByDeliveryID(ctx, strings.TrimSpace(deliveryID))
}

// deliveryBackoff doubles per attempt: 1m, 2m, 4m, ...
func deliveryBackoff(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	return baseDeliveryBackoff << (attemptNumber - 1)
}

func (s *DeliveryService) recordAttempt(
	ctx context.Context,
	deliveryID string,
	attemptNumber int,
	resp *dispatcher.Response,
	dispatchErr error,
) error {
	var statusCode *int
	var responseBody *string
	var attemptErr *string
	var durationMillis int64

	if resp != nil {
		if resp.StatusCode > 0 {
			value := resp.StatusCode
			statusCode = &value
		}
		if body := strings.TrimSpace(resp.Body); body != "" {
			value := resp.Body
			responseBody = &value
		}
		durationMillis = resp.DurationMillis
	}

	if dispatchErr != nil {
		value := dispatchErr.Error()
		attemptErr = &value

		var dispErr *dispatcher.DispatchError
		if errors.As(dispatchErr, &dispErr) {
			if dispErr.StatusCode > 0 && statusCode == nil {
				value := dispErr.StatusCode
				statusCode = &value
			}
			if body := strings.TrimSpace(dispErr.ResponseBody); body != "" && responseBody == nil {
				value := dispErr.ResponseBody
				responseBody = &value
			}
			if durationMillis == 0 {
				durationMillis = dispErr.DurationMillis
			}
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		DeliveryID:     deliveryID,
		AttemptNumber:  attemptNumber,
		StatusCode:     statusCode,
		ResponseBody:   responseBody,
		Error:          attemptErr,
		DurationMillis: durationMillis,
		CreatedAt:      s.now().UTC(),
	}

	return s.attempts.Create(ctx, attempt)
}

func (s *DeliveryService) observeAttempt(outcome string, durationMillis int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDeliveryAttemptDuration(outcome, time.Duration(durationMillis)*time.Millisecond)
}

func dispatchDetails(err error) (*int, int64) {
	var dispErr *dispatcher.DispatchError
	if !errors.As(err, &dispErr) {
		return nil, 0
	}

	var statusCode *int
	if dispErr.StatusCode > 0 {
		value := dispErr.StatusCode
		statusCode = &value
	}
	return statusCode, dispErr.DurationMillis
}

func targetHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}
