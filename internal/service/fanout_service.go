package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/filter"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const subscriptionSecretBytes = 32

// DeliverySender creates and enqueues outbound deliveries.
type DeliverySender interface {
	Send(ctx context.Context, req SendRequest) (*domain.Delivery, error)
}

type FanoutService struct {
	subscriptions repository.SubscriptionRepository
	sender        DeliverySender
	logger        *zap.Logger
}

func NewFanoutService(
	subscriptions repository.SubscriptionRepository,
	sender DeliverySender,
	logger *zap.Logger,
) (*FanoutService, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("delivery sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FanoutService{
		subscriptions: subscriptions,
		sender:        sender,
		logger:        logger,
	}, nil
}

// Subscribe registers a subscription. A signing secret is generated when the
// caller does not provide one.
func (s *FanoutService) Subscribe(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: subscription is required", domain.ErrValidation)
	}

	sub.ID = strings.TrimSpace(sub.ID)
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if strings.TrimSpace(sub.Secret) == "" {
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate subscription secret: %w", err)
		}
		sub.Secret = secret
	}
	sub.Active = true

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Unsubscribe deactivates a subscription. Pending deliveries already created
// for it are unaffected.
func (s *FanoutService) Unsubscribe(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return s.subscriptions.Deactivate(ctx, strings.TrimSpace(id))
}

func (s *FanoutService) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return s.subscriptions.GetByID(ctx, strings.TrimSpace(id))
}

// Fanout creates one delivery per active subscription whose events and
// filters match. A failure on one subscription does not stop the others; the
// errors are aggregated and the created-delivery count is returned alongside.
func (s *FanoutService) Fanout(ctx context.Context, webhookID string, event string, payload map[string]any) (int, error) {
	subs, err := s.subscriptions.GetActiveByEvent(ctx, event)
	if err != nil {
		return 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal fanout payload: %w", err)
	}

	created := 0
	var errs error
	for i := range subs {
		sub := &subs[i]

		matched, evalErr := filter.Evaluate(payload, sub.Filters)
		if evalErr != nil {
			s.logger.Warn("subscription filter evaluation failed, skipping",
				zap.String("subscriptionId", sub.ID),
				zap.Error(evalErr),
			)
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, evalErr))
			continue
		}
		if !matched {
			continue
		}

		subscriptionID := sub.ID
		_, sendErr := s.sender.Send(ctx, SendRequest{
			TargetURL:      sub.EndpointURL,
			Event:          event,
			Payload:        body,
			Secret:         sub.Secret,
			WebhookID:      &webhookID,
			SubscriptionID: &subscriptionID,
			MaxAttempts:    domain.DefaultMaxAttempts,
		})
		if sendErr != nil {
			s.logger.Error("failed to create fanout delivery",
				zap.String("subscriptionId", sub.ID),
				zap.String("webhookId", webhookID),
				zap.Error(sendErr),
			)
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, sendErr))
			continue
		}
		created++
	}

	return created, errs
}

func generateSecret() (string, error) {
	buf := make([]byte, subscriptionSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
