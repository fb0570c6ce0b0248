package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/dispatcher"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/queue"
)

type fakeEndpointRepo struct {
	createFn  func(ctx context.Context, e *domain.Endpoint) error
	getByIDFn func(ctx context.Context, id string) (*domain.Endpoint, error)
	updateFn  func(ctx context.Context, e *domain.Endpoint) error
	listFn    func(ctx context.Context) ([]domain.Endpoint, error)
}

func (f *fakeEndpointRepo) Create(ctx context.Context, e *domain.Endpoint) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeEndpointRepo) GetByID(ctx context.Context, id string) (*domain.Endpoint, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEndpointRepo) Update(ctx context.Context, e *domain.Endpoint) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, e)
	}
	return nil
}

func (f *fakeEndpointRepo) List(ctx context.Context) ([]domain.Endpoint, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeWebhookRepo struct {
	createFn                func(ctx context.Context, w *domain.IncomingWebhook) error
	getByIDFn               func(ctx context.Context, id string) (*domain.IncomingWebhook, error)
	markProcessedFn         func(ctx context.Context, id string, status domain.WebhookStatus, processedAt time.Time) error
	scheduleRetryFn         func(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error
	markDeadLetteredFn      func(ctx context.Context, id string, retryCount int, lastError string) error
	getDueForRetryFn        func(ctx context.Context, limit int) ([]domain.IncomingWebhook, error)
	clearNextRetryAtFn      func(ctx context.Context, id string) error
	listByEndpointInRangeFn func(ctx context.Context, endpointID string, from, to time.Time) ([]domain.IncomingWebhook, error)
}

func (f *fakeWebhookRepo) Create(ctx context.Context, w *domain.IncomingWebhook) error {
	if f.createFn != nil {
		return f.createFn(ctx, w)
	}
	return nil
}

func (f *fakeWebhookRepo) GetByID(ctx context.Context, id string) (*domain.IncomingWebhook, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeWebhookRepo) MarkProcessed(ctx context.Context, id string, status domain.WebhookStatus, processedAt time.Time) error {
	if f.markProcessedFn != nil {
		return f.markProcessedFn(ctx, id, status, processedAt)
	}
	return nil
}

func (f *fakeWebhookRepo) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error {
	if f.scheduleRetryFn != nil {
		return f.scheduleRetryFn(ctx, id, retryCount, nextRetryAt, lastError)
	}
	return nil
}

func (f *fakeWebhookRepo) MarkDeadLettered(ctx context.Context, id string, retryCount int, lastError string) error {
	if f.markDeadLetteredFn != nil {
		return f.markDeadLetteredFn(ctx, id, retryCount, lastError)
	}
	return nil
}

func (f *fakeWebhookRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.IncomingWebhook, error) {
	if f.getDueForRetryFn != nil {
		return f.getDueForRetryFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeWebhookRepo) ClearNextRetryAt(ctx context.Context, id string) error {
	if f.clearNextRetryAtFn != nil {
		return f.clearNextRetryAtFn(ctx, id)
	}
	return nil
}

func (f *fakeWebhookRepo) ListByEndpointInRange(ctx context.Context, endpointID string, from, to time.Time) ([]domain.IncomingWebhook, error) {
	if f.listByEndpointInRangeFn != nil {
		return f.listByEndpointInRangeFn(ctx, endpointID, from, to)
	}
	return nil, nil
}

type fakeDeliveryRepo struct {
	createFn             func(ctx context.Context, d *domain.Delivery) error
	getByIDFn            func(ctx context.Context, id string) (*domain.Delivery, error)
	lockForDeliveringFn  func(ctx context.Context, id string) (*domain.Delivery, error)
	markDeliveredFn      func(ctx context.Context, id string, attemptCount int, statusCode int, responseBody string, deliveredAt time.Time) error
	scheduleRetryFn      func(ctx context.Context, id string, attemptCount int, nextAttemptAt time.Time, statusCode *int, lastError string) error
	markFailedFn         func(ctx context.Context, id string, attemptCount int, statusCode *int, lastError string) error
	cancelFn             func(ctx context.Context, id string) error
	getDueForRetryFn     func(ctx context.Context, limit int) ([]domain.Delivery, error)
	clearNextAttemptAtFn func(ctx context.Context, id string) error
}

func (f *fakeDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return nil
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) LockForDelivering(ctx context.Context, id string) (*domain.Delivery, error) {
	if f.lockForDeliveringFn != nil {
		return f.lockForDeliveringFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) MarkDelivered(ctx context.Context, id string, attemptCount int, statusCode int, responseBody string, deliveredAt time.Time) error {
	if f.markDeliveredFn != nil {
		return f.markDeliveredFn(ctx, id, attemptCount, statusCode, responseBody, deliveredAt)
	}
	return nil
}

func (f *fakeDeliveryRepo) ScheduleRetry(ctx context.Context, id string, attemptCount int, nextAttemptAt time.Time, statusCode *int, lastError string) error {
	if f.scheduleRetryFn != nil {
		return f.scheduleRetryFn(ctx, id, attemptCount, nextAttemptAt, statusCode, lastError)
	}
	return nil
}

func (f *fakeDeliveryRepo) MarkFailed(ctx context.Context, id string, attemptCount int, statusCode *int, lastError string) error {
	if f.markFailedFn != nil {
		return f.markFailedFn(ctx, id, attemptCount, statusCode, lastError)
	}
	return nil
}

func (f *fakeDeliveryRepo) Cancel(ctx context.Context, id string) error {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, id)
	}
	return nil
}

func (f *fakeDeliveryRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error) {
	if f.getDueForRetryFn != nil {
		return f.getDueForRetryFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeDeliveryRepo) ClearNextAttemptAt(ctx context.Context, id string) error {
	if f.clearNextAttemptAtFn != nil {
		return f.clearNextAttemptAtFn(ctx, id)
	}
	return nil
}

type fakeAttemptRepo struct {
	createFn          func(ctx context.Context, a *domain.DeliveryAttempt) error
	getByDeliveryIDFn func(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttemptRepo) GetByDeliveryID(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error) {
	if f.getByDeliveryIDFn != nil {
		return f.getByDeliveryIDFn(ctx, deliveryID)
	}
	return nil, nil
}

type fakeSubscriptionRepo struct {
	createFn           func(ctx context.Context, s *domain.Subscription) error
	getByIDFn          func(ctx context.Context, id string) (*domain.Subscription, error)
	getActiveByEventFn func(ctx context.Context, event string) ([]domain.Subscription, error)
	deactivateFn       func(ctx context.Context, id string) error
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSubscriptionRepo) GetActiveByEvent(ctx context.Context, event string) ([]domain.Subscription, error) {
	if f.getActiveByEventFn != nil {
		return f.getActiveByEventFn(ctx, event)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepo) Deactivate(ctx context.Context, id string) error {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, id)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.Message) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.Message) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, req dispatcher.Request) (*dispatcher.Response, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req dispatcher.Request) (*dispatcher.Response, error) {
	if f.dispatchFn != nil {
		return f.dispatchFn(ctx, req)
	}
	return &dispatcher.Response{StatusCode: 200}, nil
}

type fakeDeliveryLimiter struct {
	allowFn func(ctx context.Context, destination string) (bool, error)
	waitFn  func(ctx context.Context, destination string) error
}

func (f *fakeDeliveryLimiter) Allow(ctx context.Context, destination string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, destination)
	}
	return true, nil
}

func (f *fakeDeliveryLimiter) Wait(ctx context.Context, destination string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, destination)
	}
	return nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, req SendRequest) (*domain.Delivery, error)
}

func (f *fakeSender) Send(ctx context.Context, req SendRequest) (*domain.Delivery, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, req)
	}
	return &domain.Delivery{ID: "generated"}, nil
}

type fakeFanout struct {
	fanoutFn func(ctx context.Context, webhookID string, event string, payload map[string]any) (int, error)
}

func (f *fakeFanout) Fanout(ctx context.Context, webhookID string, event string, payload map[string]any) (int, error) {
	if f.fanoutFn != nil {
		return f.fanoutFn(ctx, webhookID, event, payload)
	}
	return 0, nil
}
