package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/queue"
	"github.com/kursadbilgin/hookrelay/internal/ratelimit"
)

func newWorkerService(t *testing.T, consumer *fakeConsumer, webhooks *fakeWebhookRepo, deliveries *fakeDeliveryRepo) *WorkerService {
	t.Helper()

	ingestion, err := NewIngestionService(&fakeEndpointRepo{}, webhooks, &fakePublisher{}, ratelimit.NewSlidingWindow(nil), nil, nil)
	if err != nil {
		t.Fatalf("NewIngestionService() error = %v", err)
	}
	delivery, err := NewDeliveryService(deliveries, &fakeAttemptRepo{}, &fakePublisher{}, &fakeDispatcher{}, &fakeDeliveryLimiter{}, nil)
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}

	workers, err := NewWorkerService(ingestion, delivery, consumer, 2, 2, nil)
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}
	return workers
}

func TestWorkerStartConsumesBothQueues(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	consumed := make(map[string]int)
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			mu.Lock()
			consumed[queueName]++
			mu.Unlock()
			<-ctx.Done()
			return nil
		},
	}

	workers := newWorkerService(t, consumer, &fakeWebhookRepo{}, &fakeDeliveryRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- workers.Start(ctx)
	}()

	// Workers register their consumers before blocking on ctx.
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if consumed[queue.IngestQueue] != 2 {
		t.Fatalf("ingest consumers = %d, want 2", consumed[queue.IngestQueue])
	}
	if consumed[queue.DeliverQueue] != 2 {
		t.Fatalf("delivery consumers = %d, want 2", consumed[queue.DeliverQueue])
	}
}

func TestWorkerRejectsMalformedMessages(t *testing.T) {
	t.Parallel()

	workers := newWorkerService(t, &fakeConsumer{}, &fakeWebhookRepo{}, &fakeDeliveryRepo{})

	err := workers.handleWebhookMessage(context.Background(), []byte("{not json"))
	if !errors.Is(err, queue.ErrReject) {
		t.Fatalf("malformed webhook message error = %v, want ErrReject", err)
	}

	body, _ := json.Marshal(queue.WebhookMessage{WebhookID: "", EndpointID: "ep-1"})
	err = workers.handleWebhookMessage(context.Background(), body)
	if !errors.Is(err, queue.ErrReject) {
		t.Fatalf("invalid webhook message error = %v, want ErrReject", err)
	}

	err = workers.handleDeliveryMessage(context.Background(), []byte("{not json"))
	if !errors.Is(err, queue.ErrReject) {
		t.Fatalf("malformed delivery message error = %v, want ErrReject", err)
	}
}

func TestWorkerHandlesKnownMessages(t *testing.T) {
	t.Parallel()

	processed := false
	webhooks := &fakeWebhookRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.IncomingWebhook, error) {
			if id != "wh-1" {
				t.Fatalf("webhook id = %s, want wh-1", id)
			}
			processed = true
			// Terminal record; Process acks without further work.
			return &domain.IncomingWebhook{ID: id, Status: domain.WebhookStatusProcessed}, nil
		},
	}

	delivered := false
	deliveries := &fakeDeliveryRepo{
		lockForDeliveringFn: func(ctx context.Context, id string) (*domain.Delivery, error) {
			if id != "dl-1" {
				t.Fatalf("delivery id = %s, want dl-1", id)
			}
			delivered = true
			return nil, nil
		},
	}

	workers := newWorkerService(t, &fakeConsumer{}, webhooks, deliveries)

	body, _ := json.Marshal(queue.WebhookMessage{WebhookID: "wh-1", EndpointID: "ep-1", Event: "e"})
	if err := workers.handleWebhookMessage(context.Background(), body); err != nil {
		t.Fatalf("handleWebhookMessage() error = %v", err)
	}
	if !processed {
		t.Fatal("expected webhook processing to run")
	}

	body, _ = json.Marshal(queue.DeliveryMessage{DeliveryID: "dl-1"})
	if err := workers.handleDeliveryMessage(context.Background(), body); err != nil {
		t.Fatalf("handleDeliveryMessage() error = %v", err)
	}
	if !delivered {
		t.Fatal("expected delivery handling to run")
	}
}
