package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kursadbilgin/hookrelay/internal/observability"
	"github.com/kursadbilgin/hookrelay/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService runs the broker-fed worker pools: one pool draining the
// ingest queue into IngestionService.Process and one draining the delivery
// queue into DeliveryService.Deliver.
type WorkerService struct {
	ingestion           *IngestionService
	delivery            *DeliveryService
	consumer            queue.Consumer
	logger              *zap.Logger
	metrics             *observability.Metrics
	ingestConcurrency   int
	deliveryConcurrency int
}

func NewWorkerService(
	ingestion *IngestionService,
	delivery *DeliveryService,
	consumer queue.Consumer,
	ingestConcurrency int,
	deliveryConcurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if ingestion == nil {
		return nil, fmt.Errorf("ingestion service is required")
	}
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if ingestConcurrency < minWorkerConcurrency {
		ingestConcurrency = minWorkerConcurrency
	}
	if deliveryConcurrency < minWorkerConcurrency {
		deliveryConcurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		ingestion:           ingestion,
		delivery:            delivery,
		consumer:            consumer,
		logger:              logger,
		ingestConcurrency:   ingestConcurrency,
		deliveryConcurrency: deliveryConcurrency,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes both work queues until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.ingestConcurrency; i++ {
		s.spawn(g, groupCtx, queue.IngestQueue, i+1, s.handleWebhookMessage)
	}
	for i := 0; i < s.deliveryConcurrency; i++ {
		s.spawn(g, groupCtx, queue.DeliverQueue, i+1, s.handleDeliveryMessage)
	}

	return g.Wait()
}

func (s *WorkerService) spawn(g *errgroup.Group, ctx context.Context, queueName string, workerID int, handler queue.MessageHandler) {
	g.Go(func() error {
		s.logger.Info("worker started",
			zap.Int("workerId", workerID),
			zap.String("queue", queueName),
		)

		err := s.consumer.Consume(ctx, queueName, handler)
		if err != nil {
			s.logger.Error("worker stopped with error",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
				zap.Error(err),
			)
			return err
		}

		s.logger.Info("worker stopped",
			zap.Int("workerId", workerID),
			zap.String("queue", queueName),
		)
		return nil
	})
}

func (s *WorkerService) handleWebhookMessage(ctx context.Context, body []byte) error {
	if s.metrics != nil {
		s.metrics.IncWorkerInFlight(queue.IngestQueue)
		defer s.metrics.DecWorkerInFlight(queue.IngestQueue)
	}

	var msg queue.WebhookMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: malformed webhook message: %v", queue.ErrReject, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: invalid webhook message: %v", queue.ErrReject, err)
	}

	return s.ingestion.Process(observability.WithWebhookID(ctx, msg.WebhookID), msg.WebhookID)
}

func (s *WorkerService) handleDeliveryMessage(ctx context.Context, body []byte) error {
	if s.metrics != nil {
		s.metrics.IncWorkerInFlight(queue.DeliverQueue)
		defer s.metrics.DecWorkerInFlight(queue.DeliverQueue)
	}

	var msg queue.DeliveryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: malformed delivery message: %v", queue.ErrReject, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: invalid delivery message: %v", queue.ErrReject, err)
	}

	return s.delivery.Deliver(ctx, msg.DeliveryID)
}
