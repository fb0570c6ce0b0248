package queue

import (
	"context"
	"errors"
	"fmt"
)

const (
	// IngestQueue feeds incoming webhooks to the ingestion workers.
	IngestQueue = "webhooks.ingest"
	// DeliverQueue feeds pending deliveries to the delivery workers.
	DeliverQueue = "webhooks.deliver"
)

// ErrReject marks a message that must be rejected without requeueing
// (malformed payload, failed validation). The consumer routes it to the DLQ.
var ErrReject = errors.New("message rejected")

// Message is a broker payload.
type Message interface {
	Validate() error
}

// Publisher publishes messages to a work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
	Close() error
}

// MessageHandler handles a consumed message body. Returning an error wrapping
// ErrReject dead-letters the message; any other error requeues it.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer consumes messages from a work queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// DLQName returns the dead-letter queue name for a work queue,
// e.g. dlq.webhooks.ingest.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// WorkQueueNames returns all work queues (2 total).
func WorkQueueNames() []string {
	return []string{IngestQueue, DeliverQueue}
}

// DLQNames returns all dead-letter queues (2 total).
func DLQNames() []string {
	queues := make([]string, 0, 2)
	for _, name := range WorkQueueNames() {
		queues = append(queues, DLQName(name))
	}
	return queues
}
