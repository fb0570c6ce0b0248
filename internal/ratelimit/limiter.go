package ratelimit

import "context"

// DeliveryLimiter throttles outbound delivery throughput per destination host.
type DeliveryLimiter interface {
	Allow(ctx context.Context, destination string) (bool, error)
	Wait(ctx context.Context, destination string) error
}
