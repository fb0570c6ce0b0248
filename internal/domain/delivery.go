package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DeliveryStatus represents the lifecycle state of an outbound delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
	DeliveryStatusCanceled  DeliveryStatus = "CANCELED"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusDelivered, DeliveryStatusFailed, DeliveryStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether the delivery will never be attempted again.
func (s DeliveryStatus) IsTerminal() bool {
	return s != DeliveryStatusPending
}

func ParseDeliveryStatusFromString(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}

// DefaultMaxAttempts is the delivery attempt budget for fanout and ad-hoc sends.
const DefaultMaxAttempts = 3

// Delivery is one outbound HTTP push of a payload to a target URL, with its
// own retry history. AttemptCount always equals the number of HTTP calls made.
type Delivery struct {
	ID             string
	WebhookID      *string
	SubscriptionID *string
	TargetURL      string
	Event          string
	Payload        json.RawMessage
	Headers        map[string]string
	Status         DeliveryStatus
	AttemptCount   int
	MaxAttempts    int
	LastStatusCode *int
	LastResponse   *string
	LastError      *string
	NextAttemptAt  *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d *Delivery) Validate() error {
	if strings.TrimSpace(d.TargetURL) == "" {
		return fmt.Errorf("%w: target url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(d.TargetURL); err != nil {
		return fmt.Errorf("%w: invalid target url %q", ErrValidation, d.TargetURL)
	}
	if strings.TrimSpace(d.Event) == "" {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	if len(d.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if d.MaxAttempts <= 0 {
		return fmt.Errorf("%w: maxAttempts must be > 0", ErrValidation)
	}
	return nil
}

// DeliveryAttempt records a single HTTP call belonging to a delivery.
// Immutable once appended.
type DeliveryAttempt struct {
	ID             string
	DeliveryID     string
	AttemptNumber  int
	StatusCode     *int
	ResponseBody   *string
	Error          *string
	DurationMillis int64
	CreatedAt      time.Time
}
