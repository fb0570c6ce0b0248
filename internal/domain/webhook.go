package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WebhookStatus represents the processing lifecycle of an incoming webhook.
type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "RECEIVED"
	WebhookStatusProcessed WebhookStatus = "PROCESSED"
	// WebhookStatusDropped marks a webhook filtered out during processing.
	// Dropped is a successful outcome, not an error.
	WebhookStatusDropped WebhookStatus = "DROPPED"
	// WebhookStatusDeadLettered marks a webhook whose processing retries are
	// exhausted. Terminal; manual remediation only.
	WebhookStatusDeadLettered WebhookStatus = "DEAD_LETTERED"
)

func (s WebhookStatus) String() string { return string(s) }

func (s WebhookStatus) IsValid() bool {
	switch s {
	case WebhookStatusReceived, WebhookStatusProcessed, WebhookStatusDropped, WebhookStatusDeadLettered:
		return true
	}
	return false
}

// IsTerminal reports whether no further processing will happen.
func (s WebhookStatus) IsTerminal() bool {
	return s == WebhookStatusProcessed || s == WebhookStatusDropped || s == WebhookStatusDeadLettered
}

// IsProcessed reports whether processing finished without dead-lettering.
func (s WebhookStatus) IsProcessed() bool {
	return s == WebhookStatusProcessed || s == WebhookStatusDropped
}

func ParseWebhookStatusFromString(s string) (WebhookStatus, error) {
	st := WebhookStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid webhook status %q", ErrValidation, s)
	}
	return st, nil
}

// IncomingWebhook is one received event instance. The raw payload bytes are
// retained verbatim so signature verification stays byte-identical end to end.
type IncomingWebhook struct {
	ID            string
	EndpointID    string
	Event         string
	Payload       json.RawMessage
	Headers       map[string]string
	SourceAddress string
	UserAgent     string
	Signature     *string
	Verified      bool
	Status        WebhookStatus
	RetryCount    int
	NextRetryAt   *time.Time
	LastError     *string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (w *IncomingWebhook) Validate() error {
	if strings.TrimSpace(w.EndpointID) == "" {
		return fmt.Errorf("%w: endpoint id is required", ErrValidation)
	}
	if strings.TrimSpace(w.Event) == "" {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	if len(w.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if !json.Valid(w.Payload) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrValidation)
	}
	return nil
}
