package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultEndpointTimeout    = 30 * time.Second
	defaultEndpointRetries    = 3
	defaultEndpointRetryDelay = time.Minute
)

// RateLimit configures the inbound sliding-window limiter for an endpoint.
type RateLimit struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requestsPerMinute"`
	RequestsPerHour   int  `json:"requestsPerHour"`
}

// Endpoint is a configured inbound source of webhook events.
type Endpoint struct {
	ID              string
	Name            string
	URL             string
	Method          string
	Secret          *string
	Active          bool
	AllowedEvents   []string
	Headers         map[string]string
	Timeout         time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	Filters         []Filter
	Transformations []Transformation
	RateLimit       RateLimit
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllowsEvent reports whether the endpoint accepts the event. An empty
// allowed-event set accepts everything.
func (e *Endpoint) AllowsEvent(event string) bool {
	if len(e.AllowedEvents) == 0 {
		return true
	}
	for _, allowed := range e.AllowedEvents {
		if allowed == event {
			return true
		}
	}
	return false
}

// HasSecret reports whether inbound payloads must carry a valid signature.
func (e *Endpoint) HasSecret() bool {
	return e.Secret != nil && strings.TrimSpace(*e.Secret) != ""
}

// ApplyDefaults fills zero-valued tuning knobs with engine defaults.
func (e *Endpoint) ApplyDefaults() {
	if e.Method == "" {
		e.Method = "POST"
	}
	if e.Timeout <= 0 {
		e.Timeout = defaultEndpointTimeout
	}
	if e.RetryAttempts <= 0 {
		e.RetryAttempts = defaultEndpointRetries
	}
	if e.RetryDelay <= 0 {
		e.RetryDelay = defaultEndpointRetryDelay
	}
}

func (e *Endpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: endpoint name is required", ErrValidation)
	}
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Errorf("%w: endpoint url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(e.URL); err != nil {
		return fmt.Errorf("%w: invalid endpoint url %q", ErrValidation, e.URL)
	}
	if e.RateLimit.Enabled {
		if e.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("%w: requestsPerMinute must be > 0", ErrValidation)
		}
		if e.RateLimit.RequestsPerHour <= 0 {
			return fmt.Errorf("%w: requestsPerHour must be > 0", ErrValidation)
		}
	}
	for i := range e.Filters {
		if err := e.Filters[i].Validate(); err != nil {
			return err
		}
	}
	for i := range e.Transformations {
		if err := e.Transformations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
