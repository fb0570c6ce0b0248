package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Subscription is a user's registration to receive fan-out copies of
// matching events.
type Subscription struct {
	ID          string
	UserID      string
	EndpointURL string
	Events      []string
	Secret      string
	Active      bool
	Filters     []Filter
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Matches reports whether the subscription is subscribed to the event.
func (s *Subscription) Matches(event string) bool {
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

func (s *Subscription) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(s.EndpointURL) == "" {
		return fmt.Errorf("%w: endpoint url is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(s.EndpointURL); err != nil {
		return fmt.Errorf("%w: invalid endpoint url %q", ErrValidation, s.EndpointURL)
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("%w: at least one event is required", ErrValidation)
	}
	for i := range s.Filters {
		if err := s.Filters[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
