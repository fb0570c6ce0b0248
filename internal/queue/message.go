package queue

import (
	"fmt"
	"strings"
)

// WebhookMessage is the broker payload for incoming webhook processing.
type WebhookMessage struct {
	WebhookID  string `json:"webhookId"`
	EndpointID string `json:"endpointId"`
	Event      string `json:"event,omitempty"`
}

func (m WebhookMessage) Validate() error {
	if strings.TrimSpace(m.WebhookID) == "" {
		return fmt.Errorf("webhookId is required")
	}
	if strings.TrimSpace(m.EndpointID) == "" {
		return fmt.Errorf("endpointId is required")
	}
	return nil
}

// DeliveryMessage is the broker payload for outbound delivery attempts.
type DeliveryMessage struct {
	DeliveryID string `json:"deliveryId"`
}

func (m DeliveryMessage) Validate() error {
	if strings.TrimSpace(m.DeliveryID) == "" {
		return fmt.Errorf("deliveryId is required")
	}
	return nil
}
