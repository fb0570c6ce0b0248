package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/service"
)

const (
	headerWebhookEvent     = "X-Webhook-Event"
	headerWebhookSignature = "X-Webhook-Signature"
)

type IngestionService interface {
	Receive(ctx context.Context, endpointID string, req service.ReceiveRequest) (*domain.IncomingWebhook, error)
	GetWebhook(ctx context.Context, id string) (*domain.IncomingWebhook, error)
}

type WebhookHandler struct {
	ingestion IngestionService
}

func NewWebhookHandler(ingestion IngestionService) (*WebhookHandler, error) {
	if ingestion == nil {
		return nil, fmt.Errorf("ingestion service is required")
	}
	return &WebhookHandler{ingestion: ingestion}, nil
}

func RegisterWebhookRoutes(router fiber.Router, ingestion IngestionService) error {
	h, err := NewWebhookHandler(ingestion)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/endpoints/:id/webhooks", h.ReceiveWebhook)
	v1.Get("/webhooks/:id", h.GetWebhook)

	return nil
}

// ReceiveWebhook is the sole inbound entry point. The raw request body is
// passed through untouched so signatures verify against the exact bytes sent.
func (h *WebhookHandler) ReceiveWebhook(c *fiber.Ctx) error {
	endpointID := strings.TrimSpace(c.Params("id"))

	event := strings.TrimSpace(c.Get(headerWebhookEvent))
	if event == "" {
		event = strings.TrimSpace(c.Query("event"))
	}

	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	webhook, err := h.ingestion.Receive(c.Context(), endpointID, service.ReceiveRequest{
		Event:         event,
		Payload:       c.Body(),
		Headers:       headers,
		SourceAddress: c.IP(),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		Signature:     strings.TrimSpace(c.Get(headerWebhookSignature)),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRejected):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false,
				"message": rejectionMessage(err),
			})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Endpoint not found",
			})
		case errors.Is(err, domain.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		default:
			return err
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":   true,
		"webhookId": webhook.ID,
	})
}

func (h *WebhookHandler) GetWebhook(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	webhook, err := h.ingestion.GetWebhook(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toWebhookResponse(webhook))
}

type webhookResponse struct {
	ID            string  `json:"id"`
	EndpointID    string  `json:"endpointId"`
	Event         string  `json:"event"`
	Status        string  `json:"status"`
	Verified      bool    `json:"verified"`
	SourceAddress string  `json:"sourceAddress,omitempty"`
	RetryCount    int     `json:"retryCount"`
	LastError     *string `json:"lastError,omitempty"`
}

func toWebhookResponse(w *domain.IncomingWebhook) webhookResponse {
	if w == nil {
		return webhookResponse{}
	}

	return webhookResponse{
		ID:            w.ID,
		EndpointID:    w.EndpointID,
		Event:         w.Event,
		Status:        w.Status.String(),
		Verified:      w.Verified,
		SourceAddress: w.SourceAddress,
		RetryCount:    w.RetryCount,
		LastError:     w.LastError,
	}
}
