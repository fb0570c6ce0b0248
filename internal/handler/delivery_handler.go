package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/service"
)

type DeliveryService interface {
	Send(ctx context.Context, req service.SendRequest) (*domain.Delivery, error)
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	Cancel(ctx context.Context, id string) error
	ListAttempts(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error)
}

type DeliveryHandler struct {
	deliveries DeliveryService
}

func NewDeliveryHandler(deliveries DeliveryService) (*DeliveryHandler, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &DeliveryHandler{deliveries: deliveries}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, deliveries DeliveryService) error {
	h, err := NewDeliveryHandler(deliveries)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/deliveries", h.SendDelivery)
	v1.Get("/deliveries/:id", h.GetDelivery)
	v1.Post("/deliveries/:id/cancel", h.CancelDelivery)
	v1.Get("/deliveries/:id/attempts", h.ListAttempts)

	return nil
}

type sendDeliveryRequest struct {
	TargetURL   string            `json:"targetUrl"`
	Event       string            `json:"event"`
	Payload     json.RawMessage   `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	Secret      string            `json:"secret,omitempty"`
	MaxAttempts int               `json:"maxAttempts,omitempty"`
}

type deliveryResponse struct {
	ID             string     `json:"id"`
	WebhookID      *string    `json:"webhookId,omitempty"`
	SubscriptionID *string    `json:"subscriptionId,omitempty"`
	TargetURL      string     `json:"targetUrl"`
	Event          string     `json:"event"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attemptCount"`
	MaxAttempts    int        `json:"maxAttempts"`
	LastStatusCode *int       `json:"lastStatusCode,omitempty"`
	LastError      *string    `json:"lastError,omitempty"`
	NextAttemptAt  *time.Time `json:"nextAttemptAt,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt,omitempty"`
}

type attemptResponse struct {
	ID             string    `json:"id"`
	AttemptNumber  int       `json:"attemptNumber"`
	StatusCode     *int      `json:"statusCode,omitempty"`
	ResponseBody   *string   `json:"responseBody,omitempty"`
	Error          *string   `json:"error,omitempty"`
	DurationMillis int64     `json:"durationMillis"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *DeliveryHandler) SendDelivery(c *fiber.Ctx) error {
	var req sendDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	delivery, err := h.deliveries.Send(c.Context(), service.SendRequest{
		TargetURL:   strings.TrimSpace(req.TargetURL),
		Event:       strings.TrimSpace(req.Event),
		Payload:     req.Payload,
		Headers:     req.Headers,
		Secret:      req.Secret,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toDeliveryResponse(delivery))
}

func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	delivery, err := h.deliveries.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(delivery))
}

func (h *DeliveryHandler) CancelDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.deliveries.Cancel(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deliveryId": id,
		"status":     domain.DeliveryStatusCanceled.String(),
	})
}

func (h *DeliveryHandler) ListAttempts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	attempts, err := h.deliveries.ListAttempts(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]attemptResponse, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		items = append(items, attemptResponse{
			ID:             a.ID,
			AttemptNumber:  a.AttemptNumber,
			StatusCode:     a.StatusCode,
			ResponseBody:   a.ResponseBody,
			Error:          a.Error,
			DurationMillis: a.DurationMillis,
			CreatedAt:      a.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": items})
}

func toDeliveryResponse(d *domain.Delivery) deliveryResponse {
	if d == nil {
		return deliveryResponse{}
	}

	return deliveryResponse{
		ID:             d.ID,
		WebhookID:      d.WebhookID,
		SubscriptionID: d.SubscriptionID,
		TargetURL:      d.TargetURL,
		Event:          d.Event,
		Status:         d.Status.String(),
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		LastStatusCode: d.LastStatusCode,
		LastError:      d.LastError,
		NextAttemptAt:  d.NextAttemptAt,
		DeliveredAt:    d.DeliveredAt,
		CreatedAt:      d.CreatedAt,
	}
}
