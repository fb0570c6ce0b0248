package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hookrelay/internal/domain"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
}

type SubscriptionHandler struct {
	subscriptions SubscriptionService
}

func NewSubscriptionHandler(subscriptions SubscriptionService) (*SubscriptionHandler, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	return &SubscriptionHandler{subscriptions: subscriptions}, nil
}

func RegisterSubscriptionRoutes(router fiber.Router, subscriptions SubscriptionService) error {
	h, err := NewSubscriptionHandler(subscriptions)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/subscriptions", h.Subscribe)
	v1.Get("/subscriptions/:id", h.GetSubscription)
	v1.Delete("/subscriptions/:id", h.Unsubscribe)

	return nil
}

type subscribeRequest struct {
	UserID      string          `json:"userId"`
	EndpointURL string          `json:"endpointUrl"`
	Events      []string        `json:"events"`
	Filters     []domain.Filter `json:"filters,omitempty"`
}

type subscriptionResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	EndpointURL string          `json:"endpointUrl"`
	Events      []string        `json:"events"`
	Secret      string          `json:"secret,omitempty"`
	Active      bool            `json:"active"`
	Filters     []domain.Filter `json:"filters,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}

func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sub, err := h.subscriptions.Subscribe(c.Context(), &domain.Subscription{
		UserID:      strings.TrimSpace(req.UserID),
		EndpointURL: strings.TrimSpace(req.EndpointURL),
		Events:      req.Events,
		Filters:     req.Filters,
	})
	if err != nil {
		return toHTTPError(err)
	}

	// The generated secret is returned once, on creation only.
	return c.Status(fiber.StatusCreated).JSON(toSubscriptionResponse(sub, true))
}

func (h *SubscriptionHandler) GetSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	sub, err := h.subscriptions.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSubscriptionResponse(sub, false))
}

func (h *SubscriptionHandler) Unsubscribe(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.subscriptions.Unsubscribe(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"subscriptionId": id,
		"active":         false,
	})
}

func toSubscriptionResponse(s *domain.Subscription, includeSecret bool) subscriptionResponse {
	if s == nil {
		return subscriptionResponse{}
	}

	resp := subscriptionResponse{
		ID:          s.ID,
		UserID:      s.UserID,
		EndpointURL: s.EndpointURL,
		Events:      s.Events,
		Active:      s.Active,
		Filters:     s.Filters,
		CreatedAt:   s.CreatedAt,
	}
	if includeSecret {
		resp.Secret = s.Secret
	}
	return resp
}
