package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/service"
)

type EndpointService interface {
	Register(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error)
	GetByID(ctx context.Context, id string) (*domain.Endpoint, error)
	Update(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error)
	List(ctx context.Context) ([]domain.Endpoint, error)
}

type StatsService interface {
	GetEndpointStats(ctx context.Context, endpointID string, from, to time.Time) (*service.EndpointStats, error)
}

type EndpointHandler struct {
	endpoints EndpointService
	stats     StatsService
}

func NewEndpointHandler(endpoints EndpointService, stats StatsService) (*EndpointHandler, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint service is required")
	}
	if stats == nil {
		return nil, fmt.Errorf("stats service is required")
	}
	return &EndpointHandler{endpoints: endpoints, stats: stats}, nil
}

func RegisterEndpointRoutes(router fiber.Router, endpoints EndpointService, stats StatsService) error {
	h, err := NewEndpointHandler(endpoints, stats)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/endpoints", h.RegisterEndpoint)
	v1.Get("/endpoints", h.ListEndpoints)
	v1.Get("/endpoints/:id", h.GetEndpoint)
	v1.Put("/endpoints/:id", h.UpdateEndpoint)
	v1.Get("/endpoints/:id/stats", h.GetEndpointStats)

	return nil
}

type endpointRequest struct {
	Name            string                  `json:"name"`
	URL             string                  `json:"url"`
	Method          string                  `json:"method,omitempty"`
	Secret          *string                 `json:"secret,omitempty"`
	Active          *bool                   `json:"active,omitempty"`
	AllowedEvents   []string                `json:"allowedEvents,omitempty"`
	Headers         map[string]string       `json:"headers,omitempty"`
	TimeoutSeconds  int                     `json:"timeoutSeconds,omitempty"`
	RetryAttempts   int                     `json:"retryAttempts,omitempty"`
	RetryDelaySecs  int                     `json:"retryDelaySeconds,omitempty"`
	Filters         []domain.Filter         `json:"filters,omitempty"`
	Transformations []domain.Transformation `json:"transformations,omitempty"`
	RateLimit       domain.RateLimit        `json:"rateLimit,omitempty"`
}

type endpointResponse struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	URL             string                  `json:"url"`
	Method          string                  `json:"method"`
	Active          bool                    `json:"active"`
	HasSecret       bool                    `json:"hasSecret"`
	AllowedEvents   []string                `json:"allowedEvents,omitempty"`
	Headers         map[string]string       `json:"headers,omitempty"`
	TimeoutSeconds  int                     `json:"timeoutSeconds"`
	RetryAttempts   int                     `json:"retryAttempts"`
	RetryDelaySecs  int                     `json:"retryDelaySeconds"`
	Filters         []domain.Filter         `json:"filters,omitempty"`
	Transformations []domain.Transformation `json:"transformations,omitempty"`
	RateLimit       domain.RateLimit        `json:"rateLimit"`
	CreatedAt       time.Time               `json:"createdAt,omitempty"`
	UpdatedAt       time.Time               `json:"updatedAt,omitempty"`
}

type statsResponse struct {
	EndpointID        string               `json:"endpointId"`
	From              time.Time            `json:"from"`
	To                time.Time            `json:"to"`
	TotalReceived     int                  `json:"totalReceived"`
	TotalProcessed    int                  `json:"totalProcessed"`
	TotalDropped      int                  `json:"totalDropped"`
	TotalDeadLettered int                  `json:"totalDeadLettered"`
	TotalRetried      int                  `json:"totalRetried"`
	TotalVerified     int                  `json:"totalVerified"`
	SuccessRate       float64              `json:"successRate"`
	ErrorRate         float64              `json:"errorRate"`
	AvgLatencyMillis  float64              `json:"avgLatencyMillis"`
	TopEvents         []frequencyCountItem `json:"topEvents"`
	TopErrors         []frequencyCountItem `json:"topErrors"`
	HourlyHistogram   [24]int              `json:"hourlyHistogram"`
}

type frequencyCountItem struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

func (h *EndpointHandler) RegisterEndpoint(c *fiber.Ctx) error {
	var req endpointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	endpoint := requestToDomainEndpoint(req)
	created, err := h.endpoints.Register(c.Context(), &endpoint)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toEndpointResponse(created))
}

func (h *EndpointHandler) GetEndpoint(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	endpoint, err := h.endpoints.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toEndpointResponse(endpoint))
}

func (h *EndpointHandler) UpdateEndpoint(c *fiber.Ctx) error {
	var req endpointRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	endpoint := requestToDomainEndpoint(req)
	endpoint.ID = strings.TrimSpace(c.Params("id"))
	if req.Active != nil {
		endpoint.Active = *req.Active
	} else {
		endpoint.Active = true
	}

	updated, err := h.endpoints.Update(c.Context(), &endpoint)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toEndpointResponse(updated))
}

func (h *EndpointHandler) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := h.endpoints.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]endpointResponse, 0, len(endpoints))
	for i := range endpoints {
		responses = append(responses, toEndpointResponse(&endpoints[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func (h *EndpointHandler) GetEndpointStats(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return toHTTPError(err)
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return toHTTPError(err)
	}
	if from.IsZero() {
		from = time.Now().UTC().Add(-24 * time.Hour)
	}

	stats, err := h.stats.GetEndpointStats(c.Context(), id, from, to)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toStatsResponse(stats))
}

func requestToDomainEndpoint(req endpointRequest) domain.Endpoint {
	endpoint := domain.Endpoint{
		Name:            strings.TrimSpace(req.Name),
		URL:             strings.TrimSpace(req.URL),
		Method:          strings.ToUpper(strings.TrimSpace(req.Method)),
		Secret:          req.Secret,
		AllowedEvents:   req.AllowedEvents,
		Headers:         req.Headers,
		Timeout:         time.Duration(req.TimeoutSeconds) * time.Second,
		RetryAttempts:   req.RetryAttempts,
		RetryDelay:      time.Duration(req.RetryDelaySecs) * time.Second,
		Filters:         req.Filters,
		Transformations: req.Transformations,
		RateLimit:       req.RateLimit,
	}
	return endpoint
}

func toEndpointResponse(e *domain.Endpoint) endpointResponse {
	if e == nil {
		return endpointResponse{}
	}

	return endpointResponse{
		ID:              e.ID,
		Name:            e.Name,
		URL:             e.URL,
		Method:          e.Method,
		Active:          e.Active,
		HasSecret:       e.HasSecret(),
		AllowedEvents:   e.AllowedEvents,
		Headers:         e.Headers,
		TimeoutSeconds:  int(e.Timeout / time.Second),
		RetryAttempts:   e.RetryAttempts,
		RetryDelaySecs:  int(e.RetryDelay / time.Second),
		Filters:         e.Filters,
		Transformations: e.Transformations,
		RateLimit:       e.RateLimit,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toStatsResponse(s *service.EndpointStats) statsResponse {
	if s == nil {
		return statsResponse{}
	}

	return statsResponse{
		EndpointID:        s.EndpointID,
		From:              s.From,
		To:                s.To,
		TotalReceived:     s.TotalReceived,
		TotalProcessed:    s.TotalProcessed,
		TotalDropped:      s.TotalDropped,
		TotalDeadLettered: s.TotalDeadLettered,
		TotalRetried:      s.TotalRetried,
		TotalVerified:     s.TotalVerified,
		SuccessRate:       s.SuccessRate,
		ErrorRate:         s.ErrorRate,
		AvgLatencyMillis:  s.AvgLatencyMillis,
		TopEvents:         toFrequencyItems(s.TopEvents),
		TopErrors:         toFrequencyItems(s.TopErrors),
		HourlyHistogram:   s.HourlyHistogram,
	}
}

func toFrequencyItems(counts []service.FrequencyCount) []frequencyCountItem {
	items := make([]frequencyCountItem, 0, len(counts))
	for _, count := range counts {
		items = append(items, frequencyCountItem{Value: count.Value, Count: count.Count})
	}
	return items
}
