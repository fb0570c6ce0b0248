package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hookrelay/internal/domain"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"go.uber.org/zap"
)

type EndpointService struct {
	endpoints repository.EndpointRepository
	logger    *zap.Logger
}

func NewEndpointService(endpoints repository.EndpointRepository, logger *zap.Logger) (*EndpointService, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EndpointService{
		endpoints: endpoints,
		logger:    logger,
	}, nil
}

// Register validates and persists a new endpoint. Zero-valued tuning knobs
// get engine defaults before validation.
func (s *EndpointService) Register(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if endpoint == nil {
		return nil, fmt.Errorf("%w: endpoint is required", domain.ErrValidation)
	}

	endpoint.ID = strings.TrimSpace(endpoint.ID)
	if endpoint.ID == "" {
		endpoint.ID = uuid.NewString()
	}
	endpoint.Name = strings.TrimSpace(endpoint.Name)
	endpoint.Active = true
	endpoint.ApplyDefaults()

	if err := endpoint.Validate(); err != nil {
		return nil, err
	}
	if err := s.endpoints.Create(ctx, endpoint); err != nil {
		return nil, err
	}

	s.logger.Info("endpoint registered",
		zap.String("endpointId", endpoint.ID),
		zap.String("name", endpoint.Name),
	)
	return endpoint, nil
}

func (s *EndpointService) GetByID(ctx context.Context, id string) (*domain.Endpoint, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}
	return s.endpoints.GetByID(ctx, strings.TrimSpace(id))
}

// Update replaces the mutable configuration of an existing endpoint.
func (s *EndpointService) Update(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("%w: endpoint is required", domain.ErrValidation)
	}
	if strings.TrimSpace(endpoint.ID) == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}

	endpoint.ApplyDefaults()
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}
	if err := s.endpoints.Update(ctx, endpoint); err != nil {
		return nil, err
	}

	return endpoint, nil
}

func (s *EndpointService) List(ctx context.Context) ([]domain.Endpoint, error) {
	return s.endpoints.List(ctx)
}
