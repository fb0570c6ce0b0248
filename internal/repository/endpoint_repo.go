package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"gorm.io/gorm"
)

type EndpointRepository interface {
	Create(ctx context.Context, e *domain.Endpoint) error
	GetByID(ctx context.Context, id string) (*domain.Endpoint, error)
	Update(ctx context.Context, e *domain.Endpoint) error
	List(ctx context.Context) ([]domain.Endpoint, error)
}

type GormEndpointRepo struct {
	db *gorm.DB
}

func NewGormEndpointRepo(db *gorm.DB) *GormEndpointRepo {
	return &GormEndpointRepo{db: db}
}

func (r *GormEndpointRepo) Create(ctx context.Context, e *domain.Endpoint) error {
	model := endpointModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *endpointModelToDomain(model)
	}
	return nil
}

func (r *GormEndpointRepo) GetByID(ctx context.Context, id string) (*domain.Endpoint, error) {
	var model EndpointModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return endpointModelToDomain(&model), nil
}

func (r *GormEndpointRepo) Update(ctx context.Context, e *domain.Endpoint) error {
	model := endpointModelFromDomain(e)
	result := r.db.WithContext(ctx).
		Model(&EndpointModel{}).
		Where("id = ?", model.ID).
		Select("name", "url", "method", "secret", "active", "allowed_events",
			"headers", "timeout_seconds", "retry_attempts", "retry_delay_seconds",
			"filters", "transformations", "rate_limit").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormEndpointRepo) List(ctx context.Context) ([]domain.Endpoint, error) {
	var models []EndpointModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.Endpoint, 0, len(models))
	for i := range models {
		endpoints = append(endpoints, *endpointModelToDomain(&models[i]))
	}
	return endpoints, nil
}
