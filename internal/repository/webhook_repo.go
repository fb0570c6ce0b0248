package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"gorm.io/gorm"
)

type WebhookRepository interface {
	Create(ctx context.Context, w *domain.IncomingWebhook) error
	GetByID(ctx context.Context, id string) (*domain.IncomingWebhook, error)
	MarkProcessed(ctx context.Context, id string, status domain.WebhookStatus, processedAt time.Time) error
	ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error
	MarkDeadLettered(ctx context.Context, id string, retryCount int, lastError string) error
	GetDueForRetry(ctx context.Context, limit int) ([]domain.IncomingWebhook, error)
	ClearNextRetryAt(ctx context.Context, id string) error
	ListByEndpointInRange(ctx context.Context, endpointID string, from, to time.Time) ([]domain.IncomingWebhook, error)
}

type GormWebhookRepo struct {
	db *gorm.DB
}

func NewGormWebhookRepo(db *gorm.DB) *GormWebhookRepo {
	return &GormWebhookRepo{db: db}
}

func (r *GormWebhookRepo) Create(ctx context.Context, w *domain.IncomingWebhook) error {
	model := webhookModelFromDomain(w)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if w != nil {
		*w = *webhookModelToDomain(model)
	}
	return nil
}

func (r *GormWebhookRepo) GetByID(ctx context.Context, id string) (*domain.IncomingWebhook, error) {
	var model IncomingWebhookModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return webhookModelToDomain(&model), nil
}

func (r *GormWebhookRepo) MarkProcessed(ctx context.Context, id string, status domain.WebhookStatus, processedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&IncomingWebhookModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"processed_at":  processedAt,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormWebhookRepo) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&IncomingWebhookModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormWebhookRepo) MarkDeadLettered(ctx context.Context, id string, retryCount int, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&IncomingWebhookModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.WebhookStatusDeadLettered,
			"retry_count":   retryCount,
			"next_retry_at": nil,
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormWebhookRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.IncomingWebhook, error) {
	var models []IncomingWebhookModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", domain.WebhookStatusReceived, time.Now()).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	webhooks := make([]domain.IncomingWebhook, 0, len(models))
	for i := range models {
		webhooks = append(webhooks, *webhookModelToDomain(&models[i]))
	}
	return webhooks, nil
}

func (r *GormWebhookRepo) ClearNextRetryAt(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&IncomingWebhookModel{}).
		Where("id = ?", id).
		Update("next_retry_at", nil).Error
}

func (r *GormWebhookRepo) ListByEndpointInRange(ctx context.Context, endpointID string, from, to time.Time) ([]domain.IncomingWebhook, error) {
	var models []IncomingWebhookModel
	err := r.db.WithContext(ctx).
		Where("endpoint_id = ? AND created_at >= ? AND created_at <= ?", endpointID, from, to).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	webhooks := make([]domain.IncomingWebhook, 0, len(models))
	for i := range models {
		webhooks = append(webhooks, *webhookModelToDomain(&models[i]))
	}
	return webhooks, nil
}
