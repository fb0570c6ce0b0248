package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	// LockForDelivering returns the delivery when it is still pending, nil when
	// it reached a terminal state in the meantime.
	LockForDelivering(ctx context.Context, id string) (*domain.Delivery, error)
	MarkDelivered(ctx context.Context, id string, attemptCount int, statusCode int, responseBody string, deliveredAt time.Time) error
	ScheduleRetry(ctx context.Context, id string, attemptCount int, nextAttemptAt time.Time, statusCode *int, lastError string) error
	MarkFailed(ctx context.Context, id string, attemptCount int, statusCode *int, lastError string) error
	Cancel(ctx context.Context, id string) error
	GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error)
	ClearNextAttemptAt(ctx context.Context, id string) error
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	model := deliveryModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) LockForDelivering(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if model.Status.IsTerminal() {
		return nil, nil
	}

	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) MarkDelivered(ctx context.Context, id string, attemptCount int, statusCode int, responseBody string, deliveredAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           domain.DeliveryStatusDelivered,
			"attempt_count":    attemptCount,
			"last_status_code": statusCode,
			"last_response":    responseBody,
			"next_attempt_at":  nil,
			"delivered_at":     deliveredAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeliveryRepo) ScheduleRetry(ctx context.Context, id string, attemptCount int, nextAttemptAt time.Time, statusCode *int, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count":    attemptCount,
			"next_attempt_at":  nextAttemptAt,
			"last_status_code": statusCode,
			"last_error":       lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeliveryRepo) MarkFailed(ctx context.Context, id string, attemptCount int, statusCode *int, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           domain.DeliveryStatusFailed,
			"attempt_count":    attemptCount,
			"next_attempt_at":  nil,
			"last_status_code": statusCode,
			"last_error":       lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormDeliveryRepo) Cancel(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ? AND status = ?", id, domain.DeliveryStatusPending).
		Updates(map[string]any{
			"status":          domain.DeliveryStatusCanceled,
			"next_attempt_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormDeliveryRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.Delivery, error) {
	var models []DeliveryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.DeliveryStatusPending, time.Now()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]domain.Delivery, 0, len(models))
	for i := range models {
		deliveries = append(deliveries, *deliveryModelToDomain(&models[i]))
	}
	return deliveries, nil
}

func (r *GormDeliveryRepo) ClearNextAttemptAt(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&DeliveryModel{}).
		Where("id = ?", id).
		Update("next_attempt_at", nil).Error
}
