package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kursadbilgin/hookrelay/internal/domain"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, s *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	GetActiveByEvent(ctx context.Context, event string) ([]domain.Subscription, error)
	Deactivate(ctx context.Context, id string) error
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) Create(ctx context.Context, s *domain.Subscription) error {
	model := subscriptionModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *subscriptionModelToDomain(model)
	}
	return nil
}

func (r *GormSubscriptionRepo) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriptionModelToDomain(&model), nil
}

func (r *GormSubscriptionRepo) GetActiveByEvent(ctx context.Context, event string) ([]domain.Subscription, error) {
	// events is a jsonb array; containment matches subscriptions whose event
	// set includes the event.
	needle, err := json.Marshal([]string{event})
	if err != nil {
		return nil, err
	}

	var models []SubscriptionModel
	err = r.db.WithContext(ctx).
		Where("active = ? AND events @> ?", true, string(needle)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subscriptions := make([]domain.Subscription, 0, len(models))
	for i := range models {
		subscriptions = append(subscriptions, *subscriptionModelToDomain(&models[i]))
	}
	return subscriptions, nil
}

func (r *GormSubscriptionRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
