package repository

import (
	"encoding/json"
	"time"

	"github.com/kursadbilgin/hookrelay/internal/domain"
)

// EndpointModel is the persistence model for the endpoints table.
type EndpointModel struct {
	ID                string                  `gorm:"type:uuid;primaryKey"`
	Name              string                  `gorm:"type:varchar(255);not null"`
	URL               string                  `gorm:"type:text;not null"`
	Method            string                  `gorm:"type:varchar(10);not null;default:POST"`
	Secret            *string                 `gorm:"type:varchar(255)"`
	Active            bool                    `gorm:"not null;default:true"`
	AllowedEvents     []string                `gorm:"serializer:json;type:jsonb"`
	Headers           map[string]string       `gorm:"serializer:json;type:jsonb"`
	TimeoutSeconds    int                     `gorm:"not null;default:30"`
	RetryAttempts     int                     `gorm:"not null;default:3"`
	RetryDelaySeconds int                     `gorm:"not null;default:60"`
	Filters           []domain.Filter         `gorm:"serializer:json;type:jsonb"`
	Transformations   []domain.Transformation `gorm:"serializer:json;type:jsonb"`
	RateLimit         domain.RateLimit        `gorm:"serializer:json;type:jsonb"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (EndpointModel) TableName() string {
	return "endpoints"
}

// IncomingWebhookModel is the persistence model for incoming_webhooks.
type IncomingWebhookModel struct {
	ID            string               `gorm:"type:uuid;primaryKey"`
	EndpointID    string               `gorm:"type:uuid;not null"`
	Event         string               `gorm:"type:varchar(255);not null"`
	Payload       json.RawMessage      `gorm:"type:jsonb;not null"`
	Headers       map[string]string    `gorm:"serializer:json;type:jsonb"`
	SourceAddress string               `gorm:"type:varchar(64)"`
	UserAgent     string               `gorm:"type:text"`
	Signature     *string              `gorm:"type:text"`
	Verified      bool                 `gorm:"not null;default:false"`
	Status        domain.WebhookStatus `gorm:"type:varchar(20);not null"`
	RetryCount    int                  `gorm:"not null;default:0"`
	NextRetryAt   *time.Time
	LastError     *string `gorm:"type:text"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (IncomingWebhookModel) TableName() string {
	return "incoming_webhooks"
}

// DeliveryModel is the persistence model for deliveries.
type DeliveryModel struct {
	ID             string                `gorm:"type:uuid;primaryKey"`
	WebhookID      *string               `gorm:"type:uuid"`
	SubscriptionID *string               `gorm:"type:uuid"`
	TargetURL      string                `gorm:"type:text;not null"`
	Event          string                `gorm:"type:varchar(255);not null"`
	Payload        json.RawMessage       `gorm:"type:jsonb;not null"`
	Headers        map[string]string     `gorm:"serializer:json;type:jsonb"`
	Status         domain.DeliveryStatus `gorm:"type:varchar(20);not null"`
	AttemptCount   int                   `gorm:"not null;default:0"`
	MaxAttempts    int                   `gorm:"not null;default:3"`
	LastStatusCode *int                  `gorm:"type:int"`
	LastResponse   *string               `gorm:"type:text"`
	LastError      *string               `gorm:"type:text"`
	NextAttemptAt  *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DeliveryModel) TableName() string {
	return "deliveries"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	DeliveryID     string  `gorm:"type:uuid;not null"`
	AttemptNumber  int     `gorm:"not null"`
	StatusCode     *int    `gorm:"type:int"`
	ResponseBody   *string `gorm:"type:text"`
	Error          *string `gorm:"type:text"`
	DurationMillis int64   `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// SubscriptionModel is the persistence model for subscriptions.
type SubscriptionModel struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	UserID      string          `gorm:"type:varchar(255);not null"`
	EndpointURL string          `gorm:"type:text;not null"`
	Events      []string        `gorm:"serializer:json;type:jsonb;not null"`
	Secret      string          `gorm:"type:varchar(255);not null"`
	Active      bool            `gorm:"not null;default:true"`
	Filters     []domain.Filter `gorm:"serializer:json;type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

func endpointModelFromDomain(e *domain.Endpoint) *EndpointModel {
	if e == nil {
		return nil
	}

	return &EndpointModel{
		ID:                e.ID,
		Name:              e.Name,
		URL:               e.URL,
		Method:            e.Method,
		Secret:            e.Secret,
		Active:            e.Active,
		AllowedEvents:     e.AllowedEvents,
		Headers:           e.Headers,
		TimeoutSeconds:    int(e.Timeout / time.Second),
		RetryAttempts:     e.RetryAttempts,
		RetryDelaySeconds: int(e.RetryDelay / time.Second),
		Filters:           e.Filters,
		Transformations:   e.Transformations,
		RateLimit:         e.RateLimit,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func endpointModelToDomain(m *EndpointModel) *domain.Endpoint {
	if m == nil {
		return nil
	}

	return &domain.Endpoint{
		ID:              m.ID,
		Name:            m.Name,
		URL:             m.URL,
		Method:          m.Method,
		Secret:          m.Secret,
		Active:          m.Active,
		AllowedEvents:   m.AllowedEvents,
		Headers:         m.Headers,
		Timeout:         time.Duration(m.TimeoutSeconds) * time.Second,
		RetryAttempts:   m.RetryAttempts,
		RetryDelay:      time.Duration(m.RetryDelaySeconds) * time.Second,
		Filters:         m.Filters,
		Transformations: m.Transformations,
		RateLimit:       m.RateLimit,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func webhookModelFromDomain(w *domain.IncomingWebhook) *IncomingWebhookModel {
	if w == nil {
		return nil
	}

	return &IncomingWebhookModel{
		ID:            w.ID,
		EndpointID:    w.EndpointID,
		Event:         w.Event,
		Payload:       w.Payload,
		Headers:       w.Headers,
		SourceAddress: w.SourceAddress,
		UserAgent:     w.UserAgent,
		Signature:     w.Signature,
		Verified:      w.Verified,
		Status:        w.Status,
		RetryCount:    w.RetryCount,
		NextRetryAt:   w.NextRetryAt,
		LastError:     w.LastError,
		ProcessedAt:   w.ProcessedAt,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func webhookModelToDomain(m *IncomingWebhookModel) *domain.IncomingWebhook {
	if m == nil {
		return nil
	}

	return &domain.IncomingWebhook{
		ID:            m.ID,
		EndpointID:    m.EndpointID,
		Event:         m.Event,
		Payload:       m.Payload,
		Headers:       m.Headers,
		SourceAddress: m.SourceAddress,
		UserAgent:     m.UserAgent,
		Signature:     m.Signature,
		Verified:      m.Verified,
		Status:        m.Status,
		RetryCount:    m.RetryCount,
		NextRetryAt:   m.NextRetryAt,
		LastError:     m.LastError,
		ProcessedAt:   m.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func deliveryModelFromDomain(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}

	return &DeliveryModel{
		ID:             d.ID,
		WebhookID:      d.WebhookID,
		SubscriptionID: d.SubscriptionID,
		TargetURL:      d.TargetURL,
		Event:          d.Event,
		Payload:        d.Payload,
		Headers:        d.Headers,
		Status:         d.Status,
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		LastStatusCode: d.LastStatusCode,
		LastResponse:   d.LastResponse,
		LastError:      d.LastError,
		NextAttemptAt:  d.NextAttemptAt,
		DeliveredAt:    d.DeliveredAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:             m.ID,
		WebhookID:      m.WebhookID,
		SubscriptionID: m.SubscriptionID,
		TargetURL:      m.TargetURL,
		Event:          m.Event,
		Payload:        m.Payload,
		Headers:        m.Headers,
		Status:         m.Status,
		AttemptCount:   m.AttemptCount,
		MaxAttempts:    m.MaxAttempts,
		LastStatusCode: m.LastStatusCode,
		LastResponse:   m.LastResponse,
		LastError:      m.LastError,
		NextAttemptAt:  m.NextAttemptAt,
		DeliveredAt:    m.DeliveredAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:             a.ID,
		DeliveryID:     a.DeliveryID,
		AttemptNumber:  a.AttemptNumber,
		StatusCode:     a.StatusCode,
		ResponseBody:   a.ResponseBody,
		Error:          a.Error,
		DurationMillis: a.DurationMillis,
		CreatedAt:      a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:             m.ID,
		DeliveryID:     m.DeliveryID,
		AttemptNumber:  m.AttemptNumber,
		StatusCode:     m.StatusCode,
		ResponseBody:   m.ResponseBody,
		Error:          m.Error,
		DurationMillis: m.DurationMillis,
		CreatedAt:      m.CreatedAt,
	}
}

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}

	return &SubscriptionModel{
		ID:          s.ID,
		UserID:      s.UserID,
		EndpointURL: s.EndpointURL,
		Events:      s.Events,
		Secret:      s.Secret,
		Active:      s.Active,
		Filters:     s.Filters,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	return &domain.Subscription{
		ID:          m.ID,
		UserID:      m.UserID,
		EndpointURL: m.EndpointURL,
		Events:      m.Events,
		Secret:      m.Secret,
		Active:      m.Active,
		Filters:     m.Filters,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
