package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventType тип события вебхука Square
type WebhookEventType string

const (
	WebhookEventTypePaymentCreated      WebhookEventType = "payment.created"
	WebhookEventTypePaymentUpdated      WebhookEventType = "payment.updated"
	WebhookEventTypeSubscriptionCreated WebhookEventType = "subscription.created"
	WebhookEventTypeSubscriptionUpdated WebhookEventType = "subscription.updated"
)

// IsPayment проверяет, относится ли событие к платежам
func (t WebhookEventType) IsPayment() bool {
	return t == WebhookEventTypePaymentCreated || t == WebhookEventTypePaymentUpdated
}

// IsSubscription проверяет, относится ли событие к подпискам
func (t WebhookEventType) IsSubscription() bool {
	return t == WebhookEventTypeSubscriptionCreated || t == WebhookEventTypeSubscriptionUpdated
}

// WebhookEventStatus статус обработки события
type WebhookEventStatus string

const (
	WebhookEventStatusPending   WebhookEventStatus = "pending"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

// ProviderSquare имя провайдера в журнале вебхуков
const ProviderSquare = "square"

// WebhookEvent запись журнала входящих вебхуков
type WebhookEvent struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	Provider        string             `json:"provider" db:"provider"`
	ProviderEventID string             `json:"provider_event_id" db:"provider_event_id"`
	EventType       string             `json:"event_type" db:"event_type"`
	Payload         []byte             `json:"payload" db:"payload"`
	SignatureValid  bool               `json:"signature_valid" db:"signature_valid"`
	Status          WebhookEventStatus `json:"status" db:"status"`
	AttemptCount    int                `json:"attempt_count" db:"attempt_count"`
	ProcessingError *string            `json:"processing_error,omitempty" db:"processing_error"`
	ProcessedAt     *time.Time         `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// IsProcessed возвращает true, если событие уже успешно применено
func (e WebhookEvent) IsProcessed() bool {
	return e.Status == WebhookEventStatusProcessed
}
