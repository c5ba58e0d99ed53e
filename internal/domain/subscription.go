package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier уровень подписки
type SubscriptionTier string

const (
	SubscriptionTierFree     SubscriptionTier = "free"
	SubscriptionTierPremium  SubscriptionTier = "premium"
	SubscriptionTierLifetime SubscriptionTier = "lifetime"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Статусы подписки, которые присылает Square
const (
	ProviderSubscriptionActive   = "ACTIVE"
	ProviderSubscriptionCanceled = "CANCELED"
)

// PremiumPeriodMonths срок премиума, выдаваемого после оплаты
const PremiumPeriodMonths = 1

// Subscription строка таблицы subscriptions
type Subscription struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	UserID    string             `json:"user_id" db:"user_id"`
	Tier      SubscriptionTier   `json:"tier" db:"tier"`
	Status    SubscriptionStatus `json:"status" db:"status"`
	StartedAt time.Time          `json:"started_at" db:"started_at"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// IsEntitled возвращает true, если подписка дает доступ к премиум-функциям
func (s Subscription) IsEntitled() bool {
	return s.Status == SubscriptionStatusActive && s.Tier != SubscriptionTierFree
}

// SubscriptionUpdate частичное обновление подписки.
// ExpiresAt == nil означает "не трогать expires_at".
type SubscriptionUpdate struct {
	Tier      SubscriptionTier   `json:"tier"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

// PremiumActivation переход после завершенного платежа: premium/active на один календарный месяц
func PremiumActivation(now time.Time) SubscriptionUpdate {
	expiresAt := now.AddDate(0, PremiumPeriodMonths, 0)
	return SubscriptionUpdate{
		Tier:      SubscriptionTierPremium,
		Status:    SubscriptionStatusActive,
		ExpiresAt: &expiresAt,
	}
}

// MapProviderSubscriptionStatus переводит статус подписки Square в пару (status, tier).
// ACTIVE -> active/premium, CANCELED -> cancelled/free, все остальное -> expired/free.
func MapProviderSubscriptionStatus(providerStatus string) SubscriptionUpdate {
	switch providerStatus {
	case ProviderSubscriptionActive:
		return SubscriptionUpdate{Tier: SubscriptionTierPremium, Status: SubscriptionStatusActive}
	case ProviderSubscriptionCanceled:
		return SubscriptionUpdate{Tier: SubscriptionTierFree, Status: SubscriptionStatusCancelled}
	default:
		return SubscriptionUpdate{Tier: SubscriptionTierFree, Status: SubscriptionStatusExpired}
	}
}

// SubscriptionChangedEvent событие об изменении подписки, публикуется в Kafka
type SubscriptionChangedEvent struct {
	UserID          string             `json:"user_id"`
	Tier            SubscriptionTier   `json:"tier"`
	Status          SubscriptionStatus `json:"status"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	SourceEventType string             `json:"source_event_type"`
	SourceEventID   string             `json:"source_event_id,omitempty"`
	OccurredAt      time.Time          `json:"occurred_at"`
}
