package repository

import (
	"context"

	"github.com/ditch-app/billing-service/internal/domain"
)

// SubscriptionStore определяет методы для работы с хранилищем подписок.
type SubscriptionStore interface {
	// UpdateByUserID применяет частичное обновление ко всем строкам пользователя
	// и возвращает количество затронутых строк. Ноль строк - не ошибка.
	UpdateByUserID(ctx context.Context, userID string, upd domain.SubscriptionUpdate) (int64, error)

	// GetByUserID возвращает самую свежую подписку пользователя или ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
}
