package repository

import (
	"context"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// CachedSubscriptionStore реализует SubscriptionStore с кешированием чтения
type CachedSubscriptionStore struct {
	store SubscriptionStore
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedSubscriptionStore создает хранилище с кешированием
func NewCachedSubscriptionStore(store SubscriptionStore, cache *RedisCacheRepository, log *logger.Logger) *CachedSubscriptionStore {
	return &CachedSubscriptionStore{
		store: store,
		cache: cache,
		log:   log,
	}
}

// UpdateByUserID обновляет подписки в хранилище и сбрасывает кеш пользователя
func (r *CachedSubscriptionStore) UpdateByUserID(ctx context.Context, userID string, upd domain.SubscriptionUpdate) (int64, error) {
	rows, err := r.store.UpdateByUserID(ctx, userID, upd)
	if err != nil {
		return 0, err
	}

	if err := r.cache.InvalidateSubscription(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache after update", "error", err, "userID", userID)
	}
	return rows, nil
}

// GetByUserID возвращает подписку (сначала из кеша, потом из хранилища)
func (r *CachedSubscriptionStore) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	cached, err := r.cache.GetCachedSubscription(ctx, userID)
	if err != nil {
		// Продолжаем без кеша
		r.log.Warnw("Error getting subscription from cache", "error", err, "userID", userID)
	}
	if cached != nil {
		return cached, nil
	}

	sub, err := r.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheSubscription(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription after fetching", "error", err, "userID", userID)
	}
	return sub, nil
}
