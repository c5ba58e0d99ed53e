package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// InMemorySubscriptionStore хранилище подписок в памяти (локальная разработка и тесты)
type InMemorySubscriptionStore struct {
	subscriptions map[string][]domain.Subscription
	mutex         sync.RWMutex
	log           *logger.Logger
}

// NewInMemorySubscriptionStore создает новое хранилище подписок в памяти
func NewInMemorySubscriptionStore(log *logger.Logger) *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subscriptions: make(map[string][]domain.Subscription),
		log:           log,
	}
}

// CreateFree создает строку free/active для пользователя, как это делает триггер на profiles
func (r *InMemorySubscriptionStore) CreateFree(_ context.Context, userID string) domain.Subscription {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now().UTC()
	sub := domain.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Tier:      domain.SubscriptionTierFree,
		Status:    domain.SubscriptionStatusActive,
		StartedAt: now,
		CreatedAt: now,
	}
	r.subscriptions[userID] = append(r.subscriptions[userID], sub)
	return sub
}

// UpdateByUserID обновляет все подписки пользователя
func (r *InMemorySubscriptionStore) UpdateByUserID(_ context.Context, userID string, upd domain.SubscriptionUpdate) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	subs := r.subscriptions[userID]
	for i := range subs {
		subs[i].Tier = upd.Tier
		subs[i].Status = upd.Status
		if upd.ExpiresAt != nil {
			expiresAt := *upd.ExpiresAt
			subs[i].ExpiresAt = &expiresAt
		}
	}

	r.log.Debugw("In-memory subscriptions updated", "userID", userID, "rows", len(subs))
	return int64(len(subs)), nil
}

// GetByUserID возвращает самую свежую подписку пользователя
func (r *InMemorySubscriptionStore) GetByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	subs := r.subscriptions[userID]
	if len(subs) == 0 {
		return nil, ErrNotFound
	}

	sorted := make([]domain.Subscription, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	latest := sorted[0]
	return &latest, nil
}

// All возвращает копию всех строк пользователя
func (r *InMemorySubscriptionStore) All(userID string) []domain.Subscription {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]domain.Subscription, len(r.subscriptions[userID]))
	copy(out, r.subscriptions[userID])
	return out
}
