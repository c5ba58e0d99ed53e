package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

type countingStore struct {
	SubscriptionStore
	gets int
}

func (s *countingStore) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.gets++
	return s.SubscriptionStore.GetByUserID(ctx, userID)
}

func newCachedStore(t *testing.T) (*CachedSubscriptionStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNop()
	inner := &countingStore{SubscriptionStore: NewInMemorySubscriptionStore(log)}
	inner.SubscriptionStore.(*InMemorySubscriptionStore).CreateFree(context.Background(), "u1")

	return NewCachedSubscriptionStore(inner, NewRedisCacheRepository(client, log), log), inner, mr
}

func TestCachedSubscriptionStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store, inner, mr := newCachedStore(t)

	first, err := store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	second, err := store.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, first.Tier, second.Tier)
	assert.True(t, mr.Exists(userSubscriptionKey("u1")))
}

func TestCachedSubscriptionStore_UpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store, inner, mr := newCachedStore(t)

	_, err := store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, mr.Exists(userSubscriptionKey("u1")))

	_, err = store.UpdateByUserID(ctx, "u1", domain.MapProviderSubscriptionStatus("ACTIVE"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(userSubscriptionKey("u1")))

	sub, err := store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionTierPremium, sub.Tier)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedSubscriptionStore_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	store, inner, mr := newCachedStore(t)
	mr.SetError("LOADING redis is loading")

	sub, err := store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionTierFree, sub.Tier)
	assert.Equal(t, 1, inner.gets)
}

func TestCachedSubscriptionStore_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	store, _, mr := newCachedStore(t)

	_, err := store.GetByUserID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(userSubscriptionKey("ghost")))
}
