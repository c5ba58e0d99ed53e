package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

func newSupabaseStore(t *testing.T, handler http.HandlerFunc) *SupabaseSubscriptionStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSupabaseSubscriptionStore(SupabaseConfig{URL: srv.URL + "/", ServiceRoleKey: "service-key"}, logger.NewNop())
}

func TestSupabaseStore_UpdateByUserID(t *testing.T) {
	expiresAt := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	var body map[string]any

	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/rest/v1/subscriptions", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	})

	rows, err := store.UpdateByUserID(context.Background(), "u1", domain.SubscriptionUpdate{
		Tier:      domain.SubscriptionTierPremium,
		Status:    domain.SubscriptionStatusActive,
		ExpiresAt: &expiresAt,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), rows)
	assert.Equal(t, "premium", body["tier"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "2024-02-15T10:00:00Z", body["expires_at"])
}

func TestSupabaseStore_PartialUpdateOmitsExpiresAt(t *testing.T) {
	var body map[string]any
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = w.Write([]byte(`[]`))
	})

	rows, err := store.UpdateByUserID(context.Background(), "u1", domain.MapProviderSubscriptionStatus("CANCELED"))
	require.NoError(t, err)

	assert.Zero(t, rows)
	assert.NotContains(t, body, "expires_at")
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "free", body["tier"])
}

func TestSupabaseStore_InvalidUUIDMatchesNothing(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"22P02","message":"invalid input syntax for type uuid: \"u1\""}`))
	})

	rows, err := store.UpdateByUserID(context.Background(), "u1", domain.MapProviderSubscriptionStatus("ACTIVE"))
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestSupabaseStore_ServerErrorIsReturned(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	})

	_, err := store.UpdateByUserID(context.Background(), "u1", domain.MapProviderSubscriptionStatus("ACTIVE"))
	assert.ErrorContains(t, err, "upstream down")
}

func TestSupabaseStore_GetByUserID(t *testing.T) {
	store := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		if r.URL.Query().Get("user_id") == "eq.missing" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{
			"id":"7f1c1b9e-3f0e-4b8e-9b7a-2d3c4e5f6a7b",
			"user_id":"u1",
			"tier":"premium",
			"status":"active",
			"started_at":"2024-01-01T00:00:00+00:00",
			"expires_at":null,
			"created_at":"2024-01-01T00:00:00+00:00"
		}]`))
	})

	sub, err := store.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionTierPremium, sub.Tier)
	assert.Nil(t, sub.ExpiresAt)
	assert.True(t, sub.IsEntitled())

	_, err = store.GetByUserID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
