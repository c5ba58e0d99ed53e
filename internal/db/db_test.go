package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// Требует базу с примененными миграциями: TEST_DATABASE_DSN=postgres://...
func newTestClient(t *testing.T) *DBClient {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	client, err := NewDBClient(context.Background(), dsn, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDBClient_WebhookLedger(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	event := &domain.WebhookEvent{
		Provider:        domain.ProviderSquare,
		ProviderEventID: "test-" + uuid.NewString(),
		EventType:       "payment.updated",
		Payload:         []byte(`{"type":"payment.updated"}`),
		SignatureValid:  true,
	}
	t.Cleanup(func() {
		_, _ = client.DB().ExecContext(context.Background(), "DELETE FROM webhook_events WHERE provider_event_id = $1", event.ProviderEventID)
	})

	stored, inserted, err := client.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, domain.WebhookEventStatusPending, stored.Status)

	require.NoError(t, client.MarkFailed(ctx, stored.ID, "boom"))

	again, inserted, err := client.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, domain.WebhookEventStatusFailed, again.Status)
	assert.Equal(t, 2, again.AttemptCount)

	require.NoError(t, client.MarkProcessed(ctx, stored.ID))
	assert.ErrorIs(t, client.MarkProcessed(ctx, uuid.New()), repository.ErrNotFound)
}
