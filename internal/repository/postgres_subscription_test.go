package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

type fakeQuerier struct {
	execSQL  string
	execArgs []any
	execTag  pgconn.CommandTag
	execErr  error
	row      pgx.Row
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return f.execTag, f.execErr
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return f.row
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestBuildUpdateQuery(t *testing.T) {
	t.Run("with expires_at", func(t *testing.T) {
		upd := domain.PremiumActivation(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		query, args := buildUpdateQuery("u1", upd)

		assert.Equal(t, "UPDATE subscriptions SET tier = $1, status = $2, expires_at = $3 WHERE user_id = $4", query)
		assert.Equal(t, []any{"premium", "active", *upd.ExpiresAt, "u1"}, args)
	})

	t.Run("status only", func(t *testing.T) {
		query, args := buildUpdateQuery("u1", domain.MapProviderSubscriptionStatus("PAUSED"))

		assert.Equal(t, "UPDATE subscriptions SET tier = $1, status = $2 WHERE user_id = $3", query)
		assert.Equal(t, []any{"free", "expired", "u1"}, args)
	})
}

func TestPostgresStore_UpdateByUserID(t *testing.T) {
	db := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 2")}
	store := NewPostgresSubscriptionStore(db, logger.NewNop())

	rows, err := store.UpdateByUserID(context.Background(), "u1", domain.MapProviderSubscriptionStatus("ACTIVE"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	assert.Contains(t, db.execSQL, "WHERE user_id = $3")
}

func TestPostgresStore_InvalidUUIDMatchesNothing(t *testing.T) {
	db := &fakeQuerier{execErr: &pgconn.PgError{Code: pgInvalidTextRepresentation, Message: "invalid input syntax for type uuid"}}
	store := NewPostgresSubscriptionStore(db, logger.NewNop())

	rows, err := store.UpdateByUserID(context.Background(), "not-a-uuid", domain.MapProviderSubscriptionStatus("ACTIVE"))
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestPostgresStore_ExecErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewPostgresSubscriptionStore(&fakeQuerier{execErr: boom}, logger.NewNop())

	_, err := store.UpdateByUserID(context.Background(), "u1", domain.MapProviderSubscriptionStatus("ACTIVE"))
	assert.ErrorIs(t, err, boom)
}

func TestPostgresStore_GetByUserID_NotFound(t *testing.T) {
	store := NewPostgresSubscriptionStore(&fakeQuerier{row: errRow{err: pgx.ErrNoRows}}, logger.NewNop())

	_, err := store.GetByUserID(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
