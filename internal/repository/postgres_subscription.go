package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// pgInvalidTextRepresentation код ошибки Postgres для значения, не приводимого к типу (например, не-UUID)
const pgInvalidTextRepresentation = "22P02"

// PgxQuerier подмножество методов pgxpool.Pool, которое нужно хранилищу
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSubscriptionStore реализует SubscriptionStore поверх pgxpool
type PostgresSubscriptionStore struct {
	db  PgxQuerier
	log *logger.Logger
}

// NewPostgresSubscriptionStore создает новый экземпляр хранилища для PostgreSQL.
func NewPostgresSubscriptionStore(db PgxQuerier, log *logger.Logger) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{
		db:  db,
		log: log,
	}
}

// buildUpdateQuery собирает UPDATE только по заданным полям
func buildUpdateQuery(userID string, upd domain.SubscriptionUpdate) (string, []any) {
	sets := []string{"tier = $1", "status = $2"}
	args := []any{string(upd.Tier), string(upd.Status)}
	if upd.ExpiresAt != nil {
		args = append(args, *upd.ExpiresAt)
		sets = append(sets, "expires_at = $"+strconv.Itoa(len(args)))
	}
	args = append(args, userID)

	query := "UPDATE subscriptions SET " + strings.Join(sets, ", ") +
		" WHERE user_id = $" + strconv.Itoa(len(args))
	return query, args
}

// UpdateByUserID обновляет все подписки пользователя одним запросом.
func (r *PostgresSubscriptionStore) UpdateByUserID(ctx context.Context, userID string, upd domain.SubscriptionUpdate) (int64, error) {
	query, args := buildUpdateQuery(userID, upd)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			r.log.Warnw("User id is not a valid UUID, nothing to update", "userID", userID)
			return 0, nil
		}
		r.log.Errorw("Failed to update subscription in DB", "error", err, "userID", userID)
		return 0, fmt.Errorf("repository: failed to update subscription: %w", err)
	}

	rows := tag.RowsAffected()
	r.log.Debugw("Successfully updated subscriptions in DB", "userID", userID, "rowsAffected", rows)
	return rows, nil
}

// GetByUserID возвращает самую свежую подписку пользователя.
func (r *PostgresSubscriptionStore) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	const query = `
        SELECT id, user_id::text, tier, status, started_at, expires_at, created_at
        FROM subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT 1`

	var (
		sub    domain.Subscription
		tier   string
		status string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID, &sub.UserID, &tier, &status, &sub.StartedAt, &sub.ExpiresAt, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return nil, ErrNotFound
		}
		r.log.Errorw("Failed to get subscription by user ID from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get subscription by user ID: %w", err)
	}
	sub.Tier = domain.SubscriptionTier(tier)
	sub.Status = domain.SubscriptionStatus(status)

	return &sub, nil
}

func isInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}
