package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// DBClient представляет клиент для работы с базой данных через sqlx.
type DBClient struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewDBClient создает новый экземпляр DBClient.
func NewDBClient(ctx context.Context, dsn string, log *logger.Logger) (*DBClient, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		log.Errorw("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(10 * time.Minute)

	return &DBClient{db: db, log: log}, nil
}

// NewDBClientFromDB оборачивает уже открытое подключение
func NewDBClientFromDB(db *sqlx.DB, log *logger.Logger) *DBClient {
	return &DBClient{db: db, log: log}
}

// DB возвращает подключение sqlx
func (dc *DBClient) DB() *sqlx.DB {
	return dc.db
}

// Close закрывает соединение с базой данных.
func (dc *DBClient) Close() error {
	if err := dc.db.Close(); err != nil {
		dc.log.Errorw("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

type webhookEventRow struct {
	domain.WebhookEvent
	Inserted bool `db:"inserted"`
}

// CreateIfNotExists сохраняет событие вебхука. Повторная доставка увеличивает attempt_count.
func (dc *DBClient) CreateIfNotExists(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error) {
	const query = `
        INSERT INTO webhook_events (provider, provider_event_id, event_type, payload, signature_valid, status, attempt_count)
        VALUES ($1, $2, $3, $4, $5, 'pending', 1)
        ON CONFLICT (provider, provider_event_id) DO UPDATE SET
            attempt_count = webhook_events.attempt_count + 1,
            updated_at = now()
        RETURNING id, provider, provider_event_id, event_type, payload, signature_valid, status,
                  attempt_count, processing_error, processed_at, created_at, updated_at,
                  (xmax = 0) AS inserted`

	var row webhookEventRow
	err := dc.db.QueryRowxContext(ctx, query,
		event.Provider, event.ProviderEventID, event.EventType, string(event.Payload), event.SignatureValid,
	).StructScan(&row)
	if err != nil {
		dc.log.Errorw("Failed to record webhook event", "error", err, "providerEventID", event.ProviderEventID)
		return nil, false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	dc.log.Debugw("Webhook event recorded", "providerEventID", row.ProviderEventID, "inserted", row.Inserted, "attempt", row.AttemptCount)
	return &row.WebhookEvent, row.Inserted, nil
}

// MarkProcessed отмечает событие как обработанное
func (dc *DBClient) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE webhook_events
        SET status = 'processed', processed_at = now(), processing_error = NULL, updated_at = now()
        WHERE id = $1`
	return dc.execOne(ctx, query, id)
}

// MarkFailed отмечает событие как завершившееся ошибкой
func (dc *DBClient) MarkFailed(ctx context.Context, id uuid.UUID, processingErr string) error {
	const query = `
        UPDATE webhook_events
        SET status = 'failed', processing_error = $2, updated_at = now()
        WHERE id = $1`
	return dc.execOne(ctx, query, id, processingErr)
}

func (dc *DBClient) execOne(ctx context.Context, query string, args ...any) error {
	res, err := dc.db.ExecContext(ctx, query, args...)
	if err != nil {
		dc.log.Errorw("Failed to update webhook event", "error", err)
		return fmt.Errorf("failed to update webhook event: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.WebhookEventLedger = (*DBClient)(nil)
