package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ditch-app/billing-service/migrations"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// Runner применяет встроенные миграции к базе
type Runner struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// DatabaseURL переводит postgres:// DSN в схему драйвера pgx/v5 (pgx5://)
func DatabaseURL(dsn string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", fmt.Errorf("migrate: DATABASE_DSN must be a postgres:// URL")
}

// NewRunner создает Runner поверх встроенного источника миграций
func NewRunner(dsn string, log *logger.Logger) (*Runner, error) {
	dbURL, err := DatabaseURL(dsn)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to initialize: %w", err)
	}
	return &Runner{m: m, log: log}, nil
}

// Up применяет все ожидающие миграции
func (r *Runner) Up() error {
	err := r.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Infow("No migrations to apply, database is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: up failed: %w", err)
	}
	r.log.Infow("Migrations applied successfully")
	return nil
}

// Down откатывает последнюю миграцию
func (r *Runner) Down() error {
	if err := r.m.Steps(-1); err != nil {
		return fmt.Errorf("migrate: down failed: %w", err)
	}
	r.log.Infow("Last migration rolled back")
	return nil
}

// Version возвращает текущую версию схемы
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close освобождает ресурсы источника и базы
func (r *Runner) Close() {
	if sourceErr, dbErr := r.m.Close(); sourceErr != nil || dbErr != nil {
		r.log.Warnw("Failed to close migration resources", "sourceError", sourceErr, "dbError", dbErr)
	}
}
