package persistence

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pccbooth/payment-gateway/internal/config"
)

// RunMigrations applies all pending schema migrations from the configured
// migrations directory. A database that is already up to date is not an error.
func RunMigrations(cfg *config.DatabaseConfig, logger *slog.Logger) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.ConnString())
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return nil
}
