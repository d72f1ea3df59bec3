package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/lettertrack/migrations"
)

// Migrate applies the embedded goose migrations. A file lock next to the
// database keeps two processes (server and CLI) from migrating at once.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if d.path != ":memory:" {
		lock := flock.New(d.path + ".migrate.lock")
		if err := lock.Lock(); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() { _ = lock.Unlock() }()
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, d.db, migrations.SQLite())
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied",
			slog.String("engine", "sqlite"),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}
