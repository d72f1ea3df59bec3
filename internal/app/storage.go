package app

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/heartmarshall/lettertrack/internal/adapter/memory"
	"github.com/heartmarshall/lettertrack/internal/adapter/postgres"
	auditrepo "github.com/heartmarshall/lettertrack/internal/adapter/postgres/audit"
	letterrepo "github.com/heartmarshall/lettertrack/internal/adapter/postgres/letter"
	sponseerepo "github.com/heartmarshall/lettertrack/internal/adapter/postgres/sponsee"
	"github.com/heartmarshall/lettertrack/internal/adapter/sqlite"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

// LetterRepo is the letter persistence surface every engine provides.
type LetterRepo interface {
	Create(ctx context.Context, l *domain.Letter) (*domain.Letter, error)
	Update(ctx context.Context, l *domain.Letter) error
	GetByID(ctx context.Context, id int64) (*domain.Letter, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Letter, error)
	List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
	StatusSummary(ctx context.Context) ([]domain.StatusCount, error)
}

// AuditRepo is the append-only audit log surface.
type AuditRepo interface {
	Append(ctx context.Context, entry domain.AuditEntry) (int64, error)
	Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error]
}

// SponseeRepo is the sponsee registry surface.
type SponseeRepo interface {
	Create(ctx context.Context, s domain.Sponsee) (*domain.Sponsee, error)
	GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error)
	GetByHash(ctx context.Context, hash string) (*domain.Sponsee, error)
}

// TxManager runs a function inside one storage transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Storage bundles the repositories of one engine.
type Storage struct {
	Driver   string
	Letters  LetterRepo
	Audit    AuditRepo
	Sponsees SponseeRepo
	Tx       TxManager

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the engine is reachable.
func (s *Storage) Ping(ctx context.Context) error { return s.ping(ctx) }

// CheckAuditLog reads one audit entry, proving the log table is reachable
// and readable with the current schema.
func (s *Storage) CheckAuditLog(ctx context.Context) error {
	for _, err := range s.Audit.Query(ctx, domain.AuditFilter{Limit: 1}) {
		if err != nil {
			return err
		}
		break
	}
	return nil
}

// Close releases the engine's connections.
func (s *Storage) Close() { s.close() }

// OpenStorage opens the configured engine. Pending migrations are applied
// first unless cfg.Storage.SkipMigrate is set; migrate forces them.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Storage, error) {
	driver := cfg.Storage.NormalizedDriver()
	migrate = migrate || !cfg.Storage.SkipMigrate

	switch driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Storage{
			Driver:   driver,
			Letters:  letterrepo.New(pool),
			Audit:    auditrepo.New(pool),
			Sponsees: sponseerepo.New(pool),
			Tx:       postgres.NewTxManager(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." && cfg.Storage.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.Migrate(ctx, logger); err != nil {
				db.Close() //nolint:errcheck
				return nil, err
			}
		}
		return &Storage{
			Driver:   driver,
			Letters:  sqlite.NewLetterRepo(db),
			Audit:    sqlite.NewAuditRepo(db),
			Sponsees: sqlite.NewSponseeRepo(db),
			Tx:       sqlite.NewTxManager(db),
			ping:     db.Ping,
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("close sqlite", slog.String("error", err.Error()))
				}
			},
		}, nil

	case config.DriverMemory:
		db := memory.New()
		return &Storage{
			Driver:   driver,
			Letters:  memory.NewLetterRepo(db),
			Audit:    memory.NewAuditRepo(db),
			Sponsees: memory.NewSponseeRepo(db),
			Tx:       memory.NewTxManager(db),
			ping:     db.Ping,
			close:    func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
