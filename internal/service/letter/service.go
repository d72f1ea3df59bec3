// Package letter is the single mutation gateway for letter records. Every
// accepted change is written together with its audit entries in one
// transaction.
package letter

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type letterRepo interface {
	Create(ctx context.Context, l *domain.Letter) (*domain.Letter, error)
	Update(ctx context.Context, l *domain.Letter) error
	GetByID(ctx context.Context, id int64) (*domain.Letter, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Letter, error)
	List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
}

type auditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) (int64, error)
}

type sponseeRepo interface {
	GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the letter record store.
type Service struct {
	log      *slog.Logger
	letters  letterRepo
	audit    auditLog
	sponsees sponseeRepo
	tx       txManager
	cfg      config.LettersConfig
	clock    func() time.Time
}

// NewService creates a new letter Service.
func NewService(
	logger *slog.Logger,
	letters letterRepo,
	audit auditLog,
	sponsees sponseeRepo,
	tx txManager,
	cfg config.LettersConfig,
) *Service {
	return &Service{
		log:      logger.With("service", "letter"),
		letters:  letters,
		audit:    audit,
		sponsees: sponsees,
		tx:       tx,
		cfg:      cfg,
		clock:    time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// wrapErr passes domain and context errors through and marks everything else
// as a persistence failure.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewPersistenceError(op, err)
}
