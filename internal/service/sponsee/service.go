// Package sponsee resolves raw sponsee identifiers to opaque registry
// entries. Raw identifiers are never stored: the registry keeps a keyed
// BLAKE2b digest of the normalized identifier and a short display code
// derived from it.
package sponsee

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

type sponseeRepo interface {
	Create(ctx context.Context, s domain.Sponsee) (*domain.Sponsee, error)
	GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error)
	GetByHash(ctx context.Context, hash string) (*domain.Sponsee, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the sponsee registry.
type Service struct {
	log   *slog.Logger
	repo  sponseeRepo
	tx    txManager
	key   []byte
	clock func() time.Time
}

// NewService creates a new sponsee registry. The code secret keys the
// identifier digest; secrets longer than a BLAKE2b key are hashed down.
func NewService(logger *slog.Logger, repo sponseeRepo, tx txManager, cfg config.SponseeConfig) *Service {
	key := []byte(cfg.CodeSecret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Service{
		log:   logger.With("service", "sponsee"),
		repo:  repo,
		tx:    tx,
		key:   key,
		clock: time.Now,
	}
}

// ResolveOrCreate returns the sponsee registered for identifier, creating it
// on first sight. Calling it again with an equivalent identifier (case,
// spaces and hyphens ignored) returns the same sponsee.
func (s *Service) ResolveOrCreate(ctx context.Context, identifier string) (*domain.Sponsee, error) {
	normalized := domain.NormalizeIdentifier(identifier)
	if normalized == "" {
		return nil, domain.NewValidationError("identifier", "required")
	}
	hash, code, err := s.digest(normalized)
	if err != nil {
		return nil, err
	}

	var (
		out     *domain.Sponsee
		created bool
	)
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByHash(txCtx, hash)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		out, err = s.repo.Create(txCtx, domain.Sponsee{
			IdentifierHash: hash,
			Code:           code,
			CreatedAt:      s.clock().UTC(),
		})
		created = err == nil
		return err
	})
	if errors.Is(txErr, domain.ErrAlreadyExists) {
		// Another writer registered the same identifier first.
		return s.repo.GetByHash(ctx, hash)
	}
	if txErr != nil {
		return nil, txErr
	}

	if created {
		s.log.InfoContext(ctx, "sponsee registered",
			slog.Int64("sponsee_index", out.Index),
			slog.String("code", out.Code),
		)
	}
	return out, nil
}

// Get returns a sponsee by index.
func (s *Service) Get(ctx context.Context, index int64) (*domain.Sponsee, error) {
	return s.repo.GetByIndex(ctx, index)
}

// Exists reports whether index names a registered sponsee.
func (s *Service) Exists(ctx context.Context, index int64) (bool, error) {
	_, err := s.repo.GetByIndex(ctx, index)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Code returns the display code an identifier maps to.
func (s *Service) Code(identifier string) (string, error) {
	_, code, err := s.digest(domain.NormalizeIdentifier(identifier))
	return code, err
}

// digest returns the hex identifier hash and the LLLDDD display code.
func (s *Service) digest(normalized string) (string, string, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "", "", fmt.Errorf("sponsee digest: %w", err)
	}
	h.Write([]byte(normalized))
	sum := h.Sum(nil)

	code := make([]byte, 6)
	for i := range 3 {
		code[i] = 'A' + sum[i]%26
		code[3+i] = '0' + sum[3+i]%10
	}
	return hex.EncodeToString(sum), string(code), nil
}
