package memory

import (
	"context"
	"fmt"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// SponseeRepo stores sponsees in a DB.
type SponseeRepo struct {
	db *DB
}

// NewSponseeRepo creates a new sponsee repository.
func NewSponseeRepo(db *DB) *SponseeRepo {
	return &SponseeRepo{db: db}
}

// Create stores s under the next index. Digests are unique.
func (r *SponseeRepo) Create(ctx context.Context, s domain.Sponsee) (*domain.Sponsee, error) {
	var out domain.Sponsee
	err := r.db.write(ctx, func() error {
		for _, existing := range r.db.sponsees {
			if existing.IdentifierHash == s.IdentifierHash {
				return fmt.Errorf("sponsee %d: %w", existing.Index, domain.ErrAlreadyExists)
			}
		}
		r.db.nextSponseeID++
		s.Index = r.db.nextSponseeID
		s.CreatedAt = s.CreatedAt.UTC()
		r.db.sponsees[s.Index] = s
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIndex returns a sponsee by index.
func (r *SponseeRepo) GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error) {
	var (
		s  domain.Sponsee
		ok bool
	)
	r.db.read(ctx, func() { s, ok = r.db.sponsees[index] })
	if !ok {
		return nil, fmt.Errorf("sponsee %d: %w", index, domain.ErrNotFound)
	}
	return &s, nil
}

// GetByHash returns the sponsee whose identifier digest equals hash.
func (r *SponseeRepo) GetByHash(ctx context.Context, hash string) (*domain.Sponsee, error) {
	var (
		s  domain.Sponsee
		ok bool
	)
	r.db.read(ctx, func() {
		for _, candidate := range r.db.sponsees {
			if candidate.IdentifierHash == hash {
				s, ok = candidate, true
				return
			}
		}
	})
	if !ok {
		return nil, fmt.Errorf("sponsee: %w", domain.ErrNotFound)
	}
	return &s, nil
}
