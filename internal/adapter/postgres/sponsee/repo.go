// Package sponsee implements the sponsee registry storage using PostgreSQL.
package sponsee

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/lettertrack/internal/adapter/postgres"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

// Repo provides sponsee persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new sponsee repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

type sponseeRow struct {
	Index          int64     `db:"sponsee_index"`
	IdentifierHash string    `db:"identifier_hash"`
	Code           string    `db:"code"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r sponseeRow) toDomain() *domain.Sponsee {
	return &domain.Sponsee{
		Index:          r.Index,
		Code:           r.Code,
		IdentifierHash: r.IdentifierHash,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

// Create inserts a sponsee and returns it with its assigned index.
// A duplicate identifier hash yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, s domain.Sponsee) (*domain.Sponsee, error) {
	query, args, err := postgres.Builder().
		Insert("sponsees").
		Columns("identifier_hash", "code", "created_at").
		Values(s.IdentifierHash, s.Code, s.CreatedAt.UTC()).
		Suffix("RETURNING sponsee_index, identifier_hash, code, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert sponsee: %w", err)
	}

	var row sponseeRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.q), &row, query, args...); err != nil {
		return nil, postgres.MapError(err, "sponsee", 0)
	}
	return row.toDomain(), nil
}

// GetByIndex returns a sponsee by index.
func (r *Repo) GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error) {
	return r.getWhere(ctx, squirrel.Eq{"sponsee_index": index}, index)
}

// GetByHash returns the sponsee whose identifier digest equals hash.
func (r *Repo) GetByHash(ctx context.Context, hash string) (*domain.Sponsee, error) {
	return r.getWhere(ctx, squirrel.Eq{"identifier_hash": hash}, 0)
}

func (r *Repo) getWhere(ctx context.Context, where squirrel.Eq, id int64) (*domain.Sponsee, error) {
	query, args, err := postgres.Builder().
		Select("sponsee_index", "identifier_hash", "code", "created_at").
		From("sponsees").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sponsee: %w", err)
	}

	var row sponseeRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.q), &row, query, args...); err != nil {
		return nil, postgres.MapError(err, "sponsee", id)
	}
	return row.toDomain(), nil
}
