package sqlite

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// SponseeRepo provides sponsee persistence backed by SQLite.
type SponseeRepo struct {
	db *DB
}

// NewSponseeRepo creates a new sponsee repository.
func NewSponseeRepo(db *DB) *SponseeRepo {
	return &SponseeRepo{db: db}
}

type sponseeRow struct {
	Index          int64  `db:"sponsee_index"`
	IdentifierHash string `db:"identifier_hash"`
	Code           string `db:"code"`
	CreatedAt      string `db:"created_at"`
}

func (r sponseeRow) toDomain() *domain.Sponsee {
	return &domain.Sponsee{
		Index:          r.Index,
		Code:           r.Code,
		IdentifierHash: r.IdentifierHash,
		CreatedAt:      parseTimestamp(r.CreatedAt),
	}
}

// Create inserts a sponsee and returns it with its assigned index.
func (r *SponseeRepo) Create(ctx context.Context, s domain.Sponsee) (*domain.Sponsee, error) {
	query, args, err := builder().
		Insert("sponsees").
		Columns("identifier_hash", "code", "created_at").
		Values(s.IdentifierHash, s.Code, formatTimestamp(s.CreatedAt)).
		Suffix("RETURNING sponsee_index, identifier_hash, code, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert sponsee: %w", err)
	}

	var row sponseeRow
	if err := sqlscan.Get(ctx, r.db.querier(ctx), &row, query, args...); err != nil {
		return nil, mapError(err, "sponsee", 0)
	}
	return row.toDomain(), nil
}

// GetByIndex returns a sponsee by index.
func (r *SponseeRepo) GetByIndex(ctx context.Context, index int64) (*domain.Sponsee, error) {
	return r.getWhere(ctx, squirrel.Eq{"sponsee_index": index}, index)
}

// GetByHash returns the sponsee whose identifier digest equals hash.
func (r *SponseeRepo) GetByHash(ctx context.Context, hash string) (*domain.Sponsee, error) {
	return r.getWhere(ctx, squirrel.Eq{"identifier_hash": hash}, 0)
}

func (r *SponseeRepo) getWhere(ctx context.Context, where squirrel.Eq, id int64) (*domain.Sponsee, error) {
	query, args, err := builder().
		Select("sponsee_index", "identifier_hash", "code", "created_at").
		From("sponsees").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sponsee: %w", err)
	}

	var row sponseeRow
	if err := sqlscan.Get(ctx, r.db.querier(ctx), &row, query, args...); err != nil {
		return nil, mapError(err, "sponsee", id)
	}
	return row.toDomain(), nil
}
