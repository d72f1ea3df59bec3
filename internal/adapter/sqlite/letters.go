package sqlite

import (
	"context"
	"fmt"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// LetterRepo provides letter persistence backed by SQLite.
type LetterRepo struct {
	db *DB
}

// NewLetterRepo creates a new letter repository.
func NewLetterRepo(db *DB) *LetterRepo {
	return &LetterRepo{db: db}
}

// Create inserts the letter and returns it with the assigned letter_id.
func (r *LetterRepo) Create(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	query, args, err := builder().
		Insert("letters").
		Columns(letterColumns[1:]...).
		Values(letterFromDomain(l).values()...).
		Suffix("RETURNING " + joinColumns(letterColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert letter: %w", err)
	}

	var out letterRow
	if err := sqlscan.Get(ctx, r.db.querier(ctx), &out, query, args...); err != nil {
		return nil, mapError(err, "letter", 0)
	}
	return out.toDomain(), nil
}

// Update writes every mutable column and updated_at of l.
func (r *LetterRepo) Update(ctx context.Context, l *domain.Letter) error {
	vals := letterFromDomain(l).values()
	set := make(map[string]any, len(letterColumns)-2)
	for i, col := range letterColumns[1:] {
		if col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	query, args, err := builder().
		Update("letters").
		SetMap(set).
		Where(squirrel.Eq{"letter_id": l.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update letter: %w", err)
	}

	res, err := r.db.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, "letter", l.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "letter", l.ID)
	}
	if n == 0 {
		return fmt.Errorf("letter %d: %w", l.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns a letter by id.
func (r *LetterRepo) GetByID(ctx context.Context, id int64) (*domain.Letter, error) {
	query, args, err := builder().
		Select(letterColumns...).
		From("letters").
		Where(squirrel.Eq{"letter_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select letter: %w", err)
	}

	var row letterRow
	if err := sqlscan.Get(ctx, r.db.querier(ctx), &row, query, args...); err != nil {
		return nil, mapError(err, "letter", id)
	}
	return row.toDomain(), nil
}

// GetForUpdate is GetByID: the single connection already serializes
// transactions, so no row lock is needed.
func (r *LetterRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Letter, error) {
	return r.GetByID(ctx, id)
}

// List streams letters matching filter ordered by letter_id.
func (r *LetterRepo) List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
	return func(yield func(*domain.Letter, error) bool) {
		query, args, err := listQuery(filter).ToSql()
		if err != nil {
			yield(nil, fmt.Errorf("build list letters: %w", err))
			return
		}

		rows, err := r.db.querier(ctx).QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, mapError(err, "letters", 0))
			return
		}
		defer rows.Close()

		scanner := sqlscan.NewRowScanner(rows)
		for rows.Next() {
			var row letterRow
			if err := scanner.Scan(&row); err != nil {
				yield(nil, mapError(err, "letters", 0))
				return
			}
			if !yield(row.toDomain(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, mapError(err, "letters", 0))
		}
	}
}

func listQuery(filter domain.LetterFilter) squirrel.SelectBuilder {
	b := builder().
		Select(letterColumns...).
		From("letters").
		Where(squirrel.Gt{"letter_id": filter.AfterID}).
		OrderBy("letter_id ASC")

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		b = b.Where(squirrel.Eq{"status": statuses})
	}
	if filter.SponseeIndex != nil {
		b = b.Where(squirrel.Eq{"sponsee_index": *filter.SponseeIndex})
	}
	if filter.DateField.IsDate() {
		col := filter.DateField.String()
		if filter.From != nil {
			b = b.Where(squirrel.GtOrEq{col: domain.FormatDate(*filter.From)})
		}
		if filter.To != nil {
			b = b.Where(squirrel.LtOrEq{col: domain.FormatDate(*filter.To)})
		}
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return b
}

// StatusSummary counts letters per status with the earliest and latest scan
// dates.
func (r *LetterRepo) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
	query, args, err := builder().
		Select("status", "COUNT(*) AS count", "MIN(date_scanned) AS earliest_scan", "MAX(date_scanned) AS latest_scan").
		From("letters").
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status summary: %w", err)
	}

	var rows []struct {
		Status       string  `db:"status"`
		Count        int     `db:"count"`
		EarliestScan *string `db:"earliest_scan"`
		LatestScan   *string `db:"latest_scan"`
	}
	if err := sqlscan.Select(ctx, r.db.querier(ctx), &rows, query, args...); err != nil {
		return nil, mapError(err, "letters", 0)
	}

	out := make([]domain.StatusCount, len(rows))
	for i, row := range rows {
		out[i] = domain.StatusCount{
			Status:       domain.Status(row.Status),
			Count:        row.Count,
			EarliestScan: parseDate(row.EarliestScan),
			LatestScan:   parseDate(row.LatestScan),
		}
	}
	return out, nil
}
