// Package letter implements the letter repository using PostgreSQL.
package letter

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/heartmarshall/lettertrack/internal/adapter/postgres"
	"github.com/heartmarshall/lettertrack/internal/domain"
)

const table = "letters"

var columns = []string{
	"letter_id", "sponsee_index", "sponsee_code",
	"step_work", "envelope_image_path", "letter_pages_image_path",
	"date_picked_up", "date_scanned", "date_postmarked", "date_response_started", "date_response_finished",
	"ocr_text", "ocr_confidence", "return_address", "raw_ocr_artifact_path",
	"status", "processor_notes", "created_at", "updated_at",
}

// Repo provides letter persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new letter repository. q is usually a *pgxpool.Pool.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts the letter and returns it with the assigned letter_id.
func (r *Repo) Create(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	row := fromDomain(l)
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns[1:]...).
		Values(row.values()...).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert letter: %w", err)
	}

	var out letterRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.q), &out, query, args...); err != nil {
		return nil, postgres.MapError(err, "letter", 0)
	}
	return out.toDomain(), nil
}

// Update writes every mutable column and updated_at of l.
func (r *Repo) Update(ctx context.Context, l *domain.Letter) error {
	row := fromDomain(l)
	vals := row.values()

	set := make(map[string]any, len(columns)-2)
	for i, col := range columns[1:] {
		if col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	query, args, err := postgres.Builder().
		Update(table).
		SetMap(set).
		Where(squirrel.Eq{"letter_id": l.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update letter: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.q).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "letter", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("letter %d: %w", l.ID, domain.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a letter by id.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Letter, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate returns a letter and locks its row until the surrounding
// transaction ends. Must be called inside TxManager.RunInTx.
func (r *Repo) GetForUpdate(ctx context.Context, id int64) (*domain.Letter, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *Repo) get(ctx context.Context, id int64, suffix string) (*domain.Letter, error) {
	b := postgres.Builder().
		Select(columns...).
		From(table).
		Where(squirrel.Eq{"letter_id": id})
	if suffix != "" {
		b = b.Suffix(suffix)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select letter: %w", err)
	}

	var row letterRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.q), &row, query, args...); err != nil {
		return nil, postgres.MapError(err, "letter", id)
	}
	return row.toDomain(), nil
}

// List streams letters matching filter ordered by letter_id. Rows are read
// lazily from the cursor; stop iterating to release the connection early.
func (r *Repo) List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
	return func(yield func(*domain.Letter, error) bool) {
		query, args, err := listQuery(filter).ToSql()
		if err != nil {
			yield(nil, fmt.Errorf("build list letters: %w", err))
			return
		}

		rows, err := postgres.QuerierFromCtx(ctx, r.q).Query(ctx, query, args...)
		if err != nil {
			yield(nil, postgres.MapError(err, "letters", 0))
			return
		}
		defer rows.Close()

		scanner := pgxscan.NewRowScanner(rows)
		for rows.Next() {
			var row letterRow
			if err := scanner.Scan(&row); err != nil {
				yield(nil, postgres.MapError(err, "letters", 0))
				return
			}
			if !yield(row.toDomain(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, postgres.MapError(err, "letters", 0))
		}
	}
}

func listQuery(filter domain.LetterFilter) squirrel.SelectBuilder {
	b := postgres.Builder().
		Select(columns...).
		From(table).
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
			b = b.Where(squirrel.GtOrEq{col: domain.TruncateDate(*filter.From)})
		}
		if filter.To != nil {
			b = b.Where(squirrel.LtOrEq{col: domain.TruncateDate(*filter.To)})
		}
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return b
}

// StatusSummary counts letters per status with the earliest and latest scan
// dates.
func (r *Repo) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
	query, args, err := postgres.Builder().
		Select("status", "COUNT(*) AS count", "MIN(date_scanned) AS earliest_scan", "MAX(date_scanned) AS latest_scan").
		From(table).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status summary: %w", err)
	}

	var rows []struct {
		Status       string     `db:"status"`
		Count        int        `db:"count"`
		EarliestScan *time.Time `db:"earliest_scan"`
		LatestScan   *time.Time `db:"latest_scan"`
	}
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.q), &rows, query, args...); err != nil {
		return nil, postgres.MapError(err, "letters", 0)
	}

	out := make([]domain.StatusCount, len(rows))
	for i, row := range rows {
		out[i] = domain.StatusCount{
			Status:       domain.Status(row.Status),
			Count:        row.Count,
			EarliestScan: row.EarliestScan,
			LatestScan:   row.LatestScan,
		}
	}
	return out, nil
}
