// Package audit implements the audit log using PostgreSQL.
// It provides append-only operations for audit entries; no update or delete
// path exists, and a trigger rejects them at the database level.
package audit

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

const table = "audit_log"

var columns = []string{
	"log_id", "timestamp", "action", "letter_id", "field_changed",
	"old_value", "new_value", "details", "actor",
}

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	q postgres.Querier
}

// New creates a new audit repository.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Append inserts a new audit entry and returns its log_id. It runs on the
// transaction in ctx when there is one, so the entry commits or rolls back
// together with the mutation it describes.
func (r *Repo) Append(ctx context.Context, entry domain.AuditEntry) (int64, error) {
	row := fromDomain(entry)
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns[1:]...).
		Values(row.Timestamp, row.Action, row.LetterID, row.FieldChanged,
			row.OldValue, row.NewValue, row.Details, row.Actor).
		Suffix("RETURNING log_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert audit entry: %w", err)
	}

	var id int64
	if err := postgres.QuerierFromCtx(ctx, r.q).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, postgres.MapError(err, "audit_log", 0)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// Query streams entries matching filter in log_id order.
func (r *Repo) Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error] {
	return func(yield func(domain.AuditEntry, error) bool) {
		query, args, err := queryBuilder(filter).ToSql()
		if err != nil {
			yield(domain.AuditEntry{}, fmt.Errorf("build audit query: %w", err))
			return
		}

		rows, err := postgres.QuerierFromCtx(ctx, r.q).Query(ctx, query, args...)
		if err != nil {
			yield(domain.AuditEntry{}, postgres.MapError(err, "audit_log", 0))
			return
		}
		defer rows.Close()

		scanner := pgxscan.NewRowScanner(rows)
		for rows.Next() {
			var row auditRow
			if err := scanner.Scan(&row); err != nil {
				yield(domain.AuditEntry{}, postgres.MapError(err, "audit_log", 0))
				return
			}
			if !yield(row.toDomain(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.AuditEntry{}, postgres.MapError(err, "audit_log", 0))
		}
	}
}

func queryBuilder(filter domain.AuditFilter) squirrel.SelectBuilder {
	b := postgres.Builder().
		Select(columns...).
		From(table).
		Where(squirrel.Gt{"log_id": filter.AfterLogID}).
		OrderBy("log_id ASC")

	if filter.LetterID != nil {
		b = b.Where(squirrel.Eq{"letter_id": *filter.LetterID})
	}
	if filter.Action != nil {
		b = b.Where(squirrel.Eq{"action": filter.Action.String()})
	}
	if filter.Field != nil {
		b = b.Where(squirrel.Eq{"field_changed": filter.Field.String()})
	}
	if filter.Actor != nil {
		b = b.Where(squirrel.Eq{"actor": *filter.Actor})
	}
	if filter.Since != nil {
		b = b.Where(squirrel.GtOrEq{"timestamp": filter.Since.UTC()})
	}
	if filter.Until != nil {
		b = b.Where(squirrel.Lt{"timestamp": filter.Until.UTC()})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return b
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

type auditRow struct {
	LogID        int64     `db:"log_id"`
	Timestamp    time.Time `db:"timestamp"`
	Action       string    `db:"action"`
	LetterID     *int64    `db:"letter_id"`
	FieldChanged *string   `db:"field_changed"`
	OldValue     string    `db:"old_value"`
	NewValue     string    `db:"new_value"`
	Details      string    `db:"details"`
	Actor        string    `db:"actor"`
}

func fromDomain(e domain.AuditEntry) auditRow {
	row := auditRow{
		Timestamp: e.Timestamp.UTC(),
		Action:    e.Action.String(),
		LetterID:  e.LetterID,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
		Details:   e.Details,
		Actor:     e.Actor,
	}
	if e.Field != "" {
		f := e.Field.String()
		row.FieldChanged = &f
	}
	return row
}

func (r auditRow) toDomain() domain.AuditEntry {
	e := domain.AuditEntry{
		LogID:     r.LogID,
		Timestamp: r.Timestamp.UTC(),
		Action:    domain.AuditAction(r.Action),
		LetterID:  r.LetterID,
		OldValue:  r.OldValue,
		NewValue:  r.NewValue,
		Details:   r.Details,
		Actor:     r.Actor,
	}
	if r.FieldChanged != nil {
		e.Field = domain.LetterField(*r.FieldChanged)
	}
	return e
}
