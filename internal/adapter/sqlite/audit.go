package sqlite

import (
	"context"
	"fmt"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// AuditRepo is the append-only audit log backed by SQLite. Triggers abort
// any UPDATE or DELETE on the table.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append inserts a new audit entry and returns its log_id.
func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry) (int64, error) {
	var field *string
	if entry.Field != "" {
		f := entry.Field.String()
		field = &f
	}

	query, args, err := builder().
		Insert("audit_log").
		Columns(auditColumns[1:]...).
		Values(formatTimestamp(entry.Timestamp), entry.Action.String(), entry.LetterID, field,
			entry.OldValue, entry.NewValue, entry.Details, entry.Actor).
		Suffix("RETURNING log_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert audit entry: %w", err)
	}

	var id int64
	if err := r.db.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError(err, "audit_log", 0)
	}
	return id, nil
}

// Query streams entries matching filter in log_id order.
func (r *AuditRepo) Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error] {
	return func(yield func(domain.AuditEntry, error) bool) {
		query, args, err := auditQuery(filter).ToSql()
		if err != nil {
			yield(domain.AuditEntry{}, fmt.Errorf("build audit query: %w", err))
			return
		}

		rows, err := r.db.querier(ctx).QueryContext(ctx, query, args...)
		if err != nil {
			yield(domain.AuditEntry{}, mapError(err, "audit_log", 0))
			return
		}
		defer rows.Close()

		scanner := sqlscan.NewRowScanner(rows)
		for rows.Next() {
			var row auditRow
			if err := scanner.Scan(&row); err != nil {
				yield(domain.AuditEntry{}, mapError(err, "audit_log", 0))
				return
			}
			if !yield(row.toDomain(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.AuditEntry{}, mapError(err, "audit_log", 0))
		}
	}
}

func auditQuery(filter domain.AuditFilter) squirrel.SelectBuilder {
	b := builder().
		Select(auditColumns...).
		From("audit_log").
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
		b = b.Where(squirrel.GtOrEq{"timestamp": formatTimestamp(*filter.Since)})
	}
	if filter.Until != nil {
		b = b.Where(squirrel.Lt{"timestamp": formatTimestamp(*filter.Until)})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	return b
}
