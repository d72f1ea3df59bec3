package memory

import (
	"context"
	"fmt"
	"iter"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// AuditRepo is an append-only audit log held in memory.
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append stores the entry and returns its log id.
func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry) (int64, error) {
	var id int64
	err := r.db.write(ctx, func() error {
		if entry.LetterID != nil {
			if _, ok := r.db.letters[*entry.LetterID]; !ok {
				return fmt.Errorf("letter %d: %w", *entry.LetterID, domain.ErrNotFound)
			}
		}
		r.db.nextLogID++
		entry.LogID = r.db.nextLogID
		r.db.audit = append(r.db.audit, entry)
		id = entry.LogID
		return nil
	})
	return id, err
}

// Query yields the matching entries as of the call in log id order.
func (r *AuditRepo) Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error] {
	return func(yield func(domain.AuditEntry, error) bool) {
		var matched []domain.AuditEntry
		r.db.read(ctx, func() {
			for _, e := range r.db.audit {
				if filter.Matches(e) {
					matched = append(matched, e)
					if filter.Limit > 0 && len(matched) == filter.Limit {
						break
					}
				}
			}
		})

		for _, e := range matched {
			if err := ctx.Err(); err != nil {
				yield(domain.AuditEntry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
