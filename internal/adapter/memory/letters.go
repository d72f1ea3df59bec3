package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

// LetterRepo stores letters in a DB.
type LetterRepo struct {
	db *DB
}

// NewLetterRepo creates a new letter repository.
func NewLetterRepo(db *DB) *LetterRepo {
	return &LetterRepo{db: db}
}

// Create stores a copy of l under the next letter id.
func (r *LetterRepo) Create(ctx context.Context, l *domain.Letter) (*domain.Letter, error) {
	var out *domain.Letter
	err := r.db.write(ctx, func() error {
		if _, ok := r.db.sponsees[l.SponseeIndex]; !ok {
			return fmt.Errorf("sponsee %d: %w", l.SponseeIndex, domain.ErrNotFound)
		}
		r.db.nextLetterID++
		stored := l.Clone()
		stored.ID = r.db.nextLetterID
		r.db.letters[stored.ID] = stored
		out = stored.Clone()
		return nil
	})
	return out, err
}

// Update replaces the stored letter with a copy of l.
func (r *LetterRepo) Update(ctx context.Context, l *domain.Letter) error {
	return r.db.write(ctx, func() error {
		cur, ok := r.db.letters[l.ID]
		if !ok {
			return fmt.Errorf("letter %d: %w", l.ID, domain.ErrNotFound)
		}
		if _, ok := r.db.sponsees[l.SponseeIndex]; !ok {
			return fmt.Errorf("sponsee %d: %w", l.SponseeIndex, domain.ErrNotFound)
		}
		stored := l.Clone()
		stored.CreatedAt = cur.CreatedAt
		r.db.letters[l.ID] = stored
		return nil
	})
}

// GetByID returns a copy of the letter.
func (r *LetterRepo) GetByID(ctx context.Context, id int64) (*domain.Letter, error) {
	var out *domain.Letter
	r.db.read(ctx, func() {
		out = r.db.letters[id].Clone()
	})
	if out == nil {
		return nil, fmt.Errorf("letter %d: %w", id, domain.ErrNotFound)
	}
	return out, nil
}

// GetForUpdate is GetByID; RunInTx already holds the writer lock.
func (r *LetterRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Letter, error) {
	return r.GetByID(ctx, id)
}

// List yields copies of the matching letters as of the call, ordered by id.
func (r *LetterRepo) List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
	return func(yield func(*domain.Letter, error) bool) {
		var matched []*domain.Letter
		r.db.read(ctx, func() {
			for _, l := range r.db.letters {
				if filter.Matches(l) {
					matched = append(matched, l.Clone())
				}
			}
		})
		slices.SortFunc(matched, func(a, b *domain.Letter) int { return cmp.Compare(a.ID, b.ID) })
		if filter.Limit > 0 && len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}

		for _, l := range matched {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(l, nil) {
				return
			}
		}
	}
}

// StatusSummary counts letters per status.
func (r *LetterRepo) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
	byStatus := make(map[domain.Status]*domain.StatusCount)
	r.db.read(ctx, func() {
		for _, l := range r.db.letters {
			sc, ok := byStatus[l.Status]
			if !ok {
				sc = &domain.StatusCount{Status: l.Status}
				byStatus[l.Status] = sc
			}
			sc.Count++
			if l.DateScanned == nil {
				continue
			}
			if sc.EarliestScan == nil || l.DateScanned.Before(*sc.EarliestScan) {
				d := *l.DateScanned
				sc.EarliestScan = &d
			}
			if sc.LatestScan == nil || l.DateScanned.After(*sc.LatestScan) {
				d := *l.DateScanned
				sc.LatestScan = &d
			}
		}
	})

	out := make([]domain.StatusCount, 0, len(byStatus))
	for _, sc := range byStatus {
		out = append(out, *sc)
	}
	slices.SortFunc(out, func(a, b domain.StatusCount) int { return cmp.Compare(a.Status, b.Status) })
	return out, nil
}
