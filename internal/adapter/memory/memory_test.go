package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

func seed(t *testing.T, db *DB) (*domain.Sponsee, *domain.Letter) {
	t.Helper()
	ctx := context.Background()

	s, err := NewSponseeRepo(db).Create(ctx, domain.Sponsee{IdentifierHash: "h", Code: "ABC123", CreatedAt: time.Now()})
	require.NoError(t, err)

	now := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	scanned := domain.TruncateDate(now)
	l, err := NewLetterRepo(db).Create(ctx, &domain.Letter{
		SponseeIndex: s.Index,
		SponseeCode:  s.Code,
		DateScanned:  &scanned,
		Status:       domain.StatusScanned,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return s, l
}

func TestLetterRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	repo := NewLetterRepo(db)
	_, l := seed(t, db)

	l.StepWork = domain.Ptr("mutated by caller")

	got, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StepWork)
}

func TestLetterRepo_UnknownSponseeAndLetter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	repo := NewLetterRepo(db)

	_, err := repo.Create(ctx, &domain.Letter{SponseeIndex: 7, Status: domain.StatusPickedUp})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Letter{ID: 1}), domain.ErrNotFound)
}

func TestTxManager_RollbackRestoresState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	tx := NewTxManager(db)
	letters := NewLetterRepo(db)
	audit := NewAuditRepo(db)
	_, l := seed(t, db)

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		next := l.Clone()
		next.Status = domain.StatusProcessing
		if err := letters.Update(ctx, next); err != nil {
			return err
		}
		if _, err := audit.Append(ctx, domain.AuditEntry{Action: domain.AuditActionStatusChanged, LetterID: &l.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := letters.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScanned, got.Status)
	for range audit.Query(ctx, domain.AuditFilter{}) {
		t.Fatal("audit entry survived rollback")
	}

	id, err := audit.Append(ctx, domain.AuditEntry{Action: domain.AuditActionLetterAdded, LetterID: &l.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id, "log ids are not reused after a rollback")
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	tx := NewTxManager(db)

	assert.Panics(t, func() {
		_ = tx.RunInTx(ctx, func(ctx context.Context) error {
			_, _ = NewSponseeRepo(db).Create(ctx, domain.Sponsee{IdentifierHash: "p"})
			panic("boom")
		})
	})

	_, err := NewSponseeRepo(db).GetByHash(ctx, "p")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	tx := NewTxManager(db)

	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		return tx.RunInTx(ctx, func(ctx context.Context) error {
			_, err := NewSponseeRepo(db).Create(ctx, domain.Sponsee{IdentifierHash: "n"})
			return err
		})
	})
	require.NoError(t, err)
}

func TestTxManager_SerializesWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	tx := NewTxManager(db)
	letters := NewLetterRepo(db)
	_, l := seed(t, db)

	const workers = 20
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.RunInTx(ctx, func(ctx context.Context) error {
				cur, err := letters.GetForUpdate(ctx, l.ID)
				if err != nil {
					return err
				}
				n := 0
				if cur.StepWork != nil {
					n = len(*cur.StepWork)
				}
				cur.StepWork = domain.Ptr(string(make([]byte, n+1)))
				return letters.Update(ctx, cur)
			})
		}()
	}
	wg.Wait()

	got, err := letters.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, *got.StepWork, workers)
}

func TestAuditRepo_QueryFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	audit := NewAuditRepo(db)
	_, l := seed(t, db)

	for _, a := range []domain.AuditAction{
		domain.AuditActionLetterAdded, domain.AuditActionFieldUpdated, domain.AuditActionFieldUpdated,
	} {
		_, err := audit.Append(ctx, domain.AuditEntry{Action: a, LetterID: &l.ID, Actor: "ana"})
		require.NoError(t, err)
	}

	missing := int64(99)
	_, err := audit.Append(ctx, domain.AuditEntry{Action: domain.AuditActionFieldUpdated, LetterID: &missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	action := domain.AuditActionFieldUpdated
	var ids []int64
	for e, err := range audit.Query(ctx, domain.AuditFilter{Action: &action, Limit: 1}) {
		require.NoError(t, err)
		ids = append(ids, e.LogID)
	}
	assert.Equal(t, []int64{2}, ids)
}

func TestLetterRepo_StatusSummary(t *testing.T) {
	t.Parallel()
	db := New()
	seed(t, db)

	summary, err := NewLetterRepo(db).StatusSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 1, summary[0].Count)
	assert.Equal(t, "01Oct2025", domain.DisplayDate(summary[0].EarliestScan))
}

func TestSponseeRepo_DuplicateHash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	repo := NewSponseeRepo(db)

	_, err := repo.Create(ctx, domain.Sponsee{IdentifierHash: "x"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.Sponsee{IdentifierHash: "x"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}
