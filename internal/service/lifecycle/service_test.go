package lifecycle

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/adapter/memory"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
)

var (
	volunteer   = domain.Actor{ID: "ana"}
	coordinator = domain.Actor{ID: "rosa", Admin: true}
)

type env struct {
	ctl    *Service
	store  *letter.Service
	audit  *memory.AuditRepo
	logBuf *bytes.Buffer
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := memory.New()
	_, err := memory.NewSponseeRepo(db).Create(context.Background(), domain.Sponsee{IdentifierHash: "h", Code: "KQD417"})
	require.NoError(t, err)

	audit := memory.NewAuditRepo(db)
	store := letter.NewService(
		slog.New(slog.DiscardHandler),
		memory.NewLetterRepo(db), audit, memory.NewSponseeRepo(db), memory.NewTxManager(db),
		config.LettersConfig{},
	)

	var buf bytes.Buffer
	ctl := NewService(slog.New(slog.NewJSONHandler(&buf, nil)), store)
	ctl.clock = func() time.Time { return time.Date(2025, time.October, 3, 12, 0, 0, 0, time.UTC) }
	return env{ctl: ctl, store: store, audit: audit, logBuf: &buf}
}

func (e env) create(t *testing.T, fields ...letter.Change) *domain.Letter {
	t.Helper()
	l, err := e.store.Create(context.Background(), letter.CreateInput{SponseeIndex: 1, Fields: fields, Actor: volunteer})
	require.NoError(t, err)
	return l
}

func (e env) entries(t *testing.T, id int64) int {
	t.Helper()
	n := 0
	for _, err := range e.audit.Query(context.Background(), domain.AuditFilter{LetterID: &id}) {
		require.NoError(t, err)
		n++
	}
	return n
}

func set(f domain.LetterField, v string) letter.Change {
	return letter.Change{Field: f, Value: &v}
}

func TestTransition_FullWorkflow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	l := e.create(t)
	require.Equal(t, domain.StatusPickedUp, l.Status)

	steps := []TransitionInput{
		{To: domain.StatusScanned, Changes: []letter.Change{set(domain.FieldDateScanned, "2025-09-22")}},
		{To: domain.StatusProcessing, Changes: []letter.Change{set(domain.FieldOCRText, "Dear sponsor")}},
		{To: domain.StatusResponseStarted, Changes: []letter.Change{set(domain.FieldDateResponseStarted, "2025-09-25")}},
		{To: domain.StatusResponded, Changes: []letter.Change{set(domain.FieldDateResponseFinished, "2025-09-28")}},
		{To: domain.StatusMailed},
	}
	for _, step := range steps {
		step.LetterID = l.ID
		step.Actor = volunteer
		got, err := e.ctl.Transition(ctx, step)
		require.NoError(t, err, "to %s", step.To)
		assert.Equal(t, step.To, got.Status)
	}

	status := domain.FieldStatus
	var changes []string
	for entry, err := range e.audit.Query(ctx, domain.AuditFilter{LetterID: &l.ID, Field: &status}) {
		require.NoError(t, err)
		if entry.Action == domain.AuditActionStatusChanged {
			changes = append(changes, entry.OldValue+">"+entry.NewValue)
		}
	}
	assert.Equal(t, []string{
		"picked_up>scanned", "scanned>processing", "processing>response_started",
		"response_started>responded", "responded>mailed",
	}, changes)
}

func TestTransition_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name         string
		start        []letter.Change
		input        TransitionInput
		precondition string
	}{
		{
			name:         "scan without date",
			input:        TransitionInput{To: domain.StatusScanned},
			precondition: "date_scanned",
		},
		{
			name:         "skip to responded",
			start:        []letter.Change{set(domain.FieldDateScanned, "2025-09-22")},
			input:        TransitionInput{To: domain.StatusResponded},
			precondition: "no transition from scanned to responded",
		},
		{
			name:         "processing without text or notes",
			start:        []letter.Change{set(domain.FieldDateScanned, "2025-09-22")},
			input:        TransitionInput{To: domain.StatusProcessing},
			precondition: "ocr_text or processor_notes",
		},
		{
			name:         "same status",
			start:        []letter.Change{set(domain.FieldDateScanned, "2025-09-22")},
			input:        TransitionInput{To: domain.StatusScanned},
			precondition: "already scanned",
		},
		{
			name:         "archive through transition",
			input:        TransitionInput{To: domain.StatusArchived},
			precondition: "administrative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			l := e.create(t, tt.start...)
			before := e.entries(t, l.ID)

			tt.input.LetterID = l.ID
			tt.input.Actor = volunteer
			_, err := e.ctl.Transition(ctx, tt.input)

			var te *domain.TransitionError
			require.ErrorAs(t, err, &te)
			assert.Contains(t, te.Precondition, tt.precondition)
			require.NotNil(t, te.Current)
			assert.Equal(t, l.Status, te.Current.Status)

			stored, err := e.store.Get(ctx, l.ID)
			require.NoError(t, err)
			assert.Equal(t, l.Status, stored.Status)
			assert.Equal(t, before, e.entries(t, l.ID))
			assert.Contains(t, e.logBuf.String(), `"msg":"transition rejected"`)
		})
	}
}

func TestTransition_InvalidInput(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := e.ctl.Transition(context.Background(), TransitionInput{
		LetterID: 1,
		To:       domain.Status("lost"),
		Changes:  []letter.Change{set(domain.FieldStatus, "mailed")},
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestUpdateField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	l := e.create(t, set(domain.FieldDateScanned, "2025-09-22"))

	_, err := e.ctl.UpdateField(ctx, letter.UpdateFieldInput{
		LetterID: l.ID, Field: domain.FieldStatus, Value: domain.Ptr("processing"), Actor: volunteer,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.ctl.UpdateField(ctx, letter.UpdateFieldInput{
		LetterID: l.ID, Field: domain.FieldDateScanned, Value: nil, Actor: volunteer,
	})
	assert.ErrorIs(t, err, domain.ErrValidation, "scanned letters keep their scan date")

	got, err := e.ctl.UpdateField(ctx, letter.UpdateFieldInput{
		LetterID: l.ID, Field: domain.FieldStepWork, Value: domain.Ptr("Step 6"), Actor: volunteer,
	})
	require.NoError(t, err)
	assert.Equal(t, "Step 6", *got.StepWork)
}

func TestArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	l := e.create(t, set(domain.FieldDateScanned, "2025-09-22"))

	_, err := e.ctl.Archive(ctx, l.ID, "duplicate scan", volunteer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.ctl.Archive(ctx, l.ID, "  ", coordinator)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := e.ctl.Archive(ctx, l.ID, "duplicate scan", coordinator)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)

	action := domain.AuditActionStatusChanged
	var last domain.AuditEntry
	for entry, err := range e.audit.Query(ctx, domain.AuditFilter{LetterID: &l.ID, Action: &action}) {
		require.NoError(t, err)
		last = entry
	}
	assert.Equal(t, "archived", last.NewValue)
	assert.Equal(t, "duplicate scan", last.Details)
	assert.Equal(t, "rosa", last.Actor)

	_, err = e.ctl.Archive(ctx, l.ID, "again", coordinator)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.ctl.Transition(ctx, TransitionInput{LetterID: l.ID, To: domain.StatusProcessing, Actor: coordinator})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAppendNote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	l := e.create(t)

	_, err := e.ctl.AppendNote(ctx, l.ID, "   ", volunteer)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.ctl.AppendNote(ctx, l.ID, "envelope torn", volunteer)
	require.NoError(t, err)
	got, err := e.ctl.AppendNote(ctx, l.ID, "second page missing", coordinator)
	require.NoError(t, err)

	assert.Equal(t,
		"[03Oct2025 ana] envelope torn\n[03Oct2025 rosa] second page missing",
		*got.ProcessorNotes,
	)
}

func TestAppendNote_ConcurrentNotesAllKept(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	l := e.create(t)

	const writers = 8
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ctl.AppendNote(ctx, l.ID, "checked", volunteer)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := e.store.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(*got.ProcessorNotes, "\n"), writers)
}
