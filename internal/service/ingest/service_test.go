package ingest

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/adapter/memory"
	"github.com/heartmarshall/lettertrack/internal/adapter/sqlite"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
	"github.com/heartmarshall/lettertrack/internal/service/sponsee"
)

var operator = domain.Actor{ID: "scanner-1"}

var fixedNow = time.Date(2025, time.October, 3, 9, 30, 0, 0, time.UTC)

type env struct {
	svc      *Service
	store    *letter.Service
	sponsees *sponsee.Service
	db       *memory.DB
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db := memory.New()
	tx := memory.NewTxManager(db)
	sponseeRepo := memory.NewSponseeRepo(db)

	store := letter.NewService(logger, memory.NewLetterRepo(db), memory.NewAuditRepo(db), sponseeRepo, tx,
		config.LettersConfig{})
	registry := sponsee.NewService(logger, sponseeRepo, tx, config.SponseeConfig{CodeSecret: "0123456789abcdef-test"})

	svc := NewService(logger, store, registry, config.IngestConfig{ReviewThreshold: 0.6})
	svc.clock = func() time.Time { return fixedNow }
	return env{svc: svc, store: store, sponsees: registry, db: db}
}

// newSQLiteEnv wires the same services over a file-backed SQLite database,
// whose single connection is shared by cursors and transactions.
func newSQLiteEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "letters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx, logger))

	tx := sqlite.NewTxManager(db)
	sponseeRepo := sqlite.NewSponseeRepo(db)
	store := letter.NewService(logger, sqlite.NewLetterRepo(db), sqlite.NewAuditRepo(db), sponseeRepo, tx,
		config.LettersConfig{})
	registry := sponsee.NewService(logger, sponseeRepo, tx, config.SponseeConfig{CodeSecret: "0123456789abcdef-test"})

	svc := NewService(logger, store, registry, config.IngestConfig{ReviewThreshold: 0.6})
	svc.clock = func() time.Time { return fixedNow }
	return env{svc: svc, store: store, sponsees: registry}
}

func scanInput(confidence float64, extracted string) Input {
	return Input{
		Scan: domain.EnvelopeScan{
			EnvelopeImagePath: "scans/2025-10-03/env-001.png",
			StepWork:          domain.Ptr("Step 4"),
		},
		OCR: domain.OCRResult{
			Text:         "Dear sponsor, this week I worked on my inventory.",
			Confidence:   confidence,
			ArtifactPath: "ocr/env-001.json",
			ExtractedID:  domain.Ptr(extracted),
		},
		Actor: operator,
	}
}

func TestIngest_CreatesScannedLetter(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	l, err := e.svc.Ingest(context.Background(), scanInput(0.92, "A-1234"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusScanned, l.Status)
	assert.Equal(t, "2025-10-03", l.Value(domain.FieldDateScanned))
	assert.Equal(t, "0.92", l.Value(domain.FieldOCRConfidence))
	assert.Equal(t, "Step 4", l.Value(domain.FieldStepWork))
	assert.Nil(t, l.ProcessorNotes)

	code, err := e.sponsees.Code("A-1234")
	require.NoError(t, err)
	assert.Equal(t, code, l.SponseeCode)
}

func TestIngest_SameIdentifierSameSponsee(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	first, err := e.svc.Ingest(ctx, scanInput(0.9, "A-1234"))
	require.NoError(t, err)
	second, err := e.svc.Ingest(ctx, scanInput(0.9, " a 1234 "))
	require.NoError(t, err)

	assert.Equal(t, first.SponseeIndex, second.SponseeIndex)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestIngest_LowConfidenceFlagsReview(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	l, err := e.svc.Ingest(context.Background(), scanInput(0.41, "B-77"))
	require.NoError(t, err)

	require.NotNil(t, l.ProcessorNotes)
	assert.True(t, strings.HasPrefix(*l.ProcessorNotes, "MANUAL REVIEW REQUIRED"))
	assert.Contains(t, *l.ProcessorNotes, "0.41")
	assert.Equal(t, domain.StatusScanned, l.Status)
}

func TestIngest_ExplicitIndexWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sp, err := e.sponsees.ResolveOrCreate(ctx, "C-5")
	require.NoError(t, err)

	in := scanInput(0.8, "unrelated")
	in.SponseeIndex = &sp.Index
	l, err := e.svc.Ingest(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, sp.Index, l.SponseeIndex)
	assert.Equal(t, sp.Code, l.SponseeCode)

	in.SponseeIndex = domain.Ptr[int64](99)
	_, err = e.svc.Ingest(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(in *Input)
		field  string
	}{
		{"confidence above one", func(in *Input) { in.OCR.Confidence = 1.2 }, "ocr_confidence"},
		{"confidence negative", func(in *Input) { in.OCR.Confidence = -0.1 }, "ocr_confidence"},
		{"no sponsee", func(in *Input) { in.OCR.ExtractedID = nil }, "sponsee"},
		{"blank extracted id", func(in *Input) { in.OCR.ExtractedID = domain.Ptr("") }, "sponsee"},
		{"missing envelope", func(in *Input) { in.Scan.EnvelopeImagePath = "" }, "envelope_image_path"},
		{"missing actor", func(in *Input) { in.Actor = domain.Actor{} }, "actor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			in := scanInput(0.9, "A-1")
			tt.mutate(&in)

			_, err := e.svc.Ingest(context.Background(), in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestSyncSponseeCodes(t *testing.T) {
	t.Parallel()

	engines := []struct {
		name string
		env  func(t *testing.T) env
	}{
		{name: "memory", env: newEnv},
		{name: "sqlite", env: newSQLiteEnv},
	}

	for _, engine := range engines {
		t.Run(engine.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			e := engine.env(t)

			good, err := e.svc.Ingest(ctx, scanInput(0.9, "A-1"))
			require.NoError(t, err)
			stale, err := e.svc.Ingest(ctx, scanInput(0.9, "B-2"))
			require.NoError(t, err)

			_, err = e.store.UpdateField(ctx, letter.UpdateFieldInput{
				LetterID: stale.ID, Field: domain.FieldSponseeCode, Value: domain.Ptr("XXX000"), Actor: operator,
			})
			require.NoError(t, err)

			n, err := e.svc.SyncSponseeCodes(ctx, domain.SystemActor)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			fixed, err := e.store.Get(ctx, stale.ID)
			require.NoError(t, err)
			sp, err := e.sponsees.Get(ctx, stale.SponseeIndex)
			require.NoError(t, err)
			assert.Equal(t, sp.Code, fixed.SponseeCode)

			untouched, err := e.store.Get(ctx, good.ID)
			require.NoError(t, err)
			assert.True(t, good.UpdatedAt.Equal(untouched.UpdatedAt), "in-sync letter must not be touched")

			n, err = e.svc.SyncSponseeCodes(ctx, domain.SystemActor)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type letterStoreMock struct {
	CreateFunc      func(ctx context.Context, input letter.CreateInput) (*domain.Letter, error)
	UpdateFieldFunc func(ctx context.Context, input letter.UpdateFieldInput) (*domain.Letter, error)
	ListFunc        func(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
}

func (m *letterStoreMock) Create(ctx context.Context, input letter.CreateInput) (*domain.Letter, error) {
	return m.CreateFunc(ctx, input)
}

func (m *letterStoreMock) UpdateField(ctx context.Context, input letter.UpdateFieldInput) (*domain.Letter, error) {
	return m.UpdateFieldFunc(ctx, input)
}

func (m *letterStoreMock) List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
	return m.ListFunc(ctx, filter)
}

type registryMock struct {
	ResolveOrCreateFunc func(ctx context.Context, identifier string) (*domain.Sponsee, error)
	GetFunc             func(ctx context.Context, index int64) (*domain.Sponsee, error)
}

func (m *registryMock) ResolveOrCreate(ctx context.Context, identifier string) (*domain.Sponsee, error) {
	return m.ResolveOrCreateFunc(ctx, identifier)
}

func (m *registryMock) Get(ctx context.Context, index int64) (*domain.Sponsee, error) {
	return m.GetFunc(ctx, index)
}

func TestIngest_RegistryFailureCreatesNothing(t *testing.T) {
	t.Parallel()

	boom := errors.New("registry unavailable")
	store := &letterStoreMock{
		CreateFunc: func(context.Context, letter.CreateInput) (*domain.Letter, error) {
			t.Fatal("Create must not be called")
			return nil, nil
		},
	}
	reg := &registryMock{
		ResolveOrCreateFunc: func(context.Context, string) (*domain.Sponsee, error) { return nil, boom },
	}
	svc := NewService(slog.New(slog.DiscardHandler), store, reg, config.IngestConfig{ReviewThreshold: 0.6})

	_, err := svc.Ingest(context.Background(), scanInput(0.9, "A-1"))
	assert.ErrorIs(t, err, boom)
}

func TestIngest_PassesDatesAndDetails(t *testing.T) {
	t.Parallel()

	picked := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	var got letter.CreateInput
	store := &letterStoreMock{
		CreateFunc: func(_ context.Context, in letter.CreateInput) (*domain.Letter, error) {
			got = in
			return &domain.Letter{ID: 1, SponseeIndex: in.SponseeIndex}, nil
		},
	}
	reg := &registryMock{
		ResolveOrCreateFunc: func(context.Context, string) (*domain.Sponsee, error) {
			return &domain.Sponsee{Index: 3, Code: "KQD417"}, nil
		},
	}
	svc := NewService(slog.New(slog.DiscardHandler), store, reg, config.IngestConfig{ReviewThreshold: 0.6})
	svc.clock = func() time.Time { return fixedNow }

	in := scanInput(0.9, "A-1")
	in.Scan.DatePickedUp = &picked
	_, err := svc.Ingest(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.SponseeIndex)
	assert.Equal(t, operator, got.Actor)
	assert.Contains(t, got.Details, "env-001.png")

	values := map[domain.LetterField]string{}
	for _, c := range got.Fields {
		if c.Value != nil {
			values[c.Field] = *c.Value
		}
	}
	assert.Equal(t, "2025-10-01", values[domain.FieldDatePickedUp])
	assert.Equal(t, "2025-10-03", values[domain.FieldDateScanned])
	assert.Equal(t, "KQD417", values[domain.FieldSponseeCode])
	assert.NotContains(t, values, domain.FieldProcessorNotes)
}

func TestSyncSponseeCodes_ListErrorStops(t *testing.T) {
	t.Parallel()

	boom := errors.New("read failed")
	store := &letterStoreMock{
		ListFunc: func(context.Context, domain.LetterFilter) iter.Seq2[*domain.Letter, error] {
			return func(yield func(*domain.Letter, error) bool) { yield(nil, boom) }
		},
	}
	svc := NewService(slog.New(slog.DiscardHandler), store, &registryMock{}, config.IngestConfig{})

	n, err := svc.SyncSponseeCodes(context.Background(), domain.SystemActor)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}
