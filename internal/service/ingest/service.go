// Package ingest turns a scanned envelope and its OCR result into a new
// letter record.
package ingest

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"time"

	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type letterStore interface {
	Create(ctx context.Context, input letter.CreateInput) (*domain.Letter, error)
	UpdateField(ctx context.Context, input letter.UpdateFieldInput) (*domain.Letter, error)
	List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
}

type sponseeRegistry interface {
	ResolveOrCreate(ctx context.Context, identifier string) (*domain.Sponsee, error)
	Get(ctx context.Context, index int64) (*domain.Sponsee, error)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service is the ingestion pipeline.
type Service struct {
	log      *slog.Logger
	store    letterStore
	sponsees sponseeRegistry
	cfg      config.IngestConfig
	clock    func() time.Time
}

// NewService creates a new ingestion Service.
func NewService(logger *slog.Logger, store letterStore, sponsees sponseeRegistry, cfg config.IngestConfig) *Service {
	return &Service{
		log:      logger.With("service", "ingest"),
		store:    store,
		sponsees: sponsees,
		cfg:      cfg,
		clock:    time.Now,
	}
}

// Input is one scanned envelope ready for ingestion.
type Input struct {
	Scan domain.EnvelopeScan
	OCR  domain.OCRResult
	// SponseeIndex, when set, overrides the identifier extracted by OCR
	// (a manual match by the operator).
	SponseeIndex *int64
	Actor        domain.Actor
}

// Validate checks all fields and collects all errors.
func (i *Input) Validate() error {
	var errs []domain.FieldError

	if i.Scan.EnvelopeImagePath == "" {
		errs = append(errs, domain.FieldError{Field: "envelope_image_path", Message: "required"})
	}
	if err := domain.ValidateConfidence(i.OCR.Confidence); err != nil {
		errs = append(errs, domain.FieldError{Field: "ocr_confidence", Message: "must be within [0, 1]"})
	}
	if i.SponseeIndex == nil && (i.OCR.ExtractedID == nil || *i.OCR.ExtractedID == "") {
		errs = append(errs, domain.FieldError{Field: "sponsee", Message: "no sponsee index given and none extracted"})
	}
	if i.SponseeIndex != nil && *i.SponseeIndex <= 0 {
		errs = append(errs, domain.FieldError{Field: "sponsee_index", Message: "must be positive"})
	}
	if i.Actor.ID == "" {
		errs = append(errs, domain.FieldError{Field: "actor", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Ingest resolves the sponsee and creates the letter with date_scanned set
// to today. Low-confidence OCR never blocks ingestion; the letter is flagged
// for manual review in processor_notes instead.
func (s *Service) Ingest(ctx context.Context, input Input) (*domain.Letter, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	sponsee, err := s.resolveSponsee(ctx, input)
	if err != nil {
		return nil, err
	}

	today := domain.FormatDate(s.clock())
	confidence := strconv.FormatFloat(input.OCR.Confidence, 'f', -1, 64)

	fields := []letter.Change{
		{Field: domain.FieldSponseeCode, Value: &sponsee.Code},
		{Field: domain.FieldEnvelopeImagePath, Value: &input.Scan.EnvelopeImagePath},
		{Field: domain.FieldLetterPagesImagePath, Value: input.Scan.LetterPagesImagePath},
		{Field: domain.FieldStepWork, Value: input.Scan.StepWork},
		{Field: domain.FieldDateScanned, Value: &today},
		{Field: domain.FieldOCRText, Value: &input.OCR.Text},
		{Field: domain.FieldOCRConfidence, Value: &confidence},
		{Field: domain.FieldReturnAddress, Value: input.OCR.ExtractedReturnAddress},
		{Field: domain.FieldRawOCRArtifactPath, Value: &input.OCR.ArtifactPath},
	}
	if input.Scan.DatePickedUp != nil {
		fields = append(fields, letter.Change{Field: domain.FieldDatePickedUp, Value: domain.Ptr(domain.FormatDate(*input.Scan.DatePickedUp))})
	}
	if input.Scan.DatePostmarked != nil {
		fields = append(fields, letter.Change{Field: domain.FieldDatePostmarked, Value: domain.Ptr(domain.FormatDate(*input.Scan.DatePostmarked))})
	}

	needsReview := input.OCR.Confidence < s.cfg.ReviewThreshold
	if needsReview {
		note := fmt.Sprintf("MANUAL REVIEW REQUIRED: OCR confidence %.2f below threshold %.2f",
			input.OCR.Confidence, s.cfg.ReviewThreshold)
		fields = append(fields, letter.Change{Field: domain.FieldProcessorNotes, Value: &note})
	}

	l, err := s.store.Create(ctx, letter.CreateInput{
		SponseeIndex: sponsee.Index,
		Fields:       fields,
		Actor:        input.Actor,
		Details:      "ingested from " + input.Scan.EnvelopeImagePath,
	})
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if needsReview {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "letter ingested",
		slog.Int64("letter_id", l.ID),
		slog.Int64("sponsee_index", l.SponseeIndex),
		slog.Float64("ocr_confidence", input.OCR.Confidence),
		slog.Bool("needs_review", needsReview),
	)
	return l, nil
}

func (s *Service) resolveSponsee(ctx context.Context, input Input) (*domain.Sponsee, error) {
	if input.SponseeIndex != nil {
		sp, err := s.sponsees.Get(ctx, *input.SponseeIndex)
		if err != nil {
			return nil, fmt.Errorf("resolve sponsee %d: %w", *input.SponseeIndex, err)
		}
		return sp, nil
	}
	sp, err := s.sponsees.ResolveOrCreate(ctx, *input.OCR.ExtractedID)
	if err != nil {
		return nil, fmt.Errorf("resolve extracted sponsee: %w", err)
	}
	return sp, nil
}

// SyncSponseeCodes rewrites each letter's sponsee_code from the registry.
// Every correction is an audited field update. It returns the number of
// letters changed.
func (s *Service) SyncSponseeCodes(ctx context.Context, actor domain.Actor) (int, error) {
	type fix struct {
		id   int64
		code string
	}

	// SQLite holds its only connection while a listing is open, so the
	// registry is consulted after the cursor is closed.
	letters, err := letter.Collect(s.store.List(ctx, domain.LetterFilter{}))
	if err != nil {
		return 0, err
	}

	codes := make(map[int64]string)
	var fixes []fix
	for _, l := range letters {
		code, ok := codes[l.SponseeIndex]
		if !ok {
			sp, err := s.sponsees.Get(ctx, l.SponseeIndex)
			if err != nil {
				return 0, fmt.Errorf("sync sponsee %d: %w", l.SponseeIndex, err)
			}
			code = sp.Code
			codes[l.SponseeIndex] = code
		}
		if l.SponseeCode != code {
			fixes = append(fixes, fix{id: l.ID, code: code})
		}
	}

	for _, f := range fixes {
		if _, err := s.store.UpdateField(ctx, letter.UpdateFieldInput{
			LetterID: f.id,
			Field:    domain.FieldSponseeCode,
			Value:    &f.code,
			Actor:    actor,
			Reason:   "sponsee code synced from registry",
		}); err != nil {
			return 0, fmt.Errorf("sync letter %d: %w", f.id, err)
		}
	}

	s.log.InfoContext(ctx, "sponsee codes synced", slog.Int("updated", len(fixes)))
	return len(fixes), nil
}
