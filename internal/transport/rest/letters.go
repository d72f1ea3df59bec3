package rest

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/ingest"
	"github.com/heartmarshall/lettertrack/internal/service/letter"
	"github.com/heartmarshall/lettertrack/internal/service/lifecycle"
	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
)

type letterReader interface {
	Get(ctx context.Context, id int64) (*domain.Letter, error)
	List(ctx context.Context, filter domain.LetterFilter) iter.Seq2[*domain.Letter, error]
}

type lifecycleService interface {
	Transition(ctx context.Context, input lifecycle.TransitionInput) (*domain.Letter, error)
	UpdateField(ctx context.Context, input letter.UpdateFieldInput) (*domain.Letter, error)
	AppendNote(ctx context.Context, letterID int64, note string, actor domain.Actor) (*domain.Letter, error)
}

type ingestService interface {
	Ingest(ctx context.Context, input ingest.Input) (*domain.Letter, error)
}

// LetterHandler serves the letter endpoints.
type LetterHandler struct {
	letters   letterReader
	lifecycle lifecycleService
	ingest    ingestService
	maxLimit  int
	log       *slog.Logger
}

// NewLetterHandler creates a LetterHandler. maxLimit caps the page size of
// listings.
func NewLetterHandler(letters letterReader, lc lifecycleService, in ingestService, maxLimit int, logger *slog.Logger) *LetterHandler {
	return &LetterHandler{
		letters:   letters,
		lifecycle: lc,
		ingest:    in,
		maxLimit:  maxLimit,
		log:       logger.With("handler", "letters"),
	}
}

// Get returns one letter.
// GET /letters/{id}
func (h *LetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	l, err := h.letters.Get(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l))
}

// List returns a page of letters.
// GET /letters?status=scanned,processing&sponsee=4&date_field=date_scanned&from=2025-09-01&to=2025-09-30&after=0&limit=50
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	filter, err := h.parseFilter(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	resp := letterListResponse{Letters: []letterResponse{}}
	for l, err := range h.letters.List(r.Context(), filter) {
		if err != nil {
			handleError(h.log, w, r, err)
			return
		}
		resp.Letters = append(resp.Letters, toLetterResponse(l))
	}
	if len(resp.Letters) == filter.Limit {
		resp.NextAfter = resp.Letters[len(resp.Letters)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LetterHandler) parseFilter(r *http.Request) (domain.LetterFilter, error) {
	q := r.URL.Query()
	filter := domain.LetterFilter{Limit: h.maxLimit}
	var errs []domain.FieldError

	if v := q.Get("status"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			s, err := domain.ParseStatus(raw)
			if err != nil {
				errs = append(errs, domain.FieldError{Field: "status", Message: "unknown status " + raw})
				continue
			}
			if !slices.Contains(filter.Statuses, s) {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}
	if v := q.Get("sponsee"); v != "" {
		idx, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "sponsee", Message: "must be an integer"})
		} else {
			filter.SponseeIndex = &idx
		}
	}
	if v := q.Get("date_field"); v != "" {
		filter.DateField = domain.LetterField(v)
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := domain.ParseDate(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: name, Message: "unrecognized date"})
			continue
		}
		*dst = &d
	}
	if v := q.Get("after"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "after", Message: "must be an integer"})
		}
		filter.AfterID = after
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			errs = append(errs, domain.FieldError{Field: "limit", Message: "must be a positive integer"})
		} else {
			filter.Limit = min(limit, h.maxLimit)
		}
	}

	if len(errs) > 0 {
		slices.SortFunc(errs, func(a, b domain.FieldError) int { return strings.Compare(a.Field, b.Field) })
		return filter, domain.NewValidationErrors(errs)
	}
	return filter, filter.Validate()
}

// Ingest creates a letter from a scanned envelope and its OCR result.
// POST /letters
func (h *LetterHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input := ingest.Input{
		Scan: domain.EnvelopeScan{
			EnvelopeImagePath:    req.EnvelopeImagePath,
			LetterPagesImagePath: req.LetterPagesImagePath,
			StepWork:             req.StepWork,
		},
		OCR: domain.OCRResult{
			Text:                   req.OCR.Text,
			Confidence:             req.OCR.Confidence,
			ExtractedReturnAddress: req.OCR.ExtractedReturnAddress,
			ArtifactPath:           req.OCR.ArtifactPath,
			ExtractedID:            req.OCR.ExtractedID,
		},
		SponseeIndex: req.SponseeIndex,
		Actor:        actor,
	}
	if input.Scan.DatePickedUp, err = optionalDate("date_picked_up", req.DatePickedUp); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if input.Scan.DatePostmarked, err = optionalDate("date_postmarked", req.DatePostmarked); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	l, err := h.ingest.Ingest(r.Context(), input)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLetterResponse(l))
}

// UpdateField sets or clears one field.
// PATCH /letters/{id}/fields/{field}
func (h *LetterHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req fieldUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := h.lifecycle.UpdateField(r.Context(), letter.UpdateFieldInput{
		LetterID: id,
		Field:    domain.LetterField(r.PathValue("field")),
		Value:    req.Value,
		Actor:    actor,
		Reason:   req.Reason,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l))
}

// Transition moves a letter to another status.
// POST /letters/{id}/transitions
func (h *LetterHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req transitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, err := domain.ParseStatus(req.To)
	if err != nil {
		handleError(h.log, w, r, domain.NewValidationError("to", "unknown status "+req.To))
		return
	}

	changes := make([]letter.Change, 0, len(req.Changes))
	for _, field := range slices.Sorted(maps.Keys(req.Changes)) {
		changes = append(changes, letter.Change{Field: domain.LetterField(field), Value: req.Changes[field]})
	}

	l, err := h.lifecycle.Transition(r.Context(), lifecycle.TransitionInput{
		LetterID: id,
		To:       to,
		Changes:  changes,
		Actor:    actor,
		Reason:   req.Reason,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l))
}

// AppendNote adds a dated line to processor_notes.
// POST /letters/{id}/notes
func (h *LetterHandler) AppendNote(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req noteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := h.lifecycle.AppendNote(r.Context(), id, req.Note, actor)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("letter_id", "must be a positive integer")
	}
	return id, nil
}

func optionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(*raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "unrecognized date "+*raw)
	}
	return &d, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
