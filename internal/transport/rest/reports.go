package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/service/report"
	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
)

type reportService interface {
	StatusSummary(ctx context.Context) ([]domain.StatusCount, error)
	AuditTrail(ctx context.Context, letterID int64) ([]domain.AuditEntry, error)
	VerifyTrail(ctx context.Context, letterID int64) (*report.TrailReport, error)
	ExportAudit(ctx context.Context, w io.Writer, filter domain.AuditFilter) (int, error)
}

// ReportHandler serves audit and reporting endpoints.
type ReportHandler struct {
	reports reportService
	log     *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports reportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		log:     logger.With("handler", "reports"),
	}
}

// StatusSummary returns letter counts per status.
// GET /reports/status
func (h *ReportHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	counts, err := h.reports.StatusSummary(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	resp := make([]statusCountResponse, 0, len(counts))
	for _, c := range counts {
		resp = append(resp, statusCountResponse{
			Status:       c.Status.String(),
			Count:        c.Count,
			EarliestScan: dateString(c.EarliestScan),
			LatestScan:   dateString(c.LatestScan),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AuditTrail returns one letter's audit entries in log order.
// GET /letters/{id}/audit
func (h *ReportHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	entries, err := h.reports.AuditTrail(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	records := make([]report.AuditRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, report.NewAuditRecord(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": records})
}

// VerifyTrail replays a letter's trail against its current values.
// GET /letters/{id}/verify
func (h *ReportHandler) VerifyTrail(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	rep, err := h.reports.VerifyTrail(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ExportAudit streams audit entries as JSON Lines.
// GET /audit?letter_id=3&action=status_changed&field=status&actor=ana&after=0&since=...&until=...&limit=100
func (h *ReportHandler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireActor(r.Context()); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	filter, err := parseAuditFilter(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if err := filter.Validate(); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if _, err := h.reports.ExportAudit(r.Context(), w, filter); err != nil {
		// Headers are gone; the truncated stream is all the client sees.
		h.log.ErrorContext(r.Context(), "audit export interrupted", slog.String("error", err.Error()))
	}
}

func parseAuditFilter(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()
	var filter domain.AuditFilter
	var errs []domain.FieldError

	intParam := func(name string) (int64, bool) {
		v := q.Get(name)
		if v == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: name, Message: "must be an integer"})
			return 0, false
		}
		return n, true
	}
	timeParam := func(name string) *time.Time {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: name, Message: "must be RFC 3339"})
			return nil
		}
		return &t
	}

	if id, ok := intParam("letter_id"); ok {
		filter.LetterID = &id
	}
	if after, ok := intParam("after"); ok {
		filter.AfterLogID = after
	}
	if limit, ok := intParam("limit"); ok {
		filter.Limit = int(limit)
	}
	if v := q.Get("action"); v != "" {
		a := domain.AuditAction(v)
		filter.Action = &a
	}
	if v := q.Get("field"); v != "" {
		f := domain.LetterField(v)
		filter.Field = &f
	}
	if v := q.Get("actor"); v != "" {
		filter.Actor = &v
	}
	filter.Since = timeParam("since")
	filter.Until = timeParam("until")

	if len(errs) > 0 {
		return filter, domain.NewValidationErrors(errs)
	}
	return filter, nil
}
