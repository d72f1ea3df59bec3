package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
)

type archiver interface {
	Archive(ctx context.Context, letterID int64, reason string, actor domain.Actor) (*domain.Letter, error)
}

type codeSyncer interface {
	SyncSponseeCodes(ctx context.Context, actor domain.Actor) (int, error)
}

// AdminHandler serves endpoints restricted to admin operators.
type AdminHandler struct {
	archiver archiver
	syncer   codeSyncer
	log      *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(a archiver, s codeSyncer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		archiver: a,
		syncer:   s,
		log:      logger.With("handler", "admin"),
	}
}

// Archive retires a letter. The reason is mandatory.
// POST /letters/{id}/archive
func (h *AdminHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireAdmin(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req archiveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	l, err := h.archiver.Archive(r.Context(), id, req.Reason, actor)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l))
}

// SyncSponseeCodes refreshes every letter's sponsee_code from the registry.
// POST /admin/sponsee-codes/sync
func (h *AdminHandler) SyncSponseeCodes(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireAdmin(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	n, err := h.syncer.SyncSponseeCodes(r.Context(), actor)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
