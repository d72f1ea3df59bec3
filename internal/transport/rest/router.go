package rest

import (
	"net/http"

	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Health  *HealthHandler
	Letters *LetterHandler
	Admin   *AdminHandler
	Auth    *AuthHandler
	Reports *ReportHandler
}

// NewRouter builds the HTTP route table. writeLimit wraps every mutating
// route and may be nil; global wraps the whole mux, outermost first.
func NewRouter(h Handlers, writeLimit middleware.Middleware, global ...middleware.Middleware) http.Handler {
	limited := middleware.Chain(writeLimit)
	write := func(fn http.HandlerFunc) http.Handler { return limited(fn) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("GET /auth/whoami", h.Auth.WhoAmI)

	mux.HandleFunc("GET /letters", h.Letters.List)
	mux.HandleFunc("GET /letters/{id}", h.Letters.Get)
	mux.Handle("POST /letters", write(h.Letters.Ingest))
	mux.Handle("PATCH /letters/{id}/fields/{field}", write(h.Letters.UpdateField))
	mux.Handle("POST /letters/{id}/transitions", write(h.Letters.Transition))
	mux.Handle("POST /letters/{id}/notes", write(h.Letters.AppendNote))

	mux.Handle("POST /letters/{id}/archive", write(h.Admin.Archive))
	mux.Handle("POST /admin/sponsee-codes/sync", write(h.Admin.SyncSponseeCodes))

	mux.HandleFunc("GET /letters/{id}/audit", h.Reports.AuditTrail)
	mux.HandleFunc("GET /letters/{id}/verify", h.Reports.VerifyTrail)
	mux.HandleFunc("GET /audit", h.Reports.ExportAudit)
	mux.HandleFunc("GET /reports/status", h.Reports.StatusSummary)

	return middleware.Chain(global...)(mux)
}
