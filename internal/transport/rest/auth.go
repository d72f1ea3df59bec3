package rest

import (
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
)

// AuthHandler serves token introspection for operators.
type AuthHandler struct {
	log *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{log: logger.With("handler", "auth")}
}

type whoAmIResponse struct {
	Actor string `json:"actor"`
	Admin bool   `json:"admin"`
}

// WhoAmI returns the actor the bearer token resolves to, which is the name
// written to the audit log for this operator's changes.
// GET /auth/whoami
func (h *AuthHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, whoAmIResponse{Actor: actor.ID, Admin: actor.Admin})
}
