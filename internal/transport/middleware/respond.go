package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/heartmarshall/lettertrack/pkg/ctxutil"
)

// errorBody matches the error payload written by the REST handlers.
type errorBody struct {
	Error   string `json:"error"`
	Request string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   message,
		Request: ctxutil.RequestIDFromCtx(r.Context()),
	})
}
