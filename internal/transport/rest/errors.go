package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/pkg/ctxutil"
)

type errorResponse struct {
	Error   string               `json:"error"`
	Fields  []fieldError         `json:"fields,omitempty"`
	Field   string               `json:"field,omitempty"`
	Reject  *transitionRejection `json:"transition,omitempty"`
	Request string               `json:"request_id,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type transitionRejection struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Precondition string          `json:"precondition"`
	Letter       *letterResponse `json:"letter,omitempty"`
}

// handleError maps a service error to its HTTP status and body. Unexpected
// errors are logged and reported without detail.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *domain.ValidationError
		ife *domain.ImmutableFieldError
		te  *domain.TransitionError
	)

	switch {
	case errors.As(err, &te):
		resp := errorResponse{
			Error: "invalid transition",
			Reject: &transitionRejection{
				From:         te.From.String(),
				To:           te.To.String(),
				Precondition: te.Precondition,
			},
		}
		if te.Current != nil {
			lr := toLetterResponse(te.Current)
			resp.Reject.Letter = &lr
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &ve):
		fields := make([]fieldError, len(ve.Errors))
		for i, fe := range ve.Errors {
			fields[i] = fieldError{Field: fe.Field, Message: fe.Message}
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
	case errors.As(err, &ife):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "field is immutable", Field: ife.Field.String()})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrPersistence):
		requestID := ctxutil.RequestIDFromCtx(r.Context())
		log.ErrorContext(r.Context(), "storage unavailable",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable", Request: requestID})
	default:
		requestID := ctxutil.RequestIDFromCtx(r.Context())
		log.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Request: requestID})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
