package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/pkg/ctxutil"
)

func TestRecovery_PassesThrough(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	rec := httptest.NewRecorder()
	Recovery(logger)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/letters/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery_PanicBecomesJSONError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil letter")
	}))

	req := httptest.NewRequest(http.MethodPost, "/letters/7/transitions", nil)
	ctx := ctxutil.WithRequestID(req.Context(), "req-42")
	ctx = ctxutil.WithActor(ctx, domain.Actor{ID: "ana"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errorBody{Error: "internal error", Request: "req-42"}, body)

	logged := buf.String()
	assert.Contains(t, logged, "handler panic")
	assert.Contains(t, logged, "nil letter")
	assert.Contains(t, logged, "request_id=req-42")
	assert.Contains(t, logged, "actor=ana")
	assert.Contains(t, logged, "/letters/7/transitions")
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	h := Recovery(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/audit", nil))
	})
}

func TestRecovery_LogsActorAuthenticatedDownstream(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ctxutil.WithActor(r.Context(), domain.Actor{ID: "rosa"})
		panic("after auth")
	})

	rec := httptest.NewRecorder()
	Recovery(logger)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "actor=rosa")
}
