// Package ctxutil carries request-scoped values through context.
package ctxutil

import (
	"context"
	"log/slog"
	"sync"

	"github.com/heartmarshall/lettertrack/internal/domain"
)

type ctxKey string

const (
	actorKey     ctxKey = "actor"
	requestIDKey ctxKey = "request_id"
	traceKey     ctxKey = "trace"
)

// WithActor stores the authenticated actor in the context and records its
// ID on the enclosing Trace, if any.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	if t := TraceFromCtx(ctx); t != nil {
		t.setActor(actor.ID)
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromCtx extracts the actor from the context.
// Returns false if the value is missing, has an empty ID, or has the wrong type.
func ActorFromCtx(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	if !ok || actor.ID == "" {
		return domain.Actor{}, false
	}
	return actor, true
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Trace is filled in by inner handlers and read by outer ones, which only
// hold the context they passed down.
type Trace struct {
	mu    sync.Mutex
	actor string
}

// WithTrace returns ctx carrying a Trace. An existing Trace is reused.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	if t := TraceFromCtx(ctx); t != nil {
		return ctx, t
	}
	t := &Trace{}
	return context.WithValue(ctx, traceKey, t), t
}

// TraceFromCtx returns the Trace in ctx or nil.
func TraceFromCtx(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey).(*Trace)
	return t
}

func (t *Trace) setActor(id string) {
	t.mu.Lock()
	t.actor = id
	t.mu.Unlock()
}

// Actor returns the ID recorded by WithActor further down the chain.
func (t *Trace) Actor() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actor
}

// LogAttrs returns the request_id and actor attributes known to ctx.
func LogAttrs(ctx context.Context) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2)
	if id := RequestIDFromCtx(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}

	id := ""
	if actor, ok := ActorFromCtx(ctx); ok {
		id = actor.ID
	} else if t := TraceFromCtx(ctx); t != nil {
		id = t.Actor()
	}
	if id != "" {
		attrs = append(attrs, slog.String("actor", id))
	}
	return attrs
}
