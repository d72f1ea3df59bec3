package middleware

import (
	"context"

	"github.com/heartmarshall/lettertrack/internal/domain"
	"github.com/heartmarshall/lettertrack/pkg/ctxutil"
)

// RequireActor returns the authenticated actor or domain.ErrUnauthorized.
// Use in REST handlers, not as HTTP middleware.
func RequireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ctxutil.ActorFromCtx(ctx)
	if !ok {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

// RequireAdmin returns domain.ErrUnauthorized for anonymous requests and
// domain.ErrForbidden if the actor is not an admin.
func RequireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := RequireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if !actor.Admin {
		return domain.Actor{}, domain.ErrForbidden
	}
	return actor, nil
}
