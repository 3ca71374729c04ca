package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// ActorHeader carries the authenticated actor id set by the upstream gateway.
const ActorHeader = "X-Actor-ID"

// ActorResolver extracts the acting user's id from a request. An empty
// result means the request is anonymous.
type ActorResolver interface {
	ResolveActor(r *http.Request) string
}

// HeaderActorResolver reads the actor id from a request header, ActorHeader by default.
type HeaderActorResolver struct {
	Header string
}

// ResolveActor implements ActorResolver.
func (h HeaderActorResolver) ResolveActor(r *http.Request) string {
	name := h.Header
	if name == "" {
		name = ActorHeader
	}
	return strings.TrimSpace(r.Header.Get(name))
}

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// actorIDKey is the context key for the acting user ID.
const actorIDKey ctxKey = "actorID"

// GetActorID returns the acting user ID from context.
// Returns 401 error if the request carries no actor.
func GetActorID(ctx context.Context) (string, error) {
	actorID, ok := ctx.Value(actorIDKey).(string)
	if !ok || actorID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return actorID, nil
}

// WithActorID stores the actor ID in context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// actorMiddleware stores the resolved actor in the request context.
// Anonymous requests continue without one; handlers use GetActorID to reject them.
func actorMiddleware(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := resolver.ResolveActor(r)
			if actorID == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActorID(r.Context(), actorID)))
		})
	}
}
