package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// Authenticator resolves an API key to the actor it is bound to.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (domain.Actor, error)
}

type actorKey struct{}

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by the auth middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

// Auth is HTTP middleware for API key authentication.
type Auth struct {
	authenticator Authenticator
}

// NewAuth creates a new auth middleware.
func NewAuth(authenticator Authenticator) *Auth {
	return &Auth{authenticator: authenticator}
}

// Validate is a chi middleware that authenticates "Authorization: Bearer <api-key>"
// and stores the key's actor in the request context.
func (a *Auth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			slog.WarnContext(ctx, "Authentication failed: missing Authorization header", "path", r.URL.Path, "method", r.Method)
			response.Unauthorized(w, "missing Authorization header")
			return
		}

		apiKey, found := strings.CutPrefix(header, "Bearer ")
		if !found || apiKey == "" {
			slog.WarnContext(ctx, "Authentication failed: invalid Authorization header format", "path", r.URL.Path, "method", r.Method)
			response.Unauthorized(w, "invalid Authorization header format, expected: Bearer <token>")
			return
		}

		actor, err := a.authenticator.Authenticate(ctx, apiKey)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				slog.WarnContext(ctx, "Authentication failed: invalid or expired API key", "path", r.URL.Path, "method", r.Method)
			} else {
				slog.ErrorContext(ctx, "Authentication failed: unexpected error", "path", r.URL.Path, "method", r.Method, "error", err)
			}
			response.Unauthorized(w, "invalid or expired API key")
			return
		}

		slog.DebugContext(ctx, "Authentication successful", "actor_id", actor.ID, "role", actor.Role)
		next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
	})
}
