package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type contextKeyActor struct{}

// ContextKeyActor is exported for use in handlers and tests.
var ContextKeyActor = contextKeyActor{}

// ActorFrom retrieves the acting identity from the context; unauthenticated
// requests see the anonymous actor.
func ActorFrom(ctx context.Context) Actor {
	actor, ok := ctx.Value(ContextKeyActor).(Actor)
	if !ok {
		return Anonymous
	}
	return actor
}

// WithActor stores an actor in the context; tests use it directly.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// SessionChecker reports whether a session is still live.
type SessionChecker interface {
	Live(ctx context.Context, sessionID string) (bool, error)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

// Identify resolves the bearer token, if any, into an actor on the request
// context. Requests without credentials proceed as anonymous; whether that is
// enough is each handler's decision.
func Identify(issuer *TokenIssuer, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "authorization header is not a bearer token")
				return
			}
			actor, sessionID, err := issuer.Validate(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
				return
			}
			if sessions != nil {
				live, err := sessions.Live(r.Context(), sessionID)
				if err != nil {
					logger.ErrorContext(r.Context(), "session check failed", "error", err)
					writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "session store unavailable")
					return
				}
				if !live {
					writeJSONError(w, http.StatusUnauthorized, "invalid_token", "session revoked or expired")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdminToken gates the medal-boundary and event-flag mutations behind
// a shared operations token, on top of the actor's own capability.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(r.Context(), "admin token mismatch")
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests whose actor is not an administrator.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if !actor.IsAdmin() {
				logger.WarnContext(r.Context(), "admin capability required",
					"actor_kind", string(actor.Kind),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "administrator capability required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
