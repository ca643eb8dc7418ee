package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/xavierca1/prospect-crm/internal/auth"
	"github.com/xavierca1/prospect-crm/internal/entity"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const sessionKey ContextKey = "session"

// SessionValidator resolves a bearer token. *auth.Service satisfies it.
type SessionValidator interface {
	CurrentSession(token string) (*auth.Session, error)
}

// Authenticate rejects requests without a live session and stores the
// session in the request context.
func Authenticate(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			session, err := sessions.CurrentSession(token)
			if err != nil {
				msg := "invalid session"
				if errors.Is(err, auth.ErrRevoked) {
					msg = "session revoked"
				}
				unauthorized(w, msg)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for EventSource clients that cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "UNAUTHORIZED", "message": msg})
}

func SessionFrom(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*auth.Session)
	return s, ok
}

// ActorFrom returns the authenticated actor, or the zero Actor outside
// Authenticate.
func ActorFrom(ctx context.Context) entity.Actor {
	if s, ok := SessionFrom(ctx); ok {
		return s.Actor()
	}
	return entity.Actor{}
}

// WithSession is for handlers tested without the middleware.
func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}
