package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// CookieName is the session cookie. The value is a signed token.
const CookieName = "userId"

// contextKey is unexported so no other package can read or shadow the
// values this package stores in a request context.
type contextKey string

const sessionKey contextKey = "session"

// RevocationChecker is the read side of the revocation store.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RequireAuth rejects requests without a valid, unrevoked session cookie
// with 401 and stores the Session in the request context otherwise.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService, revoked RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := extractSession(r, tokens)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
				return
			}

			isRevoked, err := revoked.IsRevoked(r.Context(), session.TokenID)
			if err != nil {
				logger.Error("checking session revocation",
					slog.String("tokenID", session.TokenID),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}
			if isRevoked {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "session has been logged out")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// OptionalAuth attaches the session when a valid, unrevoked cookie is
// present and never blocks the request. The login route uses it to avoid
// reissuing a cookie the caller already holds.
func OptionalAuth(tokens *TokenService, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := extractSession(r, tokens); err == nil {
				if isRevoked, err := revoked.IsRevoked(r.Context(), session.TokenID); err == nil && !isRevoked {
					r = r.WithContext(WithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session RequireAuth or OptionalAuth stored.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == "" {
		return "", false
	}
	return s.UserID, true
}

func extractSession(r *http.Request, tokens *TokenService) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}
	return tokens.Validate(cookie.Value)
}

// writeAuthError matches the handler package's error body. It's duplicated
// here because auth sits below handler in the import graph.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
