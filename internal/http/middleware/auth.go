package middleware

import (
	"context"
	"net/http"
	"strings"

	"openmusic/internal/logging"
)

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate resolves the bearer token, when present and valid, into a
// user ID stored on the request context. It never rejects a request;
// handlers that need a user call UserID and answer 401 themselves.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ParseBearerToken(r.Header.Get("Authorization"))
			if token != "" {
				if userID, err := verifier.Verify(token); err == nil {
					r = r.WithContext(logging.ContextWithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserID returns the authenticated user of the request, if any.
func UserID(ctx context.Context) (string, bool) {
	id := logging.UserID(ctx)
	return id, id != ""
}

// ParseBearerToken extracts the token from an Authorization header value.
func ParseBearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
