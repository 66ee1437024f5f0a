package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Authenticator resolves a bearer token. *goSession.Engine implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*goSession.Identity, error)
}

// IdentityFromContext returns the identity stored by [Guard].
func IdentityFromContext(ctx context.Context) (*goSession.Identity, bool) {
	return goSession.IdentityFromContext(ctx)
}

// Guard rejects requests without a valid bearer token with a bare 401. The
// response never says whether the token was malformed, forged, expired or
// bound to a dead session. A store outage is a 503.
func Guard(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				unauthorized(w)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, goSession.ErrStoreUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(goSession.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run behind [Guard]. Non-admin identities get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if !id.Admin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
