package httpx

import (
	"net/http"
	"strings"

	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
)

// SessionCookieName is the cookie browsers carry the session token in.
const SessionCookieName = "dreamscape_session"

// AuthnMiddleware requires a valid session token, taken from the
// Authorization header or, failing that, the session cookie.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := SessionToken(r)
			if raw == "" {
				writeUnauthorized(w, "missing session token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			if err := claims.ValidatePurpose(jwtx.PurposeSession); err != nil {
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			ctx = slogx.With(ContextWithClaims(ctx, claims), "user_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken extracts the raw token from a request, or "".
func SessionToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}
