package middleware

import (
	"net/http"

	"github.com/tenantry/rentd/internal/auth"
)

// Authenticate verifies the bearer token and attaches the principal to the
// request context. Requests without a valid token get 401.
func Authenticate(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.ExtractToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			principal, err := issuer.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="rentd"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}
