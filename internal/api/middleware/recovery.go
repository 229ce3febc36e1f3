package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/getsentry/sentry-go"

	"github.com/tenantry/rentd/internal/log"
)

// Recoverer keeps handler panics from crashing the process. The panic is
// logged with its stack, forwarded to Sentry when configured, and answered
// with a 500 JSON body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				reqID := log.RequestIDFromContext(r.Context())
				logger := log.WithComponentFromContext(r.Context(), "recovery")
				logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", reqID).
					Interface("panic_value", rec).
					Str("stack", string(buf[:n])).
					Msg("panic recovered in HTTP handler")

				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub.Recover(fmt.Errorf("panic: %v", rec))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":      "internal server error",
					"request_id": reqID,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
