// Package middleware holds the canonical HTTP ingress stack. Order matters:
// recovery outermost, then correlation, then browser concerns, then
// observability, then rate limiting.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/tenantry/rentd/internal/log"
)

// StackConfig configures the shared ingress middleware stack.
type StackConfig struct {
	AllowedOrigins []string

	EnableMetrics bool
	EnableLogging bool

	// RateLimitRPM caps requests per minute per client IP; 0 disables.
	RateLimitRPM int
}

// NewRouter constructs a chi router with the ingress stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	Apply(r, cfg)
	return r
}

// Apply installs the ingress stack on r.
func Apply(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(SecurityHeaders)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.RateLimitRPM > 0 {
		r.Use(RateLimit(cfg.RateLimitRPM))
	}
}
