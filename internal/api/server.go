// Package api implements the rentd HTTP surface: auth, users, properties,
// leases, maintenance, payments, notifications, uploads and dashboards.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenantry/rentd/internal/api/middleware"
	"github.com/tenantry/rentd/internal/auth"
	"github.com/tenantry/rentd/internal/cache"
	"github.com/tenantry/rentd/internal/config"
	"github.com/tenantry/rentd/internal/files"
	"github.com/tenantry/rentd/internal/health"
	"github.com/tenantry/rentd/internal/notify"
	"github.com/tenantry/rentd/internal/payments"
	"github.com/tenantry/rentd/internal/sessions"
	"github.com/tenantry/rentd/internal/store"
)

// Server wires the subsystems behind the HTTP handlers.
type Server struct {
	cfg       config.AppConfig
	store     store.Store
	sessions  *sessions.Store
	tokens    *auth.TokenIssuer
	notifier  *notify.Notifier
	providers *payments.Registry
	files     *files.Store
	cache     cache.Cache
	health    *health.Manager
}

// Deps are the constructed subsystems the server serves from.
type Deps struct {
	Store     store.Store
	Sessions  *sessions.Store
	Tokens    *auth.TokenIssuer
	Notifier  *notify.Notifier
	Providers *payments.Registry
	Files     *files.Store
	Cache     cache.Cache
	Health    *health.Manager
}

// NewServer creates the API server.
func NewServer(cfg config.AppConfig, deps Deps) *Server {
	return &Server{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		notifier:  deps.Notifier,
		providers: deps.Providers,
		files:     deps.Files,
		cache:     deps.Cache,
		health:    deps.Health,
	}
}

// Router builds the chi router with the full middleware stack and routes.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
		EnableMetrics:  s.cfg.MetricsEnabled,
		EnableLogging:  true,
		RateLimitRPM:   s.cfg.RateLimitRPM,
	})

	r.Get("/", s.handleBanner)
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Mount("/files", http.StripPrefix("/files", s.files.Handler()))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", s.handleInfo)

		r.Group(func(r chi.Router) {
			// Credential endpoints get their own, much stricter limit.
			r.Use(middleware.RateLimit(s.cfg.AuthRateRPM))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/refresh", s.handleRefresh)
			r.Post("/auth/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.tokens))

			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Get("/users/{id}", s.handleGetUser)
			r.Put("/users/{id}", s.handleUpdateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			r.Get("/properties", s.handleListProperties)
			r.Post("/properties", s.handleCreateProperty)
			r.Get("/properties/{id}", s.handleGetProperty)
			r.Put("/properties/{id}", s.handleUpdateProperty)
			r.Delete("/properties/{id}", s.handleDeleteProperty)
			r.Post("/properties/{id}/units", s.handleCreateUnit)
			r.Get("/units", s.handleListUnits)

			r.Get("/tenants", s.handleListTenants)
			r.Put("/tenants/{id}/lease", s.handleSetLease)
			r.Delete("/tenants/{id}/lease", s.handleEndLease)
			r.Post("/tenants/{id}/lease/document", s.handleUploadLeaseDocument)

			r.Post("/maintenance/requests", s.handleCreateMaintenance)
			r.Get("/maintenance/requests", s.handleListMaintenance)
			r.Get("/maintenance/requests/{id}", s.handleGetMaintenance)
			r.Put("/maintenance/requests/{id}", s.handleUpdateMaintenance)
			r.Delete("/maintenance/requests/{id}", s.handleDeleteMaintenance)
			r.Post("/maintenance/requests/{id}/assign", s.handleAssignMaintenance)
			r.Post("/maintenance/requests/{id}/status", s.handleMaintenanceStatus)
			r.Post("/maintenance/requests/{id}/photos", s.handleMaintenancePhoto)

			r.Get("/payments", s.handleListPayments)
			r.Post("/payments/intent", s.handlePaymentIntent)
			r.Post("/payments/confirm", s.handlePaymentConfirm)
			r.Get("/payments/{id}/receipt", s.handlePaymentReceipt)
			r.Get("/reports/rent-due", s.handleRentDueReport)

			r.Get("/notifications", s.handleListNotifications)
			r.Post("/notifications", s.handleSendNotification)
			r.Post("/notifications/{id}/read", s.handleMarkNotificationRead)

			r.Post("/files/upload", s.handleFileUpload)

			r.Get("/dashboard/tenant", s.handleTenantDashboard)
			r.Get("/dashboard/staff", s.handleStaffDashboard)
			r.Get("/dashboard/admin", s.handleAdminDashboard)
		})
	})

	return r
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "rentd",
		"version":     s.cfg.Version,
		"environment": s.cfg.Environment,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "rentd",
		"version": s.cfg.Version,
		"endpoints": map[string]string{
			"auth":          "/api/v1/auth/{register,login,refresh,logout}",
			"profile":       "/api/v1/profile",
			"users":         "/api/v1/users",
			"properties":    "/api/v1/properties",
			"units":         "/api/v1/units",
			"tenants":       "/api/v1/tenants",
			"maintenance":   "/api/v1/maintenance/requests",
			"payments":      "/api/v1/payments",
			"notifications": "/api/v1/notifications",
			"files":         "/api/v1/files/upload",
			"dashboards":    "/api/v1/dashboard/{tenant,staff,admin}",
			"health":        "/healthz",
		},
	})
}
