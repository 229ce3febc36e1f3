// Package health serves liveness and readiness probes with per-component
// detail, matching Docker HEALTHCHECK and Kubernetes probe semantics.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/tenantry/rentd/internal/log"
)

// Status is the health state of a component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body of /healthz and /readyz.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers and serves the probe endpoints.
type Manager struct {
	version  string
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

func (m *Manager) Register(c Checker) {
	m.checkers = append(m.checkers, c)
}

func (m *Manager) run(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		result := c.Check(ctx)
		resp.Checks[c.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// verboseRequested reports whether per-component detail was asked for.
// Absent or unparsable values mean compact output.
func verboseRequested(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("verbose"))
	return err == nil && v
}

// ServeHealth is the liveness probe. It answers 200 while the process runs;
// component detail is informational only and shown with ?verbose=true.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.run(r.Context())
	if !verboseRequested(r) {
		resp.Checks = nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Msg("encode health response")
	}
}

// ServeReady is the readiness probe. Any unhealthy component returns 503;
// ?verbose=true includes the per-component results.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.run(r.Context())
	if !verboseRequested(r) {
		resp.Checks = nil
	}
	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "readiness")
		logger.Error().Err(err).Msg("encode readiness response")
	}
}

// PingChecker wraps anything with a Ping method, e.g. the store or Redis.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// DirChecker verifies a directory exists, e.g. the upload root.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.path}
	}
	return CheckResult{Status: StatusHealthy}
}

// BillingChecker reports on the billing job. A failed or long-overdue run
// degrades readiness detail without failing the probe; invoices can be
// created manually in the meantime.
type BillingChecker struct {
	lastRun  func() (time.Time, string)
	staleAge time.Duration
}

func NewBillingChecker(lastRun func() (time.Time, string), staleAge time.Duration) *BillingChecker {
	return &BillingChecker{lastRun: lastRun, staleAge: staleAge}
}

func (c *BillingChecker) Name() string { return "billing_job" }

func (c *BillingChecker) Check(_ context.Context) CheckResult {
	lastRun, lastError := c.lastRun()
	if lastRun.IsZero() {
		return CheckResult{Status: StatusDegraded, Message: "no billing run yet"}
	}
	if lastError != "" {
		return CheckResult{Status: StatusDegraded, Error: lastError, Message: "last billing run failed"}
	}
	if time.Since(lastRun) > c.staleAge {
		return CheckResult{Status: StatusDegraded, Message: "billing run overdue"}
	}
	return CheckResult{Status: StatusHealthy}
}
