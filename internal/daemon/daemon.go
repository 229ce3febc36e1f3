// Package daemon owns the rentd process lifecycle: it starts the API and
// metrics listeners plus background jobs, then tears everything down in
// reverse order on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenantry/rentd/internal/config"
	"github.com/tenantry/rentd/internal/log"
)

// ErrNotStarted is returned by Shutdown when Start was never called.
var ErrNotStarted = errors.New("daemon: not started")

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order.
type ShutdownHook func(ctx context.Context) error

// Job is a long-running background task. It must return promptly when ctx
// is cancelled.
type Job func(ctx context.Context) error

// Deps are the runtime pieces the manager supervises.
type Deps struct {
	// APIHandler serves the main listener. Required.
	APIHandler http.Handler
	// MetricsHandler, when set together with MetricsAddr, gets its own
	// listener so scrapes never compete with tenant traffic.
	MetricsHandler http.Handler
	MetricsAddr    string
}

// Validate reports missing required dependencies.
func (d Deps) Validate() error {
	if d.APIHandler == nil {
		return errors.New("daemon: API handler is required")
	}
	if d.MetricsHandler != nil && d.MetricsAddr == "" {
		return errors.New("daemon: metrics handler set without a metrics address")
	}
	return nil
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type namedJob struct {
	name string
	job  Job
}

// Manager runs the servers and jobs and blocks until shutdown.
type Manager struct {
	serverCfg config.ServerConfig
	deps      Deps
	logger    zerolog.Logger

	apiServer     *http.Server
	metricsServer *http.Server

	jobs    []namedJob
	jobWG   sync.WaitGroup
	jobStop context.CancelFunc

	mu       sync.Mutex
	started  bool
	stopping bool
	hooks    []namedHook
}

// NewManager validates deps and creates a Manager.
func NewManager(serverCfg config.ServerConfig, deps Deps) (*Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    log.WithComponent("daemon"),
	}, nil
}

// RegisterShutdownHook registers cleanup to run during shutdown, LIFO.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}

// RegisterJob registers a background task started alongside the servers.
// Must be called before Start.
func (m *Manager) RegisterJob(name string, job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, namedJob{name: name, job: job})
}

// Start brings up the listeners and jobs and blocks until ctx is cancelled
// or a server fails, then shuts everything down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("starting daemon")

	errChan := make(chan error, 2)

	if m.deps.MetricsHandler != nil {
		m.startMetricsServer(errChan)
	}
	m.startAPIServer(errChan)
	m.startJobs(ctx)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server failed, shutting down")
		shutdownCtx, cancel := m.shutdownContext(ctx)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := m.shutdownContext(ctx)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// shutdownContext is detached from the (already cancelled) parent but bounded
// so shutdown cannot hang.
func (m *Manager) shutdownContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := m.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (m *Manager) startAPIServer(errChan chan<- error) {
	m.apiServer = &http.Server{
		Addr:              m.serverCfg.ListenAddr,
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadHeaderTimeout,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
	}
	go func() {
		m.logger.Info().Str("addr", m.apiServer.Addr).Msg("API server listening")
		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()
}

func (m *Manager) startMetricsServer(errChan chan<- error) {
	m.metricsServer = &http.Server{
		Addr:              m.deps.MetricsAddr,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: m.serverCfg.ReadHeaderTimeout,
	}
	go func() {
		m.logger.Info().Str("addr", m.metricsServer.Addr).Msg("metrics server listening")
		if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

func (m *Manager) startJobs(ctx context.Context) {
	jobCtx, cancel := context.WithCancel(ctx)
	m.jobStop = cancel

	for _, j := range m.jobs {
		m.jobWG.Add(1)
		go func(j namedJob) {
			defer m.jobWG.Done()
			m.logger.Info().Str("job", j.name).Msg("job started")
			if err := j.job(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Str("job", j.name).Msg("job exited with error")
			}
		}(j)
	}
}

// Shutdown stops the servers, cancels jobs and runs hooks in LIFO order.
// It is safe to call concurrently; only the first call does the work.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.stopping = true
	hooks := make([]namedHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down")

	var errs []error

	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if m.jobStop != nil {
		m.jobStop()
		jobsDone := make(chan struct{})
		go func() {
			m.jobWG.Wait()
			close(jobsDone)
		}()
		select {
		case <-jobsDone:
		case <-ctx.Done():
			errs = append(errs, errors.New("jobs did not stop before deadline"))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().Str("hook", h.name).Dur("duration", time.Since(start)).Msg("shutdown hook done")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Info().Msg("daemon stopped cleanly")
	return nil
}
