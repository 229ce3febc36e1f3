package daemon

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantry/rentd/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:        "127.0.0.1:0",
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManagerValidatesDeps(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{})
	require.Error(t, err)

	_, err = NewManager(testServerConfig(), Deps{
		APIHandler:     okHandler(),
		MetricsHandler: okHandler(),
	})
	require.Error(t, err, "metrics handler without address")

	_, err = NewManager(testServerConfig(), Deps{APIHandler: okHandler()})
	require.NoError(t, err)
}

func TestShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Shutdown(context.Background()), ErrNotStarted)
}

func TestStartAndGracefulShutdown(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler()})
	require.NoError(t, err)

	var hookOrder []string
	m.RegisterShutdownHook("first", func(context.Context) error {
		hookOrder = append(hookOrder, "first")
		return nil
	})
	m.RegisterShutdownHook("second", func(context.Context) error {
		hookOrder = append(hookOrder, "second")
		return nil
	})

	jobStopped := make(chan struct{})
	m.RegisterJob("ticker", func(ctx context.Context) error {
		<-ctx.Done()
		close(jobStopped)
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	// Give the listener a moment to come up, then trigger shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	select {
	case <-jobStopped:
	default:
		t.Fatal("job was not cancelled")
	}

	// Hooks ran LIFO.
	assert.Equal(t, []string{"second", "first"}, hookOrder)
}

func TestStartTwiceFails(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	assert.Error(t, m.Start(context.Background()))

	cancel()
	require.NoError(t, <-done)
}

func TestShutdownIsIdempotent(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{APIHandler: okHandler()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// A second shutdown after the first completed is a no-op.
	assert.NoError(t, m.Shutdown(context.Background()))
}
