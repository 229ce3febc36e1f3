package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyAllHealthy(t *testing.T) {
	m := NewManager("1.0.0")
	m.Register(NewPingChecker("database", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz?verbose=true", nil))
	require.Equal(t, 200, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Checks["database"].Status)
}

func TestVerboseFlagControlsCheckDetail(t *testing.T) {
	m := NewManager("1.0.0")
	m.Register(NewPingChecker("database", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, rec.Code)

	var compact Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &compact))
	assert.Equal(t, StatusHealthy, compact.Status)
	assert.Empty(t, compact.Checks)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz?verbose=1", nil))
	require.Equal(t, 200, rec.Code)

	var verbose Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verbose))
	assert.Contains(t, verbose.Checks, "database")

	// Junk values fall back to the compact form.
	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz?verbose=banana", nil))
	var junk Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &junk))
	assert.Empty(t, junk.Checks)
}

func TestReadyUnhealthyComponent(t *testing.T) {
	m := NewManager("1.0.0")
	m.Register(NewPingChecker("database", func(context.Context) error {
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))
	require.Equal(t, 503, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestHealthAlways200(t *testing.T) {
	m := NewManager("1.0.0")
	m.Register(NewPingChecker("database", func(context.Context) error {
		return errors.New("down")
	}))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestDirChecker(t *testing.T) {
	ok := NewDirChecker("uploads", t.TempDir())
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	missing := NewDirChecker("uploads", "/no/such/dir")
	assert.Equal(t, StatusUnhealthy, missing.Check(context.Background()).Status)
}

func TestBillingChecker(t *testing.T) {
	ctx := context.Background()

	never := NewBillingChecker(func() (time.Time, string) { return time.Time{}, "" }, time.Hour)
	assert.Equal(t, StatusDegraded, never.Check(ctx).Status)

	failed := NewBillingChecker(func() (time.Time, string) {
		return time.Now(), "db locked"
	}, time.Hour)
	assert.Equal(t, StatusDegraded, failed.Check(ctx).Status)

	stale := NewBillingChecker(func() (time.Time, string) {
		return time.Now().Add(-2 * time.Hour), ""
	}, time.Hour)
	assert.Equal(t, StatusDegraded, stale.Check(ctx).Status)

	fresh := NewBillingChecker(func() (time.Time, string) {
		return time.Now(), ""
	}, time.Hour)
	assert.Equal(t, StatusHealthy, fresh.Check(ctx).Status)
}
