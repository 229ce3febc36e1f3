package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *store.MemoryStore
	tokens  *auth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := store.NewMemoryStore()
	sess, err := sessions.Open(t.TempDir(), 30*24*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	uploads, err := files.NewStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	tokens := auth.NewTokenIssuer("test-secret-at-least-32-bytes-long!!", time.Hour)
	c := cache.NewMemory(0)
	t.Cleanup(func() { _ = c.Close() })

	hm := health.NewManager("test")
	hm.Register(health.NewPingChecker("database", mem.Ping))

	cfg := config.AppConfig{
		Environment:    "development",
		Version:        "test",
		RateLimitRPM:   10000,
		AuthRateRPM:    10000,
		MaxUploadBytes: 1 << 20,
	}

	srv := NewServer(cfg, Deps{
		Store:     mem,
		Sessions:  sess,
		Tokens:    tokens,
		Notifier:  notify.New(mem, nil),
		Providers: payments.NewRegistry(payments.ManualProvider{}),
		Files:     uploads,
		Cache:     c,
		Health:    hm,
	})
	return &testEnv{server: srv, handler: srv.Router(), store: mem, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// seedAccount creates a user directly in the store and returns an access
// token for it.
func (e *testEnv) seedAccount(t *testing.T, role store.Role) (*store.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	now := time.Now()
	u := &store.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: hash,
		Name:         "Seeded " + string(role),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	token, _, err := e.tokens.Sign(u)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) seedProperty(t *testing.T) (*store.Property, *store.Unit) {
	t.Helper()
	now := time.Now()
	prop := &store.Property{
		ID:        uuid.NewString(),
		Name:      "Sunset Villas",
		Address:   "12 Palm Road",
		City:      "Nairobi",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.store.CreateProperty(context.Background(), prop))
	unit := &store.Unit{
		ID:         prop.ID + "_A1",
		PropertyID: prop.ID,
		UnitNumber: "A1",
		Bedrooms:   2,
		Bathrooms:  1,
		RentCents:  85000_00,
		Status:     store.UnitVacant,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, e.store.CreateUnit(context.Background(), unit))
	return prop, unit
}

func (e *testEnv) seedLease(t *testing.T, tenantID, unitID string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, e.store.UpsertLease(context.Background(), &store.Lease{
		TenantID:  tenantID,
		UnitID:    unitID,
		RentCents: 85000_00,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, e.store.UpdateUnitStatus(context.Background(), unitID, store.UnitOccupied))
}

func TestBannerAndHealth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "GET", "/", "", nil)
	require.Equal(t, 200, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "rentd", body["service"])

	rec = e.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, 200, rec.Code)

	rec = e.do(t, "GET", "/readyz", "", nil)
	assert.Equal(t, 200, rec.Code)
	compact := decodeBody[health.Response](t, rec)
	assert.Empty(t, compact.Checks)

	rec = e.do(t, "GET", "/readyz?verbose=true", "", nil)
	assert.Equal(t, 200, rec.Code)
	verbose := decodeBody[health.Response](t, rec)
	assert.Contains(t, verbose.Checks, "database")
}

func TestRegisterLoginRefresh(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "New Tenant",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	created := decodeBody[tokenResponse](t, rec)
	assert.NotEmpty(t, created.AccessToken)
	assert.NotEmpty(t, created.RefreshToken)
	assert.Equal(t, store.RoleTenant, created.User.Role)

	// Duplicate email is a conflict.
	rec = e.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "Other",
	})
	assert.Equal(t, 409, rec.Code)

	// Login with wrong password does not reveal the account exists.
	rec = e.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "new@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, 401, rec.Code)
	rec = e.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "missing@example.com",
		"password": "password123",
	})
	assert.Equal(t, 401, rec.Code)

	rec = e.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
	})
	require.Equal(t, 200, rec.Code)
	logged := decodeBody[tokenResponse](t, rec)

	// Refresh rotates the token.
	rec = e.do(t, "POST", "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": logged.RefreshToken,
	})
	require.Equal(t, 200, rec.Code)
	refreshed := decodeBody[tokenResponse](t, rec)
	assert.NotEqual(t, logged.RefreshToken, refreshed.RefreshToken)

	// The consumed refresh token is dead.
	rec = e.do(t, "POST", "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": logged.RefreshToken,
	})
	assert.Equal(t, 401, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "bad", "password": "password123", "name": "X",
	})
	assert.Equal(t, 400, rec.Code)

	rec = e.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "short", "name": "X",
	})
	assert.Equal(t, 400, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, "GET", "/api/v1/profile", "", nil)
	assert.Equal(t, 401, rec.Code)
}

func TestProfileUpdate(t *testing.T) {
	e := newTestEnv(t)
	u, token := e.seedAccount(t, store.RoleTenant)

	rec := e.do(t, "PUT", "/api/v1/profile", token, map[string]string{
		"name":  "Updated Name",
		"phone": "+254700000000",
	})
	require.Equal(t, 200, rec.Code)
	updated := decodeBody[store.User](t, rec)
	assert.Equal(t, "Updated Name", updated.Name)
	assert.True(t, updated.ProfileComplete)
	assert.Equal(t, u.ID, updated.ID)
}

func TestUsersRBAC(t *testing.T) {
	e := newTestEnv(t)
	_, tenantToken := e.seedAccount(t, store.RoleTenant)
	_, staffToken := e.seedAccount(t, store.RoleStaff)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)

	rec := e.do(t, "GET", "/api/v1/users", tenantToken, nil)
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "GET", "/api/v1/users", staffToken, nil)
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "GET", "/api/v1/users", adminToken, nil)
	assert.Equal(t, 200, rec.Code)

	// Admin creates a staff account.
	rec = e.do(t, "POST", "/api/v1/users", adminToken, map[string]string{
		"email": "staff2@example.com", "password": "password123",
		"name": "Second Staff", "role": "staff",
	})
	require.Equal(t, 201, rec.Code)
	created := decodeBody[store.User](t, rec)
	assert.Equal(t, store.RoleStaff, created.Role)

	// Tenant may read itself but not others.
	tenant, tenantToken2 := e.seedAccount(t, store.RoleTenant)
	rec = e.do(t, "GET", "/api/v1/users/"+tenant.ID, tenantToken2, nil)
	assert.Equal(t, 200, rec.Code)
	rec = e.do(t, "GET", "/api/v1/users/"+created.ID, tenantToken2, nil)
	assert.Equal(t, 403, rec.Code)
}

func TestUserUpdateSelfOrAdmin(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)
	other, _ := e.seedAccount(t, store.RoleTenant)

	// Users may edit their own record.
	rec := e.do(t, "PUT", "/api/v1/users/"+tenant.ID, tenantToken, map[string]string{
		"name": "Renamed Tenant", "phone": "+254700000000",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	updated := decodeBody[store.User](t, rec)
	assert.Equal(t, "Renamed Tenant", updated.Name)
	assert.Equal(t, store.RoleTenant, updated.Role)

	// But not escalate their own role, nor touch other accounts.
	rec = e.do(t, "PUT", "/api/v1/users/"+tenant.ID, tenantToken, map[string]string{
		"role": "admin",
	})
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "PUT", "/api/v1/users/"+other.ID, tenantToken, map[string]string{
		"name": "Hijacked",
	})
	assert.Equal(t, 403, rec.Code)

	// Admins may edit anyone, role included.
	rec = e.do(t, "PUT", "/api/v1/users/"+other.ID, adminToken, map[string]string{
		"role": "staff",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	promoted := decodeBody[store.User](t, rec)
	assert.Equal(t, store.RoleStaff, promoted.Role)
}

func TestPropertyAndUnitCreation(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	_, tenantToken := e.seedAccount(t, store.RoleTenant)

	rec := e.do(t, "POST", "/api/v1/properties", tenantToken, map[string]string{
		"name": "X", "address": "Y",
	})
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "POST", "/api/v1/properties", adminToken, map[string]string{
		"name": "Sunset Villas", "address": "12 Palm Road", "city": "Nairobi",
	})
	require.Equal(t, 201, rec.Code)
	prop := decodeBody[store.Property](t, rec)

	rec = e.do(t, "POST", "/api/v1/properties/"+prop.ID+"/units", adminToken, map[string]any{
		"unit_number": "A1", "bedrooms": 2, "bathrooms": 1, "rent_cents": 8500000,
	})
	require.Equal(t, 201, rec.Code)
	unit := decodeBody[store.Unit](t, rec)
	assert.Equal(t, prop.ID+"_A1", unit.ID)
	assert.Equal(t, store.UnitVacant, unit.Status)

	rec = e.do(t, "GET", "/api/v1/properties?q=sunset", tenantToken, nil)
	require.Equal(t, 200, rec.Code)
	props := decodeBody[[]store.Property](t, rec)
	assert.Len(t, props, 1)

	rec = e.do(t, "GET", "/api/v1/units?property_id="+prop.ID+"&status=vacant", tenantToken, nil)
	require.Equal(t, 200, rec.Code)
	units := decodeBody[[]store.Unit](t, rec)
	assert.Len(t, units, 1)
}

func TestPropertyUpdateAndDeleteEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)
	prop, unit := e.seedProperty(t)

	rec := e.do(t, "PUT", "/api/v1/properties/"+prop.ID, tenantToken, map[string]string{
		"name": "Hijacked",
	})
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "DELETE", "/api/v1/properties/"+prop.ID, tenantToken, nil)
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "PUT", "/api/v1/properties/"+prop.ID, adminToken, map[string]string{
		"name": "Sunrise Villas", "city": "Mombasa",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	updated := decodeBody[store.Property](t, rec)
	assert.Equal(t, "Sunrise Villas", updated.Name)
	assert.Equal(t, "Mombasa", updated.City)
	assert.Equal(t, prop.Address, updated.Address)

	rec = e.do(t, "PUT", "/api/v1/properties/"+prop.ID, adminToken, map[string]string{
		"name": "   ",
	})
	assert.Equal(t, 400, rec.Code)

	// A property with a leased unit cannot be removed.
	e.seedLease(t, tenant.ID, unit.ID)
	rec = e.do(t, "DELETE", "/api/v1/properties/"+prop.ID, adminToken, nil)
	assert.Equal(t, 409, rec.Code)

	rec = e.do(t, "DELETE", "/api/v1/tenants/"+tenant.ID+"/lease", adminToken, nil)
	require.Equal(t, 200, rec.Code)
	rec = e.do(t, "DELETE", "/api/v1/properties/"+prop.ID, adminToken, nil)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	rec = e.do(t, "GET", "/api/v1/properties/"+prop.ID, adminToken, nil)
	assert.Equal(t, 404, rec.Code)
}

func TestLeaseAssignmentFlipsUnitStatus(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	tenant, _ := e.seedAccount(t, store.RoleTenant)
	_, unit := e.seedProperty(t)

	rec := e.do(t, "PUT", "/api/v1/tenants/"+tenant.ID+"/lease", adminToken, map[string]any{
		"unit_id":    unit.ID,
		"start_date": "2026-08-01",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	lease := decodeBody[store.Lease](t, rec)
	assert.EqualValues(t, unit.RentCents, lease.RentCents)

	got, err := e.store.UnitByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, store.UnitOccupied, got.Status)

	rec = e.do(t, "DELETE", "/api/v1/tenants/"+tenant.ID+"/lease", adminToken, nil)
	require.Equal(t, 200, rec.Code)

	got, err = e.store.UnitByID(context.Background(), unit.ID)
	require.NoError(t, err)
	assert.Equal(t, store.UnitVacant, got.Status)
}

func TestMaintenanceFlow(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	staff, _ := e.seedAccount(t, store.RoleStaff)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)
	_, unit := e.seedProperty(t)

	// No lease yet: creation fails with 400.
	rec := e.do(t, "POST", "/api/v1/maintenance/requests", tenantToken, map[string]string{
		"title": "Leaking tap",
	})
	assert.Equal(t, 400, rec.Code)

	e.seedLease(t, tenant.ID, unit.ID)

	rec = e.do(t, "POST", "/api/v1/maintenance/requests", tenantToken, map[string]string{
		"title":       "Leaking tap",
		"description": "Kitchen tap drips",
		"category":    "plumbing",
		"urgency":     "high",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	created := decodeBody[store.MaintenanceRequest](t, rec)
	assert.Equal(t, store.MaintenanceSubmitted, created.Status)
	assert.Equal(t, unit.ID, created.UnitID)

	// Assignment is admin-only, moves to in_progress, notifies the staff.
	rec = e.do(t, "POST", "/api/v1/maintenance/requests/"+created.ID+"/assign", tenantToken,
		map[string]string{"staff_id": staff.ID})
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "POST", "/api/v1/maintenance/requests/"+created.ID+"/assign", adminToken,
		map[string]string{"staff_id": staff.ID})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assigned := decodeBody[store.MaintenanceRequest](t, rec)
	assert.Equal(t, store.MaintenanceInProgress, assigned.Status)
	assert.Equal(t, staff.ID, assigned.AssignedTo)

	count, err := e.store.UnreadNotificationCount(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Resolving notifies the tenant and appends to the update log.
	rec = e.do(t, "POST", "/api/v1/maintenance/requests/"+created.ID+"/status", adminToken,
		map[string]string{"status": "resolved", "note": "replaced washer"})
	require.Equal(t, 200, rec.Code)

	count, err = e.store.UnreadNotificationCount(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec = e.do(t, "GET", "/api/v1/maintenance/requests/"+created.ID, tenantToken, nil)
	require.Equal(t, 200, rec.Code)
	detail := decodeBody[struct {
		Request store.MaintenanceRequest  `json:"request"`
		Updates []store.MaintenanceUpdate `json:"updates"`
	}](t, rec)
	assert.Equal(t, store.MaintenanceResolved, detail.Request.Status)
	require.Len(t, detail.Updates, 2)
	assert.Contains(t, detail.Updates[1].Message, "replaced washer")

	// Terminal requests reject further transitions.
	rec = e.do(t, "POST", "/api/v1/maintenance/requests/"+created.ID+"/status", adminToken,
		map[string]string{"status": "in_progress"})
	assert.Equal(t, 409, rec.Code)
}

func TestMaintenanceVisibility(t *testing.T) {
	e := newTestEnv(t)
	tenantA, tokenA := e.seedAccount(t, store.RoleTenant)
	_, tokenB := e.seedAccount(t, store.RoleTenant)
	_, staffToken := e.seedAccount(t, store.RoleStaff)
	_, unit := e.seedProperty(t)
	e.seedLease(t, tenantA.ID, unit.ID)

	rec := e.do(t, "POST", "/api/v1/maintenance/requests", tokenA, map[string]string{"title": "Broken lock"})
	require.Equal(t, 201, rec.Code)
	created := decodeBody[store.MaintenanceRequest](t, rec)

	// Another tenant cannot see it; staff can.
	rec = e.do(t, "GET", "/api/v1/maintenance/requests/"+created.ID, tokenB, nil)
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "GET", "/api/v1/maintenance/requests/"+created.ID, staffToken, nil)
	assert.Equal(t, 200, rec.Code)

	rec = e.do(t, "GET", "/api/v1/maintenance/requests", tokenB, nil)
	require.Equal(t, 200, rec.Code)
	list := decodeBody[[]store.MaintenanceRequest](t, rec)
	assert.Empty(t, list)
}

func TestMaintenanceEditAndDelete(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	_, staffToken := e.seedAccount(t, store.RoleStaff)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)
	_, otherToken := e.seedAccount(t, store.RoleTenant)
	_, unit := e.seedProperty(t)
	e.seedLease(t, tenant.ID, unit.ID)

	rec := e.do(t, "POST", "/api/v1/maintenance/requests", tenantToken, map[string]string{
		"title": "Leaking tap", "urgency": "low",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	created := decodeBody[store.MaintenanceRequest](t, rec)

	// The reporting tenant may edit descriptive fields.
	rec = e.do(t, "PUT", "/api/v1/maintenance/requests/"+created.ID, tenantToken, map[string]string{
		"title": "Leaking tap in kitchen", "urgency": "high",
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	edited := decodeBody[store.MaintenanceRequest](t, rec)
	assert.Equal(t, "Leaking tap in kitchen", edited.Title)
	assert.Equal(t, store.UrgencyHigh, edited.Urgency)

	rec = e.do(t, "PUT", "/api/v1/maintenance/requests/"+created.ID, tenantToken, map[string]string{
		"urgency": "catastrophic",
	})
	assert.Equal(t, 400, rec.Code)

	// Other tenants may neither edit nor delete; staff may edit but not delete.
	rec = e.do(t, "PUT", "/api/v1/maintenance/requests/"+created.ID, otherToken, map[string]string{
		"title": "Hijacked",
	})
	assert.Equal(t, 403, rec.Code)
	rec = e.do(t, "PUT", "/api/v1/maintenance/requests/"+created.ID, staffToken, map[string]string{
		"category": "plumbing",
	})
	assert.Equal(t, 200, rec.Code)
	rec = e.do(t, "DELETE", "/api/v1/maintenance/requests/"+created.ID, staffToken, nil)
	assert.Equal(t, 403, rec.Code)

	// Closed requests are read-only.
	rec = e.do(t, "POST", "/api/v1/maintenance/requests/"+created.ID+"/status", adminToken,
		map[string]string{"status": "resolved"})
	require.Equal(t, 200, rec.Code)
	rec = e.do(t, "PUT", "/api/v1/maintenance/requests/"+created.ID, tenantToken, map[string]string{
		"title": "Reopened",
	})
	assert.Equal(t, 409, rec.Code)

	rec = e.do(t, "DELETE", "/api/v1/maintenance/requests/"+created.ID, adminToken, nil)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	rec = e.do(t, "GET", "/api/v1/maintenance/requests/"+created.ID, adminToken, nil)
	assert.Equal(t, 404, rec.Code)
}

func TestPaymentIntentAndConfirm(t *testing.T) {
	e := newTestEnv(t)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)

	now := time.Now()
	invoice := &store.Payment{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		AmountCents: 85000_00,
		Currency:    "KES",
		Status:      store.PaymentPending,
		Period:      "2026-08",
		DueDate:     now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.store.CreatePayment(context.Background(), invoice))

	// Unknown method.
	rec := e.do(t, "POST", "/api/v1/payments/intent", tenantToken, map[string]string{
		"payment_id": invoice.ID, "method": "mpesa",
	})
	assert.Equal(t, 400, rec.Code)

	rec = e.do(t, "POST", "/api/v1/payments/intent", tenantToken, map[string]string{
		"payment_id": invoice.ID, "method": "manual",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())

	// Confirm before intent would fail; after intent it settles.
	rec = e.do(t, "POST", "/api/v1/payments/confirm", tenantToken, map[string]string{
		"payment_id": invoice.ID,
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	paid := decodeBody[store.Payment](t, rec)
	assert.Equal(t, store.PaymentPaid, paid.Status)
	assert.False(t, paid.PaidAt.IsZero())

	// Confirming again is idempotent.
	rec = e.do(t, "POST", "/api/v1/payments/confirm", tenantToken, map[string]string{
		"payment_id": invoice.ID,
	})
	assert.Equal(t, 200, rec.Code)

	// Settled payment notified the tenant.
	count, err := e.store.UnreadNotificationCount(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Receipt is available now.
	rec = e.do(t, "GET", "/api/v1/payments/"+invoice.ID+"/receipt", tenantToken, nil)
	require.Equal(t, 200, rec.Code)
	receipt := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "RCPT-"+invoice.ID, receipt["receipt_no"])
}

func TestPaymentOwnership(t *testing.T) {
	e := newTestEnv(t)
	tenantA, _ := e.seedAccount(t, store.RoleTenant)
	_, tokenB := e.seedAccount(t, store.RoleTenant)

	now := time.Now()
	invoice := &store.Payment{
		ID:          uuid.NewString(),
		TenantID:    tenantA.ID,
		AmountCents: 5000_00,
		Currency:    "KES",
		Status:      store.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.store.CreatePayment(context.Background(), invoice))

	rec := e.do(t, "POST", "/api/v1/payments/intent", tokenB, map[string]string{
		"payment_id": invoice.ID, "method": "manual",
	})
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "GET", "/api/v1/payments", tokenB, nil)
	require.Equal(t, 200, rec.Code)
	list := decodeBody[[]store.Payment](t, rec)
	assert.Empty(t, list)
}

func TestRentDueReport(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)

	now := time.Now()
	require.NoError(t, e.store.CreatePayment(context.Background(), &store.Payment{
		ID: uuid.NewString(), TenantID: tenant.ID, AmountCents: 85000_00,
		Currency: "KES", Status: store.PaymentOverdue, Period: "2026-07",
		DueDate: now.AddDate(0, 0, -10), CreatedAt: now, UpdatedAt: now,
	}))

	rec := e.do(t, "GET", "/api/v1/reports/rent-due", tenantToken, nil)
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "GET", "/api/v1/reports/rent-due", adminToken, nil)
	require.Equal(t, 200, rec.Code)
	report := decodeBody[struct {
		Entries       []rentDueEntry `json:"entries"`
		TotalDueCents int64          `json:"total_due_cents"`
	}](t, rec)
	require.Len(t, report.Entries, 1)
	assert.EqualValues(t, 8500000, report.TotalDueCents)
	assert.GreaterOrEqual(t, report.Entries[0].DaysOverdue, 9)
}

func TestNotificationEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, staffToken := e.seedAccount(t, store.RoleStaff)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)

	rec := e.do(t, "POST", "/api/v1/notifications", tenantToken, map[string]string{
		"user_id": tenant.ID, "title": "Hi",
	})
	assert.Equal(t, 403, rec.Code)

	rec = e.do(t, "POST", "/api/v1/notifications", staffToken, map[string]string{
		"user_id": tenant.ID, "title": "Inspection", "message": "Thursday 10am",
	})
	require.Equal(t, 201, rec.Code)

	rec = e.do(t, "GET", "/api/v1/notifications", tenantToken, nil)
	require.Equal(t, 200, rec.Code)
	body := decodeBody[struct {
		Notifications []store.Notification `json:"notifications"`
		UnreadCount   int                  `json:"unread_count"`
	}](t, rec)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, 1, body.UnreadCount)

	rec = e.do(t, "POST", "/api/v1/notifications/"+body.Notifications[0].ID+"/read", tenantToken, nil)
	require.Equal(t, 200, rec.Code)

	rec = e.do(t, "GET", "/api/v1/notifications", tenantToken, nil)
	body = decodeBody[struct {
		Notifications []store.Notification `json:"notifications"`
		UnreadCount   int                  `json:"unread_count"`
	}](t, rec)
	assert.Equal(t, 0, body.UnreadCount)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestFileUploadAndServe(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.seedAccount(t, store.RoleTenant)

	body, contentType := multipartBody(t, "photo.jpg", []byte("jpeg-bytes"))
	req := httptest.NewRequest("POST", "/api/v1/files/upload?kind=image", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, 201, rec.Code, rec.Body.String())
	uploaded := decodeBody[map[string]string](t, rec)
	require.NotEmpty(t, uploaded["url"])

	// Served back via /files/.
	rec = e.do(t, "GET", uploaded["url"], "", nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())

	// Wrong extension for the kind.
	body, contentType = multipartBody(t, "script.exe", []byte("x"))
	req = httptest.NewRequest("POST", "/api/v1/files/upload?kind=image", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestDashboards(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.seedAccount(t, store.RoleAdmin)
	_, staffToken := e.seedAccount(t, store.RoleStaff)
	tenant, tenantToken := e.seedAccount(t, store.RoleTenant)
	_, unit := e.seedProperty(t)
	e.seedLease(t, tenant.ID, unit.ID)

	now := time.Now()
	require.NoError(t, e.store.CreatePayment(context.Background(), &store.Payment{
		ID: uuid.NewString(), TenantID: tenant.ID, AmountCents: 85000_00,
		Currency: "KES", Status: store.PaymentPending, Period: now.Format("2006-01"),
		DueDate: now.AddDate(0, 0, 5), CreatedAt: now, UpdatedAt: now,
	}))

	// Tenant dashboard.
	rec := e.do(t, "GET", "/api/v1/dashboard/tenant", tenantToken, nil)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	tenantDash := decodeBody[map[string]any](t, rec)
	assert.NotNil(t, tenantDash["lease"])
	assert.NotNil(t, tenantDash["upcoming_rent"])

	rec = e.do(t, "GET", "/api/v1/dashboard/tenant", staffToken, nil)
	assert.Equal(t, 403, rec.Code)

	// Staff dashboard.
	rec = e.do(t, "GET", "/api/v1/dashboard/staff", staffToken, nil)
	require.Equal(t, 200, rec.Code)
	staffDash := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 0, staffDash["total_assigned"])

	rec = e.do(t, "GET", "/api/v1/dashboard/staff", tenantToken, nil)
	assert.Equal(t, 403, rec.Code)

	// Admin dashboard is cached.
	rec = e.do(t, "GET", "/api/v1/dashboard/admin", adminToken, nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	adminDash := decodeBody[map[string]any](t, rec)
	occupancy, ok := adminDash["occupancy"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, occupancy["total_units"])

	rec = e.do(t, "GET", "/api/v1/dashboard/admin", adminToken, nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))

	rec = e.do(t, "GET", "/api/v1/dashboard/admin", staffToken, nil)
	assert.Equal(t, 403, rec.Code)
}

func TestInfoEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, "GET", "/api/v1/info", "", nil)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/auth")
}

func TestUnknownRouteIs404(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, "GET", "/api/v1/nope", "", nil)
	assert.Equal(t, 404, rec.Code)
}
