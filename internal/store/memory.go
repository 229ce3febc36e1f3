package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and the "memory" driver.
// All methods copy values in and out so callers never share map entries.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]User
	properties    map[string]Property
	units         map[string]Unit
	leases        map[string]Lease // keyed by tenant ID
	maintenance   map[string]MaintenanceRequest
	updates       map[string][]MaintenanceUpdate // keyed by request ID
	payments      map[string]Payment
	notifications map[string][]Notification // keyed by user ID
	closed        bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]User),
		properties:    make(map[string]Property),
		units:         make(map[string]Unit),
		leases:        make(map[string]Lease),
		maintenance:   make(map[string]MaintenanceRequest),
		updates:       make(map[string][]MaintenanceUpdate),
		payments:      make(map[string]Payment),
		notifications: make(map[string][]Notification),
	}
}

// ----- Users -----

func (m *MemoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context, f UserFilter) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// ----- Properties -----

func (m *MemoryStore) CreateProperty(_ context.Context, p *Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = *p
	return nil
}

func (m *MemoryStore) PropertyByID(_ context.Context, id string) (*Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListProperties(_ context.Context, f PropertyFilter) ([]Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(f.Search)
	var out []Property
	for _, p := range m.properties {
		if f.City != "" && !strings.EqualFold(p.City, f.City) {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(p.Name + " " + p.Address + " " + p.City)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateProperty(_ context.Context, p *Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.properties[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.properties[p.ID] = *p
	return nil
}

func (m *MemoryStore) DeleteProperty(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.properties[id]; !ok {
		return ErrNotFound
	}
	for _, lease := range m.leases {
		if unit, ok := m.units[lease.UnitID]; ok && unit.PropertyID == id {
			return ErrConflict
		}
	}
	for unitID, unit := range m.units {
		if unit.PropertyID == id {
			delete(m.units, unitID)
		}
	}
	delete(m.properties, id)
	return nil
}

// ----- Units -----

func (m *MemoryStore) CreateUnit(_ context.Context, u *Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[u.ID]; ok {
		return ErrConflict
	}
	m.units[u.ID] = *u
	return nil
}

func (m *MemoryStore) UnitByID(_ context.Context, id string) (*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) ListUnits(_ context.Context, f UnitFilter) ([]Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Unit
	for _, u := range m.units {
		if f.PropertyID != "" && u.PropertyID != f.PropertyID {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateUnitStatus(_ context.Context, id string, status UnitStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	m.units[id] = u
	return nil
}

// ----- Leases -----

func (m *MemoryStore) UpsertLease(_ context.Context, l *Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[l.TenantID] = *l
	return nil
}

func (m *MemoryStore) LeaseByTenant(_ context.Context, tenantID string) (*Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leases[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *MemoryStore) ListLeases(_ context.Context) ([]Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Lease, 0, len(m.leases))
	for _, l := range m.leases {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteLease(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leases[tenantID]; !ok {
		return ErrNotFound
	}
	delete(m.leases, tenantID)
	return nil
}

func (m *MemoryStore) BindLease(_ context.Context, l *Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	unit, ok := m.units[l.UnitID]
	if !ok {
		return ErrNotFound
	}
	if prev, ok := m.leases[l.TenantID]; ok && prev.UnitID != l.UnitID {
		if old, ok := m.units[prev.UnitID]; ok {
			old.Status = UnitVacant
			old.UpdatedAt = time.Now()
			m.units[prev.UnitID] = old
		}
	}
	unit.Status = UnitOccupied
	unit.UpdatedAt = time.Now()
	m.units[l.UnitID] = unit
	m.leases[l.TenantID] = *l
	return nil
}

func (m *MemoryStore) ReleaseLease(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lease, ok := m.leases[tenantID]
	if !ok {
		return ErrNotFound
	}
	delete(m.leases, tenantID)
	if unit, ok := m.units[lease.UnitID]; ok {
		unit.Status = UnitVacant
		unit.UpdatedAt = time.Now()
		m.units[lease.UnitID] = unit
	}
	return nil
}

// ----- Maintenance -----

func (m *MemoryStore) CreateMaintenanceRequest(_ context.Context, r *MaintenanceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maintenance[r.ID] = *r
	return nil
}

func (m *MemoryStore) MaintenanceRequestByID(_ context.Context, id string) (*MaintenanceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.maintenance[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ListMaintenanceRequests(_ context.Context, f MaintenanceFilter) ([]MaintenanceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MaintenanceRequest
	for _, r := range m.maintenance {
		if f.TenantID != "" && r.TenantID != f.TenantID {
			continue
		}
		if f.AssignedTo != "" && r.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateMaintenanceRequest(_ context.Context, r *MaintenanceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.maintenance[r.ID]; !ok {
		return ErrNotFound
	}
	r.UpdatedAt = time.Now()
	m.maintenance[r.ID] = *r
	return nil
}

func (m *MemoryStore) DeleteMaintenanceRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.maintenance[id]; !ok {
		return ErrNotFound
	}
	delete(m.maintenance, id)
	delete(m.updates, id)
	return nil
}

func (m *MemoryStore) AppendMaintenanceUpdate(_ context.Context, u *MaintenanceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[u.RequestID] = append(m.updates[u.RequestID], *u)
	return nil
}

func (m *MemoryStore) ListMaintenanceUpdates(_ context.Context, requestID string) ([]MaintenanceUpdate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MaintenanceUpdate, len(m.updates[requestID]))
	copy(out, m.updates[requestID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ----- Payments -----

func (m *MemoryStore) CreatePayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Period != "" {
		for _, existing := range m.payments {
			if existing.TenantID == p.TenantID && existing.Period == p.Period {
				return ErrConflict
			}
		}
	}
	m.payments[p.ID] = *p
	return nil
}

func (m *MemoryStore) PaymentByID(_ context.Context, id string) (*Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) PaymentByProviderRef(_ context.Context, ref string) (*Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ProviderRef != "" && p.ProviderRef == ref {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListPayments(_ context.Context, f PaymentFilter) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Payment
	for _, p := range m.payments {
		if f.TenantID != "" && p.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Period != "" && p.Period != f.Period {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdatePayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = *p
	return nil
}

// ----- Notifications -----

func (m *MemoryStore) CreateNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.UserID] = append(m.notifications[n.UserID], *n)
	return nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Notification, len(m.notifications[userID]))
	copy(out, m.notifications[userID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) UnreadNotificationCount(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, notif := range m.notifications[userID] {
		if !notif.Read {
			n++
		}
	}
	return n, nil
}

// ----- Lifecycle -----

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
