package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned on unique-constraint violations, e.g. a
	// duplicate email or a duplicate (tenant, period) invoice.
	ErrConflict = errors.New("store: conflict")

	errClosed = errors.New("store: closed")
)

// UserFilter narrows ListUsers results.
type UserFilter struct {
	Role Role
}

// PropertyFilter narrows ListProperties results.
type PropertyFilter struct {
	City   string
	Search string // matches name, address or city, case-insensitive
}

// UnitFilter narrows ListUnits results.
type UnitFilter struct {
	PropertyID string
	Status     UnitStatus
}

// MaintenanceFilter narrows ListMaintenanceRequests results.
type MaintenanceFilter struct {
	TenantID   string
	AssignedTo string
	Status     MaintenanceStatus
}

// PaymentFilter narrows ListPayments results.
type PaymentFilter struct {
	TenantID string
	Status   PaymentStatus
	Period   string
}

// Store is the persistence boundary of rentd. Implementations must be safe
// for concurrent use.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	// Properties and units
	CreateProperty(ctx context.Context, p *Property) error
	PropertyByID(ctx context.Context, id string) (*Property, error)
	ListProperties(ctx context.Context, f PropertyFilter) ([]Property, error)
	UpdateProperty(ctx context.Context, p *Property) error
	// DeleteProperty removes a property together with its units. It returns
	// ErrConflict while any of those units is under lease.
	DeleteProperty(ctx context.Context, id string) error
	CreateUnit(ctx context.Context, u *Unit) error
	UnitByID(ctx context.Context, id string) (*Unit, error)
	ListUnits(ctx context.Context, f UnitFilter) ([]Unit, error)
	UpdateUnitStatus(ctx context.Context, id string, status UnitStatus) error

	// Leases
	UpsertLease(ctx context.Context, l *Lease) error
	LeaseByTenant(ctx context.Context, tenantID string) (*Lease, error)
	ListLeases(ctx context.Context) ([]Lease, error)
	DeleteLease(ctx context.Context, tenantID string) error
	// BindLease writes the lease and the unit occupancy it implies in one
	// transaction: a previously leased unit is vacated, the lease is
	// upserted and the new unit marked occupied.
	BindLease(ctx context.Context, l *Lease) error
	// ReleaseLease deletes the tenant's lease and vacates its unit in one
	// transaction.
	ReleaseLease(ctx context.Context, tenantID string) error

	// Maintenance
	CreateMaintenanceRequest(ctx context.Context, m *MaintenanceRequest) error
	MaintenanceRequestByID(ctx context.Context, id string) (*MaintenanceRequest, error)
	ListMaintenanceRequests(ctx context.Context, f MaintenanceFilter) ([]MaintenanceRequest, error)
	UpdateMaintenanceRequest(ctx context.Context, m *MaintenanceRequest) error
	// DeleteMaintenanceRequest removes a request together with its update log.
	DeleteMaintenanceRequest(ctx context.Context, id string) error
	AppendMaintenanceUpdate(ctx context.Context, u *MaintenanceUpdate) error
	ListMaintenanceUpdates(ctx context.Context, requestID string) ([]MaintenanceUpdate, error)

	// Payments
	CreatePayment(ctx context.Context, p *Payment) error
	PaymentByID(ctx context.Context, id string) (*Payment, error)
	PaymentByProviderRef(ctx context.Context, ref string) (*Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	UnreadNotificationCount(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	Driver      string // "sqlite", "postgres" or "memory"
	SQLitePath  string
	PostgresDSN string
}

// Open creates a Store for the configured backend and runs migrations.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return OpenSQLite(opts.SQLitePath)
	case "postgres":
		return OpenPostgres(opts.PostgresDSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
}
