// Package store defines the rentd domain model and its persistence layer.
package store

import "time"

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleTenant Role = "tenant"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleTenant:
		return true
	}
	return false
}

// UnitStatus is the occupancy state of a unit.
type UnitStatus string

const (
	UnitVacant      UnitStatus = "vacant"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

func (s UnitStatus) Valid() bool {
	switch s {
	case UnitVacant, UnitOccupied, UnitMaintenance:
		return true
	}
	return false
}

// MaintenanceStatus is the lifecycle state of a maintenance request.
type MaintenanceStatus string

const (
	MaintenanceSubmitted  MaintenanceStatus = "submitted"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceResolved   MaintenanceStatus = "resolved"
	MaintenanceClosed     MaintenanceStatus = "closed"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceSubmitted, MaintenanceInProgress, MaintenanceResolved, MaintenanceClosed:
		return true
	}
	return false
}

// Terminal reports whether the status ends the request lifecycle.
func (s MaintenanceStatus) Terminal() bool {
	return s == MaintenanceResolved || s == MaintenanceClosed
}

// Urgency classifies how quickly a maintenance request needs attention.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyEmergency:
		return true
	}
	return false
}

// PaymentStatus is the state of a rent payment / invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentFailed:
		return true
	}
	return false
}

// User is an account in the system.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Role             Role      `json:"role"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	ProfileComplete  bool      `json:"profile_complete"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Property is a building with rentable units.
type Property struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Unit is a rentable unit inside a property. Its ID is
// "<property_id>_<unit_number>", mirroring the unit addressing the mobile
// clients already use.
type Unit struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id"`
	UnitNumber string     `json:"unit_number"`
	Bedrooms   int        `json:"bedrooms"`
	Bathrooms  int        `json:"bathrooms"`
	RentCents  int64      `json:"rent_cents"`
	Status     UnitStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Lease binds a tenant to a unit. A tenant has at most one active lease.
type Lease struct {
	TenantID    string    `json:"tenant_id"`
	UnitID      string    `json:"unit_id"`
	RentCents   int64     `json:"rent_cents"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date,omitempty"`
	DocumentURL string    `json:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaintenanceRequest is a tenant-reported issue for a unit.
type MaintenanceRequest struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	UnitID      string            `json:"unit_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Urgency     Urgency           `json:"urgency"`
	Status      MaintenanceStatus `json:"status"`
	AssignedTo  string            `json:"assigned_to,omitempty"`
	PhotoURLs   []string          `json:"photo_urls,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// MaintenanceUpdate is one entry in a request's update log.
type MaintenanceUpdate struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Message   string    `json:"message"`
	PostedBy  string    `json:"posted_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Payment is a rent invoice and, once settled, its payment record.
type Payment struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	Method      string        `json:"method,omitempty"` // stripe, paypal, manual
	Status      PaymentStatus `json:"status"`
	ProviderRef string        `json:"provider_ref,omitempty"`
	Period      string        `json:"period,omitempty"` // YYYY-MM billing period
	DueDate     time.Time     `json:"due_date"`
	PaidAt      time.Time     `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	DeepLink  string    `json:"deep_link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
