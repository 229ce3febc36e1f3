package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// sqlStore implements Store on database/sql. It serves both the SQLite and
// the PostgreSQL driver; queries are written with ? placeholders and rebound
// for postgres.
type sqlStore struct {
	db     *sql.DB
	driver string
}

func (s *sqlStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *sqlStore) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	applied := s.rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)
		ON CONFLICT (version) DO NOTHING`)
	if _, err := tx.Exec(applied, schemaVersion, encodeTime(time.Now())); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// encodeTime stores timestamps as RFC3339 text; the zero time becomes the
// empty string so "no value" is dialect-neutral.
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

// ----- Users -----

const userColumns = `id, email, password_hash, name, phone, role, emergency_contact, profile_complete, created_at, updated_at`

func (s *sqlStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, string(u.Role),
		u.EmergencyContact, boolToInt(u.ProfileComplete),
		encodeTime(u.CreatedAt), encodeTime(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var role, created, updated string
	var complete int
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &role,
		&u.EmergencyContact, &complete, &created, &updated)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.ProfileComplete = complete != 0
	u.CreatedAt = decodeTime(created)
	u.UpdatedAt = decodeTime(updated)
	return &u, nil
}

func (s *sqlStore) UserByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *sqlStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *sqlStore) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if f.Role != "" {
		q += ` WHERE role = ?`
		args = append(args, string(f.Role))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now()
	res, err := s.exec(ctx,
		`UPDATE users SET name = ?, phone = ?, role = ?, emergency_contact = ?, profile_complete = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Phone, string(u.Role), u.EmergencyContact,
		boolToInt(u.ProfileComplete), u.PasswordHash, encodeTime(u.UpdatedAt), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- Properties -----

const propertyColumns = `id, name, address, city, description, created_at, updated_at`

func (s *sqlStore) CreateProperty(ctx context.Context, p *Property) error {
	_, err := s.exec(ctx,
		`INSERT INTO properties (`+propertyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Address, p.City, p.Description,
		encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	return nil
}

func scanProperty(row interface{ Scan(...any) error }) (*Property, error) {
	var p Property
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.Description, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = decodeTime(created)
	p.UpdatedAt = decodeTime(updated)
	return &p, nil
}

func (s *sqlStore) PropertyByID(ctx context.Context, id string) (*Property, error) {
	p, err := scanProperty(s.queryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *sqlStore) ListProperties(ctx context.Context, f PropertyFilter) ([]Property, error) {
	q := `SELECT ` + propertyColumns + ` FROM properties`
	var conds []string
	var args []any
	if f.City != "" {
		conds = append(conds, `LOWER(city) = LOWER(?)`)
		args = append(args, f.City)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(address) LIKE ? OR LOWER(city) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateProperty(ctx context.Context, p *Property) error {
	res, err := s.exec(ctx,
		`UPDATE properties SET name = ?, address = ?, city = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Address, p.City, p.Description, encodeTime(time.Now()), p.ID)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteProperty(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var leased int
	err = tx.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM leases WHERE unit_id IN (SELECT id FROM units WHERE property_id = ?)`), id).Scan(&leased)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if leased > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM units WHERE property_id = ?`), id); err != nil {
		return fmt.Errorf("delete property units: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM properties WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ----- Units -----

const unitColumns = `id, property_id, unit_number, bedrooms, bathrooms, rent_cents, status, created_at, updated_at`

func (s *sqlStore) CreateUnit(ctx context.Context, u *Unit) error {
	_, err := s.exec(ctx,
		`INSERT INTO units (`+unitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.PropertyID, u.UnitNumber, u.Bedrooms, u.Bathrooms, u.RentCents,
		string(u.Status), encodeTime(u.CreatedAt), encodeTime(u.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create unit %s: %w", u.ID, ErrConflict)
		}
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

func scanUnit(row interface{ Scan(...any) error }) (*Unit, error) {
	var u Unit
	var status, created, updated string
	if err := row.Scan(&u.ID, &u.PropertyID, &u.UnitNumber, &u.Bedrooms, &u.Bathrooms,
		&u.RentCents, &status, &created, &updated); err != nil {
		return nil, err
	}
	u.Status = UnitStatus(status)
	u.CreatedAt = decodeTime(created)
	u.UpdatedAt = decodeTime(updated)
	return &u, nil
}

func (s *sqlStore) UnitByID(ctx context.Context, id string) (*Unit, error) {
	u, err := scanUnit(s.queryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *sqlStore) ListUnits(ctx context.Context, f UnitFilter) ([]Unit, error) {
	q := `SELECT ` + unitColumns + ` FROM units`
	var conds []string
	var args []any
	if f.PropertyID != "" {
		conds = append(conds, `property_id = ?`)
		args = append(args, f.PropertyID)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY id`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateUnitStatus(ctx context.Context, id string, status UnitStatus) error {
	res, err := s.exec(ctx, `UPDATE units SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), encodeTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update unit status: %w", err)
	}
	return requireRow(res)
}

// ----- Leases -----

const leaseColumns = `tenant_id, unit_id, rent_cents, start_date, end_date, document_url, created_at, updated_at`

func (s *sqlStore) UpsertLease(ctx context.Context, l *Lease) error {
	_, err := s.exec(ctx,
		`INSERT INTO leases (`+leaseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE SET
			unit_id = excluded.unit_id,
			rent_cents = excluded.rent_cents,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			document_url = excluded.document_url,
			updated_at = excluded.updated_at`,
		l.TenantID, l.UnitID, l.RentCents, encodeTime(l.StartDate), encodeTime(l.EndDate),
		l.DocumentURL, encodeTime(l.CreatedAt), encodeTime(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert lease: %w", err)
	}
	return nil
}

func scanLease(row interface{ Scan(...any) error }) (*Lease, error) {
	var l Lease
	var start, end, created, updated string
	if err := row.Scan(&l.TenantID, &l.UnitID, &l.RentCents, &start, &end,
		&l.DocumentURL, &created, &updated); err != nil {
		return nil, err
	}
	l.StartDate = decodeTime(start)
	l.EndDate = decodeTime(end)
	l.CreatedAt = decodeTime(created)
	l.UpdatedAt = decodeTime(updated)
	return &l, nil
}

func (s *sqlStore) LeaseByTenant(ctx context.Context, tenantID string) (*Lease, error) {
	l, err := scanLease(s.queryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE tenant_id = ?`, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func (s *sqlStore) ListLeases(ctx context.Context) ([]Lease, error) {
	rows, err := s.query(ctx, `SELECT `+leaseColumns+` FROM leases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *sqlStore) DeleteLease(ctx context.Context, tenantID string) error {
	res, err := s.exec(ctx, `DELETE FROM leases WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) BindLease(ctx context.Context, l *Lease) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bind lease: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := encodeTime(time.Now())

	var prevUnit string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT unit_id FROM leases WHERE tenant_id = ?`), l.TenantID).Scan(&prevUnit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bind lease: %w", err)
	}
	if prevUnit != "" && prevUnit != l.UnitID {
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE units SET status = ?, updated_at = ? WHERE id = ?`),
			string(UnitVacant), now, prevUnit); err != nil {
			return fmt.Errorf("bind lease: vacate unit: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE units SET status = ?, updated_at = ? WHERE id = ?`),
		string(UnitOccupied), now, l.UnitID)
	if err != nil {
		return fmt.Errorf("bind lease: occupy unit: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO leases (`+leaseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id) DO UPDATE SET
			unit_id = excluded.unit_id,
			rent_cents = excluded.rent_cents,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			document_url = excluded.document_url,
			updated_at = excluded.updated_at`),
		l.TenantID, l.UnitID, l.RentCents, encodeTime(l.StartDate), encodeTime(l.EndDate),
		l.DocumentURL, encodeTime(l.CreatedAt), encodeTime(l.UpdatedAt)); err != nil {
		return fmt.Errorf("bind lease: %w", err)
	}
	return tx.Commit()
}

func (s *sqlStore) ReleaseLease(ctx context.Context, tenantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var unitID string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT unit_id FROM leases WHERE tenant_id = ?`), tenantID).Scan(&unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM leases WHERE tenant_id = ?`), tenantID); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	// The unit may have been removed independently; nothing to vacate then.
	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE units SET status = ?, updated_at = ? WHERE id = ?`),
		string(UnitVacant), encodeTime(time.Now()), unitID); err != nil {
		return fmt.Errorf("release lease: vacate unit: %w", err)
	}
	return tx.Commit()
}

// ----- Maintenance -----

const maintenanceColumns = `id, tenant_id, unit_id, title, description, category, urgency, status, assigned_to, photo_urls, created_at, updated_at`

func (s *sqlStore) CreateMaintenanceRequest(ctx context.Context, m *MaintenanceRequest) error {
	photos, err := json.Marshal(emptyIfNil(m.PhotoURLs))
	if err != nil {
		return fmt.Errorf("encode photo urls: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO maintenance_requests (`+maintenanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.UnitID, m.Title, m.Description, m.Category,
		string(m.Urgency), string(m.Status), m.AssignedTo, string(photos),
		encodeTime(m.CreatedAt), encodeTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create maintenance request: %w", err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanMaintenance(row interface{ Scan(...any) error }) (*MaintenanceRequest, error) {
	var m MaintenanceRequest
	var urgency, status, photos, created, updated string
	if err := row.Scan(&m.ID, &m.TenantID, &m.UnitID, &m.Title, &m.Description,
		&m.Category, &urgency, &status, &m.AssignedTo, &photos, &created, &updated); err != nil {
		return nil, err
	}
	m.Urgency = Urgency(urgency)
	m.Status = MaintenanceStatus(status)
	if err := json.Unmarshal([]byte(photos), &m.PhotoURLs); err != nil {
		m.PhotoURLs = nil
	}
	m.CreatedAt = decodeTime(created)
	m.UpdatedAt = decodeTime(updated)
	return &m, nil
}

func (s *sqlStore) MaintenanceRequestByID(ctx context.Context, id string) (*MaintenanceRequest, error) {
	m, err := scanMaintenance(s.queryRow(ctx, `SELECT `+maintenanceColumns+` FROM maintenance_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *sqlStore) ListMaintenanceRequests(ctx context.Context, f MaintenanceFilter) ([]MaintenanceRequest, error) {
	q := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests`
	var conds []string
	var args []any
	if f.TenantID != "" {
		conds = append(conds, `tenant_id = ?`)
		args = append(args, f.TenantID)
	}
	if f.AssignedTo != "" {
		conds = append(conds, `assigned_to = ?`)
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MaintenanceRequest
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateMaintenanceRequest(ctx context.Context, m *MaintenanceRequest) error {
	m.UpdatedAt = time.Now()
	photos, err := json.Marshal(emptyIfNil(m.PhotoURLs))
	if err != nil {
		return fmt.Errorf("encode photo urls: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE maintenance_requests SET title = ?, description = ?, category = ?, urgency = ?, status = ?, assigned_to = ?, photo_urls = ?, updated_at = ? WHERE id = ?`,
		m.Title, m.Description, m.Category, string(m.Urgency), string(m.Status),
		m.AssignedTo, string(photos), encodeTime(m.UpdatedAt), m.ID)
	if err != nil {
		return fmt.Errorf("update maintenance request: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteMaintenanceRequest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete maintenance request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM maintenance_updates WHERE request_id = ?`), id); err != nil {
		return fmt.Errorf("delete maintenance updates: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM maintenance_requests WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete maintenance request: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqlStore) AppendMaintenanceUpdate(ctx context.Context, u *MaintenanceUpdate) error {
	_, err := s.exec(ctx,
		`INSERT INTO maintenance_updates (id, request_id, message, posted_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.RequestID, u.Message, u.PostedBy, encodeTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("append maintenance update: %w", err)
	}
	return nil
}

func (s *sqlStore) ListMaintenanceUpdates(ctx context.Context, requestID string) ([]MaintenanceUpdate, error) {
	rows, err := s.query(ctx,
		`SELECT id, request_id, message, posted_by, created_at FROM maintenance_updates WHERE request_id = ? ORDER BY created_at`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []MaintenanceUpdate
	for rows.Next() {
		var u MaintenanceUpdate
		var created string
		if err := rows.Scan(&u.ID, &u.RequestID, &u.Message, &u.PostedBy, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = decodeTime(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ----- Payments -----

const paymentColumns = `id, tenant_id, amount_cents, currency, method, status, provider_ref, period, due_date, paid_at, created_at, updated_at`

func (s *sqlStore) CreatePayment(ctx context.Context, p *Payment) error {
	_, err := s.exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.AmountCents, p.Currency, p.Method, string(p.Status),
		p.ProviderRef, p.Period, encodeTime(p.DueDate), encodeTime(p.PaidAt),
		encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create payment for tenant %s period %s: %w", p.TenantID, p.Period, ErrConflict)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func scanPayment(row interface{ Scan(...any) error }) (*Payment, error) {
	var p Payment
	var status, due, paid, created, updated string
	if err := row.Scan(&p.ID, &p.TenantID, &p.AmountCents, &p.Currency, &p.Method,
		&status, &p.ProviderRef, &p.Period, &due, &paid, &created, &updated); err != nil {
		return nil, err
	}
	p.Status = PaymentStatus(status)
	p.DueDate = decodeTime(due)
	p.PaidAt = decodeTime(paid)
	p.CreatedAt = decodeTime(created)
	p.UpdatedAt = decodeTime(updated)
	return &p, nil
}

func (s *sqlStore) PaymentByID(ctx context.Context, id string) (*Payment, error) {
	p, err := scanPayment(s.queryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *sqlStore) PaymentByProviderRef(ctx context.Context, ref string) (*Payment, error) {
	p, err := scanPayment(s.queryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_ref = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *sqlStore) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments`
	var conds []string
	var args []any
	if f.TenantID != "" {
		conds = append(conds, `tenant_id = ?`)
		args = append(args, f.TenantID)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	if f.Period != "" {
		conds = append(conds, `period = ?`)
		args = append(args, f.Period)
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdatePayment(ctx context.Context, p *Payment) error {
	p.UpdatedAt = time.Now()
	res, err := s.exec(ctx,
		`UPDATE payments SET amount_cents = ?, currency = ?, method = ?, status = ?, provider_ref = ?, due_date = ?, paid_at = ?, updated_at = ? WHERE id = ?`,
		p.AmountCents, p.Currency, p.Method, string(p.Status), p.ProviderRef,
		encodeTime(p.DueDate), encodeTime(p.PaidAt), encodeTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return requireRow(res)
}

// ----- Notifications -----

func (s *sqlStore) CreateNotification(ctx context.Context, n *Notification) error {
	_, err := s.exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, deep_link, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.DeepLink,
		boolToInt(n.Read), encodeTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *sqlStore) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.query(ctx,
		`SELECT id, user_id, type, title, message, deep_link, read, created_at FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Notification
	for rows.Next() {
		var n Notification
		var read int
		var created string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.DeepLink, &read, &created); err != nil {
			return nil, err
		}
		n.Read = read != 0
		n.CreatedAt = decodeTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqlStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := s.exec(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread notification count: %w", err)
	}
	return n, nil
}

// ----- Lifecycle -----

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
