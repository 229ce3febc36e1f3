package store

// schemaVersion is recorded in schema_migrations after a successful migrate.
const schemaVersion = 1

// Schema statements are dialect-neutral: TEXT ids, RFC3339 TEXT timestamps
// and INTEGER booleans so the same DDL runs on SQLite and PostgreSQL.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		emergency_contact TEXT NOT NULL DEFAULT '',
		profile_complete INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		unit_number TEXT NOT NULL,
		bedrooms INTEGER NOT NULL DEFAULT 0,
		bathrooms INTEGER NOT NULL DEFAULT 0,
		rent_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (property_id, unit_number)
	)`,
	`CREATE TABLE IF NOT EXISTS leases (
		tenant_id TEXT PRIMARY KEY REFERENCES users(id),
		unit_id TEXT NOT NULL REFERENCES units(id),
		rent_cents BIGINT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL DEFAULT '',
		document_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_requests (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES users(id),
		unit_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		urgency TEXT NOT NULL,
		status TEXT NOT NULL,
		assigned_to TEXT NOT NULL DEFAULT '',
		photo_urls TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_updates (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES maintenance_requests(id),
		message TEXT NOT NULL,
		posted_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES users(id),
		amount_cents BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'usd',
		method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		provider_ref TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL DEFAULT '',
		due_date TEXT NOT NULL,
		paid_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		deep_link TEXT NOT NULL DEFAULT '',
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	// One invoice per tenant per billing period; ad-hoc payments carry an
	// empty period and are exempt.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_tenant_period
		ON payments (tenant_id, period) WHERE period <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_maintenance_tenant ON maintenance_requests (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_maintenance_assigned ON maintenance_requests (assigned_to)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at)`,
}
