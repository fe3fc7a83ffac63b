// internal/repository/postgres/schema.go
package postgres

import (
	"context"
	"fmt"
)

// Table names known to the gateway. Count and Exists only accept these.
const (
	TableRoles          = "roles"
	TableProvinces      = "provinces"
	TableDistricts      = "districts"
	TableVillages       = "villages"
	TableContractTypes  = "contract_types"
	TableLicenses       = "licenses"
	TableUsers          = "users"
	TableContracts      = "contracts"
	TableSubmissions    = "submissions"
	TablePerformance    = "performance"
	TableNotifications  = "notifications"
	TableSettings       = "settings"
	TableAccessLog      = "log_access"
	TableFAQ            = "faq"
	TableTemplates      = "templates"
	TableAnnouncements  = "announcements"
	TablePasswordResets = "password_resets"
)

var knownTables = map[string]struct{}{
	TableRoles: {}, TableProvinces: {}, TableDistricts: {}, TableVillages: {},
	TableContractTypes: {}, TableLicenses: {}, TableUsers: {}, TableContracts: {},
	TableSubmissions: {}, TablePerformance: {}, TableNotifications: {},
	TableSettings: {}, TableAccessLog: {}, TableFAQ: {}, TableTemplates: {},
	TableAnnouncements: {}, TablePasswordResets: {},
}

// KnownTable reports whether name is part of the schema.
func KnownTable(name string) bool {
	_, ok := knownTables[name]
	return ok
}

// schema is ordered so that every referenced table is created first.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS provinces (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		code VARCHAR(20) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS districts (
		id BIGSERIAL PRIMARY KEY,
		province_id BIGINT NOT NULL REFERENCES provinces(id) ON DELETE RESTRICT,
		name VARCHAR(150) NOT NULL,
		code VARCHAR(20) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS villages (
		id BIGSERIAL PRIMARY KEY,
		district_id BIGINT NOT NULL REFERENCES districts(id) ON DELETE RESTRICT,
		name VARCHAR(150) NOT NULL,
		code VARCHAR(20) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contract_types (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(150) NOT NULL UNIQUE,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS licenses (
		id BIGSERIAL PRIMARY KEY,
		license_number TEXT NOT NULL,
		license_number_hash CHAR(64) NOT NULL UNIQUE,
		status VARCHAR(20) NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'suspended', 'revoked')),
		issue_date DATE NOT NULL,
		expiry_date DATE NOT NULL,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (expiry_date > issue_date)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(150) NOT NULL,
		phone VARCHAR(30),
		role_id BIGINT NOT NULL REFERENCES roles(id),
		license_id BIGINT UNIQUE REFERENCES licenses(id) ON DELETE SET NULL,
		province_id BIGINT REFERENCES provinces(id) ON DELETE SET NULL,
		district_id BIGINT REFERENCES districts(id) ON DELETE SET NULL,
		office_address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id BIGSERIAL PRIMARY KEY,
		notary_id BIGINT NOT NULL REFERENCES users(id),
		contract_type_id BIGINT NOT NULL REFERENCES contract_types(id),
		contract_number VARCHAR(40) NOT NULL UNIQUE,
		title VARCHAR(255) NOT NULL,
		party_a VARCHAR(255) NOT NULL,
		party_b VARCHAR(255) NOT NULL,
		content TEXT NOT NULL,
		village_id BIGINT REFERENCES villages(id) ON DELETE SET NULL,
		contract_date DATE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft', 'submitted', 'reviewed', 'approved', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		contract_id BIGINT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		notary_id BIGINT NOT NULL REFERENCES users(id),
		reviewer_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'in_review', 'accepted', 'rejected')),
		notes TEXT,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		reviewed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS performance (
		id BIGSERIAL PRIMARY KEY,
		notary_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		period CHAR(7) NOT NULL,
		contracts_count BIGINT NOT NULL DEFAULT 0,
		approved_count BIGINT NOT NULL DEFAULT 0,
		rejected_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (notary_id, period)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		link VARCHAR(255),
		dedupe_key VARCHAR(100) UNIQUE,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id BIGSERIAL PRIMARY KEY,
		setting_key VARCHAR(100) NOT NULL UNIQUE,
		setting_value TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS log_access (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
		action VARCHAR(50) NOT NULL,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS faq (
		id BIGSERIAL PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		sort_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id BIGSERIAL PRIMARY KEY,
		contract_type_id BIGINT NOT NULL REFERENCES contract_types(id) ON DELETE CASCADE,
		name VARCHAR(150) NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		audience_role_id BIGINT REFERENCES roles(id) ON DELETE SET NULL,
		is_published BOOLEAN NOT NULL DEFAULT FALSE,
		published_at TIMESTAMPTZ,
		created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS password_resets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_log_access_user ON log_access (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_notary ON contracts (notary_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status, submitted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, is_read)`,
	`CREATE INDEX IF NOT EXISTS idx_password_resets_expiry ON password_resets (expires_at)`,
}

// SchemaStatements returns the DDL in creation order.
func SchemaStatements() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// CreateSchema runs the DDL on g. It is meant to be called on a transaction
// gateway so that a failure leaves nothing behind.
func CreateSchema(ctx context.Context, g *Gateway) error {
	for i, stmt := range schema {
		if st := g.Execute(ctx, stmt); st.Failed() {
			return fmt.Errorf("schema statement %d: %w", i+1, st.Err())
		}
	}
	return nil
}
