// Package migrate bootstraps the schema at process start. Every statement
// is additive and idempotent (IF NOT EXISTS), so there is no version chain
// to track; re-running the full list is always safe.
package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS clinics (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		plan_tier TEXT NOT NULL DEFAULT 'basic',
		owner_email TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT REFERENCES clinics(id) ON DELETE CASCADE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'staff',
		is_owner BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phone TEXT,
		status TEXT NOT NULL DEFAULT 'lead',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phone TEXT,
		status TEXT NOT NULL DEFAULT 'novo',
		appointment_date TIMESTAMPTZ,
		notes TEXT,
		doctor TEXT,
		type TEXT,
		insurance TEXT,
		value NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		patient_id BIGINT REFERENCES patients(id) ON DELETE SET NULL,
		patient_name TEXT NOT NULL,
		patient_phone TEXT,
		appointment_date TIMESTAMPTZ NOT NULL,
		start_time TIMESTAMPTZ,
		end_time TIMESTAMPTZ,
		duration_minutes INT NOT NULL DEFAULT 60,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT,
		doctor TEXT,
		type TEXT,
		insurance TEXT NOT NULL DEFAULT 'Particular',
		value NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS clinic_settings (
		clinic_id BIGINT PRIMARY KEY REFERENCES clinics(id) ON DELETE CASCADE,
		identity TEXT,
		hours TEXT,
		insurance TEXT,
		chatbot TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		payment_method TEXT,
		status TEXT NOT NULL DEFAULT 'paid',
		date DATE NOT NULL DEFAULT CURRENT_DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS upgrade_requests (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		current_plan TEXT NOT NULL,
		requested_plan TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT,
		actor_id BIGINT,
		actor_role TEXT,
		action TEXT NOT NULL,
		resource_type TEXT,
		resource_id TEXT,
		request_id TEXT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS medical_records (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		appointment_id BIGINT NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
		patient_id BIGINT REFERENCES patients(id) ON DELETE SET NULL,
		anamnesis TEXT,
		diagnosis TEXT,
		procedures TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS prescriptions (
		id BIGSERIAL PRIMARY KEY,
		clinic_id BIGINT NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
		medical_record_id BIGINT NOT NULL REFERENCES medical_records(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		verification_token TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Colunas adicionadas depois do primeiro schema; sempre ADD COLUMN IF NOT EXISTS.
	`ALTER TABLE appointments ADD COLUMN IF NOT EXISTS value NUMERIC(12,2) NOT NULL DEFAULT 0`,
	`ALTER TABLE appointments ADD COLUMN IF NOT EXISTS insurance TEXT NOT NULL DEFAULT 'Particular'`,
	`ALTER TABLE leads ADD COLUMN IF NOT EXISTS value NUMERIC(12,2) NOT NULL DEFAULT 0`,
	`ALTER TABLE leads ADD COLUMN IF NOT EXISTS insurance TEXT`,
	`ALTER TABLE clinics ADD COLUMN IF NOT EXISTS plan_tier TEXT NOT NULL DEFAULT 'basic'`,
	`ALTER TABLE clinics ADD COLUMN IF NOT EXISTS owner_email TEXT`,

	`CREATE INDEX IF NOT EXISTS idx_appointments_clinic_date ON appointments (clinic_id, appointment_date)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_clinic_date ON leads (clinic_id, appointment_date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_clinic_date ON transactions (clinic_id, date)`,
}

// Run applies every schema statement in order.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
