package repository

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		phone_number VARCHAR(10) NOT NULL UNIQUE,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		pan_number VARCHAR(10) NOT NULL DEFAULT '',
		date_of_birth DATE,
		age INTEGER,
		gender VARCHAR(10) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		state VARCHAR(100) NOT NULL DEFAULT '',
		pin_code VARCHAR(6) NOT NULL DEFAULT '',
		profession VARCHAR(100) NOT NULL DEFAULT '',
		monthly_income NUMERIC(12, 2),
		bureau_score INTEGER,
		income_mode VARCHAR(20) NOT NULL DEFAULT '',
		consent_taken BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_user_pan_number ON users (pan_number) WHERE pan_number <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_user_pan ON users (pan_number)`,
	`CREATE INDEX IF NOT EXISTS idx_user_pin_code ON users (pin_code)`,
	`CREATE INDEX IF NOT EXISTS idx_user_bureau ON users (bureau_score)`,
	`CREATE INDEX IF NOT EXISTS idx_user_created_at ON users (created_at)`,
	`CREATE TABLE IF NOT EXISTS lenders (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(200) NOT NULL UNIQUE,
		pincodes_whitelisted JSONB NOT NULL DEFAULT '[]',
		pincodes_blacklisted JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_applications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		lender_id BIGINT NOT NULL REFERENCES lenders (id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		requested_amount NUMERIC(12, 2),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT unique_user_lender_application UNIQUE (user_id, lender_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_application_lender ON loan_applications (lender_id)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		lender_id BIGINT,
		phone_number VARCHAR(20) NOT NULL DEFAULT '',
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(254) NOT NULL DEFAULT '',
		pan_number VARCHAR(10) NOT NULL DEFAULT '',
		date_of_birth DATE,
		gender VARCHAR(10) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		state VARCHAR(100) NOT NULL DEFAULT '',
		pin_code VARCHAR(6) NOT NULL DEFAULT '',
		profession VARCHAR(100) NOT NULL DEFAULT '',
		monthly_income NUMERIC(12, 2),
		bureau_score INTEGER,
		income_mode VARCHAR(20) NOT NULL DEFAULT '',
		consent_taken BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(20) NOT NULL DEFAULT '',
		loan_amount NUMERIC(12, 2),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_disbursals (
		id BIGSERIAL PRIMARY KEY,
		loan_application_id BIGINT REFERENCES loan_applications (id) ON DELETE CASCADE,
		lead_id BIGINT REFERENCES leads (id) ON DELETE SET NULL,
		loan_amount NUMERIC(12, 2) NOT NULL,
		disbursed_date DATE NOT NULL,
		interest_rate NUMERIC(5, 2),
		tenure_months INTEGER,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_disbursal_date ON loan_disbursals (disbursed_date)`,
	`CREATE INDEX IF NOT EXISTS idx_disbursal_application ON loan_disbursals (loan_application_id)`,
	`CREATE INDEX IF NOT EXISTS idx_disbursal_lead ON loan_disbursals (lead_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_number TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		pan_number TEXT NOT NULL DEFAULT '',
		date_of_birth DATE,
		age INTEGER,
		gender TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		pin_code TEXT NOT NULL DEFAULT '',
		profession TEXT NOT NULL DEFAULT '',
		monthly_income REAL,
		bureau_score INTEGER,
		income_mode TEXT NOT NULL DEFAULT '',
		consent_taken BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_user_pan_number ON users (pan_number) WHERE pan_number <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_user_pin_code ON users (pin_code)`,
	`CREATE INDEX IF NOT EXISTS idx_user_bureau ON users (bureau_score)`,
	`CREATE INDEX IF NOT EXISTS idx_user_created_at ON users (created_at)`,
	`CREATE TABLE IF NOT EXISTS lenders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		pincodes_whitelisted TEXT NOT NULL DEFAULT '[]',
		pincodes_blacklisted TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_applications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		lender_id INTEGER NOT NULL REFERENCES lenders (id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		requested_amount REAL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, lender_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lender_id INTEGER,
		phone_number TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		pan_number TEXT NOT NULL DEFAULT '',
		date_of_birth DATE,
		gender TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		pin_code TEXT NOT NULL DEFAULT '',
		profession TEXT NOT NULL DEFAULT '',
		monthly_income REAL,
		bureau_score INTEGER,
		income_mode TEXT NOT NULL DEFAULT '',
		consent_taken BOOLEAN NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT '',
		loan_amount REAL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_disbursals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		loan_application_id INTEGER REFERENCES loan_applications (id) ON DELETE CASCADE,
		lead_id INTEGER REFERENCES leads (id) ON DELETE SET NULL,
		loan_amount REAL NOT NULL,
		disbursed_date DATE NOT NULL,
		interest_rate REAL,
		tenure_months INTEGER,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_disbursal_application ON loan_disbursals (loan_application_id)`,
	`CREATE INDEX IF NOT EXISTS idx_disbursal_lead ON loan_disbursals (lead_id)`,
}

// InitSchema creates the tables and indexes if they do not exist yet
func (r *Repository) InitSchema(ctx context.Context) error {
	stmts := postgresSchema
	if r.db.DriverName() == "sqlite3" {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
