package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// New opens a postgres connection and verifies it with a ping
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate applies the schema. Statements are idempotent so this is safe to
// run on every startup.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS grocery_items (
			id UUID PRIMARY KEY,
			product_name TEXT NOT NULL,
			category TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			purchase_date DATE NOT NULL,
			expiry_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			completed_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grocery_items_status ON grocery_items(status)`,
		`CREATE INDEX IF NOT EXISTS idx_grocery_items_expiry ON grocery_items(expiry_date)`,
		`CREATE TABLE IF NOT EXISTS health_metrics (
			config_key TEXT PRIMARY KEY,
			sugar_level DOUBLE PRECISION,
			cholesterol DOUBLE PRECISION,
			blood_pressure_systolic DOUBLE PRECISION,
			blood_pressure_diastolic DOUBLE PRECISION,
			weight DOUBLE PRECISION,
			height DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS health_reports (
			id UUID PRIMARY KEY,
			original_name TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS health_analysis_cache (
			config_key TEXT PRIMARY KEY,
			analysis JSONB NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS cors_config (
			config_key TEXT PRIMARY KEY,
			allowed_origins TEXT NOT NULL,
			allow_credentials BOOLEAN NOT NULL DEFAULT false,
			max_age INTEGER NOT NULL DEFAULT 300,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ratelimit_config (
			config_key TEXT PRIMARY KEY,
			rate TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
