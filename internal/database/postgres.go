package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the audit database and creates its tables.
func ConnectPostgres(postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = InitPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables(db *sql.DB) error {
	queries := []string{
		// Owner is stored as a pseudonymous key, never the email itself.
		`CREATE TABLE IF NOT EXISTS entry_audit (
			id UUID PRIMARY KEY,
			entry_id VARCHAR(24) NOT NULL,
			owner_key VARCHAR(64) NOT NULL,
			action VARCHAR(16) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_audit_owner_key ON entry_audit(owner_key)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_audit_entry_id ON entry_audit(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_audit_created_at ON entry_audit(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
