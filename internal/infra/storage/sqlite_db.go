// Package storage provides the persistence layer for the simulation server:
// save-slot snapshots and the durable audit event trail. The engine never
// imports this package; persistence works on serialized snapshots.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens (creating if needed) the local SQLite database and
// bootstraps the schemas for save slots and the audit event trail.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			sim_date TEXT NOT NULL,
			saved_at DATETIME NOT NULL,
			snapshot TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sim_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			sim_date TEXT NOT NULL,
			event_type TEXT NOT NULL,
			company_id TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sim_events_company ON sim_events(company_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sim_events_type ON sim_events(event_type);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
