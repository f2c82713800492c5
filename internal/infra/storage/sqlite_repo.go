package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveRecord is one persisted save slot. Snapshot is the engine's flat
// serialized state, stored opaque.
type SaveRecord struct {
	Slot     string          `json:"slot"`
	SimDate  time.Time       `json:"sim_date"`
	SavedAt  time.Time       `json:"saved_at"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// StoredEvent mirrors the audit event structure for persistence. The events
// package does NOT import this; the adapter in cmd translates.
type StoredEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	SimDate   time.Time   `json:"sim_date"`
	EventType string      `json:"event_type"`
	CompanyID string      `json:"company_id"`
	Payload   interface{} `json:"payload"`
}

// SaveRepository persists and lists save slots in SQLite.
type SaveRepository struct {
	db *sql.DB
}

// NewSaveRepository wraps the database.
func NewSaveRepository(db *sql.DB) *SaveRepository {
	return &SaveRepository{db: db}
}

// Upsert writes a save slot, replacing any prior content.
func (r *SaveRepository) Upsert(ctx context.Context, rec SaveRecord) error {
	query := `
		INSERT INTO saves (slot, sim_date, saved_at, snapshot)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			sim_date=excluded.sim_date,
			saved_at=excluded.saved_at,
			snapshot=excluded.snapshot
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Slot, rec.SimDate.Format(time.RFC3339), rec.SavedAt, string(rec.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("failed to write save slot %s: %w", rec.Slot, err)
	}
	return nil
}

// Load fetches one save slot. sql.ErrNoRows signals an empty slot.
func (r *SaveRepository) Load(ctx context.Context, slot string) (*SaveRecord, error) {
	query := `SELECT slot, sim_date, saved_at, snapshot FROM saves WHERE slot = ?`
	var (
		rec     SaveRecord
		simDate string
		blob    string
	)
	err := r.db.QueryRowContext(ctx, query, slot).Scan(&rec.Slot, &simDate, &rec.SavedAt, &blob)
	if err != nil {
		return nil, fmt.Errorf("failed to load save slot %s: %w", slot, err)
	}
	if rec.SimDate, err = time.Parse(time.RFC3339, simDate); err != nil {
		return nil, fmt.Errorf("corrupt sim_date in slot %s: %w", slot, err)
	}
	rec.Snapshot = json.RawMessage(blob)
	return &rec, nil
}

// List returns the metadata of every save slot, newest first. Snapshots are
// not loaded.
func (r *SaveRepository) List(ctx context.Context) ([]SaveRecord, error) {
	query := `SELECT slot, sim_date, saved_at FROM saves ORDER BY saved_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list save slots: %w", err)
	}
	defer rows.Close()

	var out []SaveRecord
	for rows.Next() {
		var (
			rec     SaveRecord
			simDate string
		)
		if err := rows.Scan(&rec.Slot, &simDate, &rec.SavedAt); err != nil {
			return nil, err
		}
		if rec.SimDate, err = time.Parse(time.RFC3339, simDate); err != nil {
			return nil, fmt.Errorf("corrupt sim_date in slot %s: %w", rec.Slot, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EventRepository appends audit events to SQLite.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository wraps the database.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append inserts one audit event.
func (r *EventRepository) Append(ctx context.Context, event StoredEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO sim_events (id, timestamp, sim_date, event_type, company_id, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.SimDate.Format(time.RFC3339),
		event.EventType, event.CompanyID, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// ByCompany returns the persisted audit trail of one company.
func (r *EventRepository) ByCompany(ctx context.Context, companyID string) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, sim_date, event_type, company_id, payload FROM sim_events WHERE company_id = ? ORDER BY timestamp ASC`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			e          StoredEvent
			simDate    string
			payloadStr string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &simDate, &e.EventType, &e.CompanyID, &payloadStr); err != nil {
			return nil, err
		}
		if e.SimDate, err = time.Parse(time.RFC3339, simDate); err != nil {
			return nil, err
		}
		var payload interface{}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return nil, err
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
