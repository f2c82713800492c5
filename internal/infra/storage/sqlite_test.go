package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveSlotRoundTrip(t *testing.T) {
	repo := NewSaveRepository(testDB(t))
	ctx := context.Background()

	blob, _ := json.Marshal(map[string]string{"hello": "world"})
	rec := SaveRecord{
		Slot:     "slot1",
		SimDate:  time.Date(1965, 3, 1, 0, 0, 0, 0, time.UTC),
		Snapshot: blob,
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Load(ctx, "slot1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.SimDate.Equal(rec.SimDate) {
		t.Errorf("sim date mismatch: %v", got.SimDate)
	}
	if string(got.Snapshot) != string(blob) {
		t.Errorf("snapshot mismatch: %s", got.Snapshot)
	}
}

func TestSaveSlotKeepsCallerTimestamp(t *testing.T) {
	repo := NewSaveRepository(testDB(t))
	ctx := context.Background()

	// The autosave hook stamps records itself; the stored row must carry
	// that timestamp, not the write time.
	savedAt := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	blob, _ := json.Marshal("v1")
	err := repo.Upsert(ctx, SaveRecord{
		Slot:     "stamped",
		SimDate:  time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		SavedAt:  savedAt,
		Snapshot: blob,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Load(ctx, "stamped")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.SavedAt.Equal(savedAt) {
		t.Errorf("saved_at mismatch: got %v, want %v", got.SavedAt, savedAt)
	}
}

func TestSaveSlotOverwrite(t *testing.T) {
	repo := NewSaveRepository(testDB(t))
	ctx := context.Background()

	first, _ := json.Marshal("v1")
	second, _ := json.Marshal("v2")
	date := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.Upsert(ctx, SaveRecord{Slot: "auto", SimDate: date, Snapshot: first}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, SaveRecord{Slot: "auto", SimDate: date.AddDate(1, 0, 0), Snapshot: second}); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}

	got, err := repo.Load(ctx, "auto")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got.Snapshot) != string(second) {
		t.Errorf("overwrite lost: %s", got.Snapshot)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("overwriting a slot should not multiply entries, got %d", len(list))
	}
}

func TestLoadMissingSlot(t *testing.T) {
	repo := NewSaveRepository(testDB(t))
	_, err := repo.Load(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEventAppendAndQuery(t *testing.T) {
	repo := NewEventRepository(testDB(t))
	ctx := context.Background()

	for i, company := range []string{"c1", "c2", "c1"} {
		err := repo.Append(ctx, StoredEvent{
			ID:        string(rune('a' + i)),
			Timestamp: time.Now(),
			SimDate:   time.Date(1960, 1, 1+i, 0, 0, 0, 0, time.UTC),
			EventType: "WEEK_CLOSED",
			CompanyID: company,
			Payload:   map[string]int{"n": i},
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := repo.ByCompany(ctx, "c1")
	if err != nil {
		t.Fatalf("byCompany: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events for c1, got %d", len(got))
	}
}
