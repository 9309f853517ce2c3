package audit

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)

	entry := &Entry{
		Tool:      "write_file",
		Path:      "/config/automations.yaml",
		RequestID: "req-1",
		Success:   true,
	}
	if err := store.Record(entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" {
		t.Error("expected ID to be filled in")
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected Timestamp to be filled in")
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Tool != "write_file" || got.Path != "/config/automations.yaml" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.RequestID != "req-1" {
		t.Errorf("expected request_id req-1, got %q", got.RequestID)
	}
	if !got.Success {
		t.Error("expected success=true")
	}
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := store.Record(&Entry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Tool:      "delete_file",
			Path:      "/config/old.yaml",
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	entries, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("entries not ordered newest first: %v before %v",
				entries[i-1].Timestamp, entries[i].Timestamp)
		}
	}
}

func TestStore_RecordFailure(t *testing.T) {
	store := newTestStore(t)

	err := store.Record(&Entry{
		Tool:    "write_file",
		Path:    "/etc/passwd",
		Success: false,
		Error:   "path outside allowed directories",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries[0].Success {
		t.Error("expected success=false")
	}
	if entries[0].Error != "path outside allowed directories" {
		t.Errorf("unexpected error message: %q", entries[0].Error)
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)

	old := &Entry{
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
		Tool:      "write_file",
		Path:      "/config/a.yaml",
	}
	recent := &Entry{
		Tool: "write_file",
		Path: "/config/b.yaml",
	}
	if err := store.Record(old); err != nil {
		t.Fatalf("Record old: %v", err)
	}
	if err := store.Record(recent); err != nil {
		t.Fatalf("Record recent: %v", err)
	}

	removed, err := store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 entry pruned, got %d", removed)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "/config/b.yaml" {
		t.Errorf("expected only the recent entry to survive, got %+v", entries)
	}
}

func TestNewPruner_InvalidSchedule(t *testing.T) {
	store := newTestStore(t)

	if _, err := NewPruner(store, "not a cron expr", time.Hour); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := NewPruner(store, "0 3 * * *", time.Hour); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
}

func TestNewPruner_Defaults(t *testing.T) {
	store := newTestStore(t)

	p, err := NewPruner(store, "", 0)
	if err != nil {
		t.Fatalf("NewPruner: %v", err)
	}
	if p.retention != DefaultRetention {
		t.Errorf("expected default retention, got %v", p.retention)
	}
}
