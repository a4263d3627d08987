package db

import (
	"context"
	"errors"
	"testing"

	"github.com/nar43/eventtracking/internal/models"
)

func enqueue(t *testing.T, db *DB, owner, name, date string) *models.PendingEvent {
	t.Helper()

	p := &models.PendingEvent{Owner: owner, Name: name, Date: date}
	if err := db.EnqueuePendingEvent(context.Background(), p); err != nil {
		t.Fatalf("failed to enqueue event: %v", err)
	}
	return p
}

func TestEnqueuePendingEvent(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	p := enqueue(t, db, "alice", "Offline party", "2024-06-01")
	if p.ID == 0 {
		t.Error("pending ID not set after enqueue")
	}

	pending, err := db.ListPendingEvents(ctx, "alice")
	if err != nil {
		t.Fatalf("failed to list pending events: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(pending))
	}

	// staged rows are not part of the live list yet
	events, err := db.ListEvents(ctx, "alice", models.EventFilter{})
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no live events before sync, got %d", len(events))
	}
}

func TestEnqueuePendingEventValidation(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()

	err := db.EnqueuePendingEvent(context.Background(), &models.PendingEvent{Owner: "alice", Name: "", Date: "2024-06-01"})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestSyncPendingEvents(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	createEvent(t, db, "alice", "Existing", "2024-01-01")
	enqueue(t, db, "alice", "One", "2024-06-01")
	enqueue(t, db, "alice", "Two", "2024-06-02")
	enqueue(t, db, "bob", "Three", "2024-06-03")

	report, err := db.SyncPendingEvents(ctx)
	if err != nil {
		t.Fatalf("failed to sync: %v", err)
	}
	if report.Migrated != 3 {
		t.Errorf("expected 3 migrated, got %d", report.Migrated)
	}
	if report.ByOwner["alice"] != 2 || report.ByOwner["bob"] != 1 {
		t.Errorf("unexpected per-owner counts: %v", report.ByOwner)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}

	count, err := db.CountPendingEvents(ctx)
	if err != nil {
		t.Fatalf("failed to count pending events: %v", err)
	}
	if count != 0 {
		t.Errorf("expected pending_sync to be empty, got %d", count)
	}

	alice, err := db.ListEvents(ctx, "alice", models.EventFilter{})
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(alice) != 3 {
		t.Fatalf("expected 3 events for alice, got %d", len(alice))
	}
	if alice[1].Name != "One" || alice[2].Name != "Two" {
		t.Errorf("expected migrated events after existing ones, got %q %q", alice[1].Name, alice[2].Name)
	}

	bob, err := db.ListEvents(ctx, "bob", models.EventFilter{})
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(bob) != 1 || bob[0].Date != "2024-06-03" {
		t.Errorf("expected bob's event to be migrated, got %+v", bob)
	}
}

func TestSyncPendingEventsSecondRunIsNoop(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	enqueue(t, db, "alice", "One", "2024-06-01")
	enqueue(t, db, "alice", "Two", "2024-06-02")

	if _, err := db.SyncPendingEvents(ctx); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	report, err := db.SyncPendingEvents(ctx)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if report.Migrated != 0 {
		t.Errorf("expected second run to migrate nothing, got %d", report.Migrated)
	}

	events, err := db.ListEvents(ctx, "alice", models.EventFilter{})
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events after two runs, got %d", len(events))
	}
}

func TestSyncPendingEventsCanceledContext(t *testing.T) {
	db := setupTestDB(t)
	defer func() { _ = db.Close() }()

	enqueue(t, db, "alice", "One", "2024-06-01")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.SyncPendingEvents(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}

	// nothing was migrated or cleared
	count, err := db.CountPendingEvents(context.Background())
	if err != nil {
		t.Fatalf("failed to count pending events: %v", err)
	}
	if count != 1 {
		t.Errorf("expected staged row to survive failed sync, got %d", count)
	}
}
