package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/models"
	"github.com/nar43/eventtracking/internal/notify"
)

type countingMigrator struct {
	calls atomic.Int32
	err   error
}

func (m *countingMigrator) SyncPendingEvents(ctx context.Context) (*models.SyncReport, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &models.SyncReport{RunID: "run", ByOwner: map[string]int{}}, nil
}

type notice struct {
	username   string
	noticeType string
	data       any
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(username, noticeType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{username, noticeType, data})
}

func (n *recordingNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(db.DriverModernc, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestRunOnceMigratesAndNotifies(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	for _, p := range []models.PendingEvent{
		{Owner: "alice", Name: "One", Date: "2024-06-01"},
		{Owner: "alice", Name: "Two", Date: "2024-06-02"},
		{Owner: "bob", Name: "Three", Date: "2024-06-03"},
	} {
		if err := database.EnqueuePendingEvent(ctx, &p); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
	}

	notifier := &recordingNotifier{}
	s, err := New(database, notifier, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	defer s.Stop()

	report, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("failed to run sync: %v", err)
	}
	if report.Migrated != 3 {
		t.Errorf("expected 3 migrated, got %d", report.Migrated)
	}

	notices := notifier.all()
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(notices))
	}
	for _, n := range notices {
		if n.noticeType != notify.TypeSyncCompleted {
			t.Errorf("expected %s, got %s", notify.TypeSyncCompleted, n.noticeType)
		}
		data := n.data.(map[string]any)
		want := map[string]int{"alice": 2, "bob": 1}[n.username]
		if data["migrated"] != want {
			t.Errorf("expected %d migrated for %s, got %v", want, n.username, data["migrated"])
		}
	}

	st := s.Status()
	if st.LastRun == nil || st.LastRun.RunID != report.RunID {
		t.Error("expected status to record the last run")
	}

	// second run finds nothing
	report, err = s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("failed to run sync: %v", err)
	}
	if report.Migrated != 0 {
		t.Errorf("expected 0 migrated on second run, got %d", report.Migrated)
	}
	if len(notifier.all()) != 2 {
		t.Error("expected no notices for an empty run")
	}
}

func TestRunOnceOffline(t *testing.T) {
	m := &countingMigrator{}
	cfg := DefaultConfig()
	cfg.StartOnline = false

	s, err := New(m, nil, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	defer s.Stop()

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("expected ErrOffline, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Error("migrator should not run while offline")
	}
}

func TestRunOnceRecordsError(t *testing.T) {
	m := &countingMigrator{err: errors.New("disk full")}

	s, err := New(m, nil, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	defer s.Stop()

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected migration error")
	}
	if st := s.Status(); st.LastError == "" {
		t.Error("expected status to record the error")
	}
}

func TestSetOnlineTriggersRun(t *testing.T) {
	m := &countingMigrator{}
	cfg := DefaultConfig()
	cfg.StartOnline = false

	s, err := New(m, nil, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	defer s.Stop()

	s.SetOnline(false)
	if m.calls.Load() != 0 {
		t.Fatal("staying offline should not trigger a run")
	}

	s.SetOnline(true)

	deadline := time.Now().Add(2 * time.Second)
	for m.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.calls.Load() != 1 {
		t.Errorf("expected 1 run after going online, got %d", m.calls.Load())
	}
	if !s.Status().Online {
		t.Error("expected status to report online")
	}
}

func TestTickSkippedWhileOffline(t *testing.T) {
	m := &countingMigrator{}
	cfg := DefaultConfig()
	cfg.StartOnline = false

	s, err := New(m, nil, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	defer s.Stop()

	s.tick()

	if m.calls.Load() != 0 {
		t.Errorf("expected scheduled run to be skipped, got %d calls", m.calls.Load())
	}
	if st := s.Status(); st.LastError != "" || st.LastRun != nil {
		t.Errorf("expected no recorded run, got %+v", st)
	}
}

func TestSetOnlineAfterStopDoesNotRun(t *testing.T) {
	m := &countingMigrator{}
	cfg := DefaultConfig()
	cfg.StartOnline = false

	s, err := New(m, nil, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	s.Stop()

	s.SetOnline(true)
	time.Sleep(50 * time.Millisecond)

	if m.calls.Load() != 0 {
		t.Errorf("expected no run after stop, got %d calls", m.calls.Load())
	}
	if st := s.Status(); st.LastError != "" {
		t.Errorf("expected no recorded error, got %q", st.LastError)
	}
	if !s.Online() {
		t.Error("expected online flag to change after stop")
	}
}

func TestNewInvalidSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule = "every now and then"

	if _, err := New(&countingMigrator{}, nil, cfg, nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule = "@every 1h"

	s, err := New(&countingMigrator{}, nil, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second start should be a no-op: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
}
