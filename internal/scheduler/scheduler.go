// Package scheduler decides when staged events are migrated into the live
// event list: on a cron schedule, on demand, and whenever the service comes
// back online.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nar43/eventtracking/internal/models"
	"github.com/nar43/eventtracking/internal/notify"
	"github.com/robfig/cron/v3"
)

var ErrOffline = errors.New("sync is offline")

// Migrator performs one pending-sync migration.
type Migrator interface {
	SyncPendingEvents(ctx context.Context) (*models.SyncReport, error)
}

// Notifier receives per-user notices.
type Notifier interface {
	Notify(username, noticeType string, data any)
}

// Config holds scheduler configuration.
type Config struct {
	Schedule    string        // cron spec, e.g. "@every 1m" or "*/5 * * * *"
	StartOnline bool          // initial online flag
	Timeout     time.Duration // upper bound for a scheduled run
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Schedule:    "@every 1m",
		StartOnline: true,
		Timeout:     30 * time.Second,
	}
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Online    bool               `json:"online"`
	Schedule  string             `json:"schedule"`
	LastRun   *models.SyncReport `json:"lastRun,omitempty"`
	LastError string             `json:"lastError,omitempty"`
}

type Scheduler struct {
	migrator Migrator
	notifier Notifier
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
	cron     *cron.Cron

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	runMu sync.Mutex // serializes migrations

	mu      sync.RWMutex
	online  bool
	started bool
	stopped bool
	lastRun *models.SyncReport
	lastErr error
}

// New validates cfg and builds a stopped scheduler. notifier may be nil.
func New(migrator Migrator, notifier Notifier, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	def := DefaultConfig()
	if cfg.Schedule == "" {
		cfg.Schedule = def.Schedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.Schedule, err)
	}

	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		migrator: migrator,
		notifier: notifier,
		logger:   logger,
		schedule: cfg.Schedule,
		timeout:  cfg.Timeout,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		baseCtx:  ctx,
		cancel:   cancel,
		online:   cfg.StartOnline,
	}, nil
}

// Start registers the scheduled job and starts the cron runner.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.cron.Start()
	s.started = true

	s.logger.Info("sync scheduler started", "schedule", s.schedule, "online", s.online)
	return nil
}

// Stop stops the cron runner and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()

	if wasStarted {
		s.logger.Info("sync scheduler stopped")
	}
}

// Online reports whether migrations are currently allowed.
func (s *Scheduler) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// SetOnline changes the online flag. Going from offline to online triggers
// one migration in the background unless the scheduler has been stopped.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	trigger := online && !was && !s.stopped
	if trigger {
		// Added under mu so Stop cannot be waiting on wg yet.
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if was == online {
		return
	}
	s.logger.Info("sync online status changed", "was_online", was, "is_online", online)

	if trigger {
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Online:   s.online,
		Schedule: s.schedule,
		LastRun:  s.lastRun,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// RunOnce performs a migration now. It fails with ErrOffline while offline.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.SyncReport, error) {
	if !s.Online() {
		return nil, ErrOffline
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.migrator.SyncPendingEvents(ctx)

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
	} else {
		s.lastRun = report
		s.lastErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("pending sync failed: %w", err)
	}

	if report.Migrated > 0 {
		s.logger.Info("pending sync completed", "run_id", report.RunID, "migrated", report.Migrated)
	} else {
		s.logger.Debug("pending sync found nothing to migrate", "run_id", report.RunID)
	}

	if s.notifier != nil {
		for owner, n := range report.ByOwner {
			s.notifier.Notify(owner, notify.TypeSyncCompleted, map[string]any{
				"runId":    report.RunID,
				"migrated": n,
			})
		}
	}

	return report, nil
}

func (s *Scheduler) tick() {
	if !s.Online() {
		s.logger.Debug("skipping scheduled sync while offline")
		return
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrOffline) {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
