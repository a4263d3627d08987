package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nar43/eventtracking/internal/models"
)

// EnqueuePendingEvent stages an event in pending_sync instead of events.
func (db *DB) EnqueuePendingEvent(ctx context.Context, pending *models.PendingEvent) error {
	name, date, err := models.NormalizeEvent(pending.Name, pending.Date)
	if err != nil {
		return err
	}
	pending.Name, pending.Date = name, date
	if pending.QueuedAt.IsZero() {
		pending.QueuedAt = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO pending_sync (owner, name, date, queued_at) VALUES (?, ?, ?, ?)`,
		pending.Owner, pending.Name, pending.Date, pending.QueuedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to queue pending event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get pending event id: %w", err)
	}
	pending.ID = id

	return nil
}

// ListPendingEvents returns owner's staged events in queue order
func (db *DB) ListPendingEvents(ctx context.Context, owner string) ([]models.PendingEvent, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, owner, name, date, queued_at FROM pending_sync WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer rows.Close()

	pending := []models.PendingEvent{}
	for rows.Next() {
		var (
			p        models.PendingEvent
			queuedAt int64
		)
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &p.Date, &queuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending event: %w", err)
		}
		p.QueuedAt = time.Unix(queuedAt, 0).UTC()
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending events: %w", err)
	}

	return pending, nil
}

// CountPendingEvents returns the number of staged rows across all owners
func (db *DB) CountPendingEvents(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sync`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return n, nil
}

// SyncPendingEvents copies every staged row into events and then clears the
// copied rows. The whole migration is one transaction.
func (db *DB) SyncPendingEvents(ctx context.Context) (*models.SyncReport, error) {
	report := &models.SyncReport{
		RunID:     uuid.NewString(),
		ByOwner:   map[string]int{},
		StartedAt: time.Now().UTC(),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, owner, name, date FROM pending_sync ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending events: %w", err)
	}
	var staged []models.PendingEvent
	for rows.Next() {
		var p models.PendingEvent
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &p.Date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pending event: %w", err)
		}
		staged = append(staged, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending events: %w", err)
	}

	if len(staged) == 0 {
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (owner, name, date, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for _, p := range staged {
		if _, err := stmt.ExecContext(ctx, p.Owner, p.Name, p.Date, now); err != nil {
			return nil, fmt.Errorf("failed to migrate pending event %d: %w", p.ID, err)
		}
		report.ByOwner[p.Owner]++
	}

	// Rows are read in id order inside the transaction, so the last id bounds
	// exactly the copied set.
	lastID := staged[len(staged)-1].ID
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_sync WHERE id <= ?`, lastID); err != nil {
		return nil, fmt.Errorf("failed to clear pending events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}

	report.Migrated = len(staged)
	report.FinishedAt = time.Now().UTC()
	return report, nil
}
