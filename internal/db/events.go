package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nar43/eventtracking/internal/models"
)

// CreateEvent inserts an event and fills in its ID
func (db *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	name, date, err := models.NormalizeEvent(event.Name, event.Date)
	if err != nil {
		return err
	}
	event.Name, event.Date = name, date
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (owner, name, date, created_at) VALUES (?, ?, ?, ?)`,
		event.Owner, event.Name, event.Date, event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id

	return nil
}

// GetEvent retrieves one of owner's events by ID
func (db *DB) GetEvent(ctx context.Context, owner string, id int64) (*models.Event, error) {
	query := `
		SELECT id, owner, name, date, created_at
		FROM events
		WHERE id = ? AND owner = ?
	`

	var (
		event     models.Event
		createdAt int64
	)
	err := db.conn.QueryRowContext(ctx, query, id, owner).Scan(
		&event.ID, &event.Owner, &event.Name, &event.Date, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	event.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &event, nil
}

// ListEvents returns owner's events in insertion order
func (db *DB) ListEvents(ctx context.Context, owner string, filter models.EventFilter) ([]models.Event, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}

	query := `SELECT id, owner, name, date, created_at FROM events WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var (
			event     models.Event
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.Owner, &event.Name, &event.Date, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.CreatedAt = time.Unix(createdAt, 0).UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// DeleteEvent removes exactly one of owner's events
func (db *DB) DeleteEvent(ctx context.Context, owner string, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}

	return nil
}
