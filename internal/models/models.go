package models

import "time"

// User represents an account in the database
type User struct {
	Username     string    `json:"username"`
	PasswordSalt []byte    `json:"-"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Event represents a row of the live event list
type Event struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"-"`
	Name      string    `json:"name"`
	Date      string    `json:"date"` // free-form, usually YYYY-MM-DD
	CreatedAt time.Time `json:"createdAt"`
}

// PendingEvent is an event staged while offline, waiting for the next sync run
type PendingEvent struct {
	ID       int64     `json:"id"`
	Owner    string    `json:"-"`
	Name     string    `json:"name"`
	Date     string    `json:"date"`
	QueuedAt time.Time `json:"queuedAt"`
}

// EventFilter narrows ListEvents. Empty fields match everything.
type EventFilter struct {
	Name string
	Date string
}

// SyncReport describes one migration of pending_sync into events
type SyncReport struct {
	RunID      string         `json:"runId"`
	Migrated   int            `json:"migrated"`
	ByOwner    map[string]int `json:"-"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}
