package db

// SchemaVersion is stored in PRAGMA user_version. Opening a database with an
// older version drops every table and recreates the current layout.
const SchemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password_salt BLOB NOT NULL,
	password_hash BLOB NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_sync (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	queued_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_name ON events(name);
CREATE INDEX IF NOT EXISTS idx_event_date ON events(date);
CREATE INDEX IF NOT EXISTS idx_event_owner ON events(owner, id);
CREATE INDEX IF NOT EXISTS idx_pending_owner ON pending_sync(owner, id);
`

const dropSchema = `
DROP INDEX IF EXISTS idx_pending_owner;
DROP INDEX IF EXISTS idx_event_owner;
DROP INDEX IF EXISTS idx_event_date;
DROP INDEX IF EXISTS idx_event_name;
DROP TABLE IF EXISTS pending_sync;
DROP TABLE IF EXISTS events;
DROP TABLE IF EXISTS users;
`
