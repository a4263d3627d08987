package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nar43/eventtracking/internal/models"
)

// CreateUser inserts a new user into the database
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (username, password_salt, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		user.Username, user.PasswordSalt, user.PasswordHash, user.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT username, password_salt, password_hash, created_at
		FROM users
		WHERE username = ?
	`

	user := &models.User{}
	var createdAt int64
	err := db.conn.QueryRowContext(ctx, query, username).Scan(
		&user.Username, &user.PasswordSalt, &user.PasswordHash, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	return user, nil
}
