// Package account implements account creation and login on top of the user store.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/nar43/eventtracking/internal/crypto"
	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/models"
)

var ErrIncorrectPassword = errors.New("incorrect password")

// Store is the subset of the database the account service needs.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateAccount validates the credentials and stores a new user. An existing
// username yields db.ErrUserExists and leaves the stored account untouched.
func (s *Service) CreateAccount(ctx context.Context, username, password string) (*models.User, error) {
	username, password = models.NormalizeCredentials(username, password)
	if err := models.ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, db.ErrUserExists
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return nil, err
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	hash, err := crypto.HashPassword(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordSalt: salt,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login returns the user when username and password match. Unknown users
// yield db.ErrUserNotFound; a wrong password yields ErrIncorrectPassword.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username, password = models.NormalizeCredentials(username, password)
	if err := models.ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if !crypto.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrIncorrectPassword
	}

	return user, nil
}
