package account

import (
	"context"
	"errors"
	"testing"

	"github.com/nar43/eventtracking/internal/db"
	"github.com/nar43/eventtracking/internal/models"
)

func setupTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()

	database, err := db.New(db.DriverModernc, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	return NewService(database), database
}

func TestCreateAccountAndLogin(t *testing.T) {
	svc, database := setupTestService(t)
	defer func() { _ = database.Close() }()
	ctx := context.Background()

	user, err := svc.CreateAccount(ctx, " alice ", "secret")
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected trimmed username alice, got %q", user.Username)
	}

	got, err := svc.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("expected username alice, got %s", got.Username)
	}
}

func TestCreateAccountDuplicateKeepsOriginalPassword(t *testing.T) {
	svc, database := setupTestService(t)
	defer func() { _ = database.Close() }()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "alice", "first"); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	_, err := svc.CreateAccount(ctx, "alice", "second")
	if !errors.Is(err, db.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "first"); err != nil {
		t.Errorf("original password no longer works: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "second"); !errors.Is(err, ErrIncorrectPassword) {
		t.Errorf("expected second password to be rejected, got %v", err)
	}
}

func TestLoginFailuresAreDistinguishable(t *testing.T) {
	svc, database := setupTestService(t)
	defer func() { _ = database.Close() }()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "alice", "secret"); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody", "secret")
	if !errors.Is(unknownErr, db.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", unknownErr)
	}

	_, wrongErr := svc.Login(ctx, "alice", "wrong")
	if !errors.Is(wrongErr, ErrIncorrectPassword) {
		t.Errorf("expected ErrIncorrectPassword, got %v", wrongErr)
	}

	if errors.Is(unknownErr, ErrIncorrectPassword) || errors.Is(wrongErr, db.ErrUserNotFound) {
		t.Error("login failures should not be interchangeable")
	}
}

func TestCreateAccountValidation(t *testing.T) {
	svc, database := setupTestService(t)
	defer func() { _ = database.Close() }()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "secret"},
		{"blank password", "alice", "   "},
		{"short username", "al", "secret"},
		{"short password", "alice", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(context.Background(), tt.username, tt.password)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}
