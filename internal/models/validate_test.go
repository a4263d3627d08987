package models

import (
	"errors"
	"testing"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantField string
	}{
		{"valid", "alice", "pass", ""},
		{"empty username", "", "pass", "credentials"},
		{"empty password", "alice", "", "credentials"},
		{"short username", "al", "pass", "username"},
		{"short password", "alice", "abc", "password"},
		{"multibyte username", "éàü", "pass", ""},
		{"lengths count characters", "😀😀", "pass", "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestNormalizeCredentialsTrims(t *testing.T) {
	u, p := NormalizeCredentials("  alice ", "\tsecret\n")
	if u != "alice" || p != "secret" {
		t.Errorf("expected trimmed values, got %q %q", u, p)
	}

	// whitespace-only input becomes empty and is then rejected
	u, p = NormalizeCredentials("   ", "pass")
	if err := ValidateCredentials(u, p); err == nil {
		t.Error("expected whitespace-only username to be rejected")
	}
}

func TestNormalizeEvent(t *testing.T) {
	name, date, err := NormalizeEvent(" Birthday ", " 2024-05-01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Birthday" || date != "2024-05-01" {
		t.Errorf("expected trimmed values, got %q %q", name, date)
	}

	if _, _, err := NormalizeEvent("  ", "2024-05-01"); err == nil {
		t.Error("expected blank name to be rejected")
	}
	if _, _, err := NormalizeEvent("Party", ""); err == nil {
		t.Error("expected blank date to be rejected")
	}
}
