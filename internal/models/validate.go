package models

import (
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 4
)

// ValidationError reports input that was rejected before touching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeCredentials trims surrounding whitespace from both fields.
func NormalizeCredentials(username, password string) (string, string) {
	return strings.TrimSpace(username), strings.TrimSpace(password)
}

// ValidateCredentials checks already-normalized credentials.
func ValidateCredentials(username, password string) error {
	if username == "" || password == "" {
		return &ValidationError{Field: "credentials", Message: "username and password cannot be empty"}
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Message: "username must be at least 3 characters"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "password must be at least 4 characters"}
	}
	return nil
}

// NormalizeEvent trims name and date and rejects blanks.
func NormalizeEvent(name, date string) (string, string, error) {
	name = strings.TrimSpace(name)
	date = strings.TrimSpace(date)
	if name == "" {
		return "", "", &ValidationError{Field: "name", Message: "event name is required"}
	}
	if date == "" {
		return "", "", &ValidationError{Field: "date", Message: "event date is required"}
	}
	return name, date, nil
}
