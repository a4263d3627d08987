package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters for stored password hashes
	PasswordIterations  = 2
	PasswordMemoryKiB   = 19 * 1024
	PasswordParallelism = 1
	PasswordKeyLength   = 32

	SaltLength = 16
)

var ErrInvalidSalt = errors.New("invalid password salt")

// NewSalt returns a fresh random salt for HashPassword
func NewSalt() ([]byte, error) {
	return GenerateRandomBytes(SaltLength)
}

// HashPassword derives the stored hash of password with Argon2id
func HashPassword(password string, salt []byte) ([]byte, error) {
	if len(salt) < SaltLength {
		return nil, fmt.Errorf("%w: %d bytes < minimum %d", ErrInvalidSalt, len(salt), SaltLength)
	}
	return argon2.IDKey([]byte(password), salt, PasswordIterations, PasswordMemoryKiB, PasswordParallelism, PasswordKeyLength), nil
}

// VerifyPassword checks password against a stored salt and hash
func VerifyPassword(password string, salt, storedHash []byte) bool {
	computed, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}

// GenerateRandomBytes generates n random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// EncodeBase64 encodes bytes to base64 string
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
