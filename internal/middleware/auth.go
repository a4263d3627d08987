package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
)

type contextKey string

const UsernameContextKey contextKey = "username"

const issuer = "eventtracking"

// JWTConfig holds the JWT configuration
type JWTConfig struct {
	Secret        []byte
	SigningMethod jwt.SigningMethod
	Expiration    time.Duration
}

// Claims represents JWT claims. The subject is the username.
type Claims struct {
	jwt.RegisteredClaims
}

// NewJWTConfig creates a new JWT configuration
func NewJWTConfig(secret string, expiration time.Duration) *JWTConfig {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &JWTConfig{
		Secret:        []byte(secret),
		SigningMethod: jwt.SigningMethodHS256,
		Expiration:    expiration,
	}
}

// GenerateToken generates a JWT token for a user
func (c *JWTConfig) GenerateToken(username string) (string, error) {
	token, _, err := c.IssueToken(username)
	return token, err
}

// IssueToken signs a token for username and returns it with its exp claim.
func (c *JWTConfig) IssueToken(username string) (string, time.Time, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(c.SigningMethod, claims).SignedString(c.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ValidateToken validates a JWT token and returns the claims
func (c *JWTConfig) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != c.SigningMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return c.Secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// AuthMiddleware creates a middleware that validates JWT tokens
func (c *JWTConfig) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && websocket.IsWebSocketUpgrade(r) {
			// Browsers cannot set headers on a websocket handshake.
			if token := r.URL.Query().Get("access_token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			unauthorized(w, ErrMissingAuthHeader.Error())
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w, ErrInvalidAuthHeader.Error())
			return
		}

		claims, err := c.ValidateToken(parts[1])
		if err != nil {
			unauthorized(w, ErrInvalidToken.Error())
			return
		}

		ctx := WithUsername(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithUsername stores the authenticated username in ctx
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameContextKey, username)
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(UsernameContextKey).(string)
	if !ok || username == "" {
		return "", errors.New("username not found in context")
	}
	return username, nil
}
