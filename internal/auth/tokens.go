package auth

import (
	"time"

	"github.com/redmonkez12/account-api/internal/apperr"
)

var (
	ErrInvalidToken = apperr.New(apperr.InvalidToken, "invalid token")
	// ErrExpiredToken matches ErrInvalidToken under errors.Is.
	ErrExpiredToken = apperr.New(apperr.InvalidToken, "token has expired")
)

// TokenClaims is the payload carried by access and refresh tokens. Refresh
// tokens only carry UserID.
type TokenClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService creates and validates signed tokens under one secret.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(claims TokenClaims, ttl time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}
