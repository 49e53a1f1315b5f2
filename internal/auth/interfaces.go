package auth

import (
	"github.com/google/uuid"
)

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email string, isAdmin bool) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ TokenService   = (*JWTService)(nil)
	_ GoogleVerifier = (*UserinfoVerifier)(nil)
)
