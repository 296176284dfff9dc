package auth

import (
	"context"
	"strings"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the credential record. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserStore is the persistence the manager needs. Lookups return an error
// wrapping apierr.ErrNotFound when nothing matches; CreateUser returns one
// wrapping apierr.ErrConflict for a taken email.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
}

// Revoker remembers logged-out refresh tokens by jti until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti, subject string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NormalizeEmail is the single email policy: trimmed and lowercased.
// Stored emails and lookups both go through it, so matching is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an already normalized address: a non-empty local
// part and domain around the last "@", and no whitespace.
func ValidateEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return apierr.Invalid("invalid email %q", email)
	}
	return nil
}
