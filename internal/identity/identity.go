// Package identity is the service's identity provider: email/password
// accounts, custom claims, sessions with rotating refresh tokens and a live
// authentication-state feed.
package identity

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/models"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidPassword    = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrReservedClaim      = errors.New("reserved claim name")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionNotFound    = errors.New("session not found")
)

const MinPasswordLength = 6

// ClaimAdmin is the custom claim that grants administrator rights.
const ClaimAdmin = "admin"

// reservedClaims cannot be set as custom claims because access tokens
// carry them at the same level.
var reservedClaims = map[string]bool{
	"sub": true, "email": true, "name": true, "sid": true,
	"iat": true, "exp": true, "nbf": true, "iss": true, "aud": true, "jti": true,
}

// User is the public view of an identity.
type User struct {
	UID         string         `json:"uid"`
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Claims      map[string]any `json:"claims"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return isAdmin(u.Claims)
}

func isAdmin(claims map[string]any) bool {
	v, _ := claims[ClaimAdmin].(bool)
	return v
}

// NewUser is the input of Provider.CreateUser.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUser(m *models.Identity) *User {
	claims := map[string]any{}
	if len(m.Claims) > 0 {
		if err := json.Unmarshal(m.Claims, &claims); err != nil {
			claims = map[string]any{}
		}
	}
	return &User{
		UID:         m.UID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Claims:      claims,
		CreatedAt:   m.CreatedAt,
	}
}
