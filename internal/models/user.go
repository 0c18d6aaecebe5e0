package models

import (
	"time"

	"github.com/google/uuid"
)

// Role constants
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Authentication provider constants
const (
	ProviderLocal = "local"
	ProviderOAuth = "oauth"
)

// User represents an account that owns tracked domains.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Picture      string    `json:"picture"`
	Provider     string    `json:"provider"` // local, oauth
	Sub          string    `json:"-"`        // OIDC subject, empty for local accounts
	PasswordHash string    `json:"-"`        // bcrypt hash, empty for OAuth accounts
	Role         string    `json:"role"`     // user, admin
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user is an admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccessDomain returns true if the user owns the domain or is an admin.
func (u *User) CanAccessDomain(d *Domain) bool {
	if u == nil || d == nil {
		return false
	}
	return u.IsAdmin() || d.UserID == u.ID
}
