// Package auth signs users in. Local checks an email and bcrypt password
// against the users table; OAuth runs the OpenID Connect code flow.
package auth

import (
	"context"
	"errors"

	"rankwatch/internal/models"
)

// Errors returned by authenticators.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid identity token")
)

// Credentials carries whatever an authenticator needs to identify a user.
// Local uses Email and Password; OAuth uses Code.
type Credentials struct {
	Email    string
	Password string
	Code     string
}

// Authenticator resolves credentials to a stored user.
type Authenticator interface {
	Provider() string
	Authenticate(ctx context.Context, creds Credentials) (*models.User, error)
}
