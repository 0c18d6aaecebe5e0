package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"rankwatch/internal/db"
	"rankwatch/internal/models"
)

// LocalStore is the user persistence Local needs. *db.DB implements it.
type LocalStore interface {
	CreateLocalUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Local authenticates users by email and password.
type Local struct {
	store LocalStore
	cost  int
}

// NewLocal creates a password authenticator using bcrypt.DefaultCost.
func NewLocal(store LocalStore) *Local {
	return &Local{store: store, cost: bcrypt.DefaultCost}
}

func (l *Local) Provider() string { return models.ProviderLocal }

// Register creates a local account. Returns db.ErrDuplicateUser if the
// email is taken.
func (l *Local) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := l.store.CreateLocalUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks creds.Email and creds.Password. Unknown users, OAuth
// accounts and wrong passwords all return ErrInvalidCredentials.
func (l *Local) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	user, err := l.store.GetUserByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
