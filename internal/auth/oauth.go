package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"rankwatch/internal/models"
)

// OAuthStore is the user persistence OAuth needs. *db.DB implements it.
type OAuthStore interface {
	UpsertOAuthUser(ctx context.Context, user *models.User) error
}

// OAuthConfig holds the OIDC client settings.
type OAuthConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuth authenticates users through an OpenID Connect provider.
type OAuth struct {
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	store        OAuthStore
	logger       *slog.Logger
}

// NewOAuth discovers the provider at cfg.Issuer and builds the OAuth client.
func NewOAuth(ctx context.Context, cfg OAuthConfig, store OAuthStore, logger *slog.Logger) (*OAuth, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OAuth{
		provider: provider,
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		store:    store,
		logger:   logger.With("component", "auth"),
	}, nil
}

func (o *OAuth) Provider() string { return models.ProviderOAuth }

// AuthCodeURL returns the provider login URL for state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.oauth2Config.AuthCodeURL(state)
}

// Authenticate exchanges creds.Code for tokens, verifies the ID token and
// upserts the user from its claims.
func (o *OAuth) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	token, err := o.oauth2Config.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing id_token", ErrInvalidToken)
	}
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := make(map[string]any)
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}

	// Some providers only put minimal claims in the ID token
	userInfo, err := o.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err == nil {
		var extra map[string]any
		if err := userInfo.Claims(&extra); err == nil {
			for k, v := range extra {
				claims[k] = v
			}
		}
	} else {
		o.logger.Warn("failed to fetch userinfo", "error", err)
	}

	user := userFromClaims(claims)
	if user.Sub == "" || user.Email == "" {
		return nil, fmt.Errorf("%w: sub and email claims are required", ErrInvalidToken)
	}
	if err := o.store.UpsertOAuthUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func userFromClaims(claims map[string]any) *models.User {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	return &models.User{Sub: sub, Email: email, Name: name, Picture: picture}
}

// GenerateState returns a random value for the OAuth state parameter.
func GenerateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
