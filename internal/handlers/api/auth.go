package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"rankwatch/internal/auth"
	"rankwatch/internal/db"
	"rankwatch/internal/middleware"
	"rankwatch/internal/models"
	"rankwatch/internal/validation"
)

// PasswordAuthenticator signs users in and registers new local accounts.
// *auth.Local implements it.
type PasswordAuthenticator interface {
	auth.Authenticator
	Register(ctx context.Context, email, name, password string) (*models.User, error)
}

// RedirectAuthenticator signs users in through an external provider.
// *auth.OAuth implements it.
type RedirectAuthenticator interface {
	auth.Authenticator
	AuthCodeURL(state string) string
}

const oauthStateKey = "oauth_state"

// AuthHandler handles sign-in, sign-out and account registration.
type AuthHandler struct {
	local  PasswordAuthenticator
	oauth  RedirectAuthenticator // nil when OIDC is not configured
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler. oauth may be nil.
func NewAuthHandler(local PasswordAuthenticator, oauth RedirectAuthenticator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{local: local, oauth: oauth, logger: logger.With("component", "auth")}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates a local account and signs it in.
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var body credentialsBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if valid, msg := validation.ValidateEmail(body.Email); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if valid, msg := validation.ValidatePassword(body.Password); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	user, err := h.local.Register(c.Context(), body.Email, body.Name, body.Password)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUser) {
			return jsonError(c, fiber.StatusConflict, "an account with this email already exists")
		}
		h.logger.Error("registration failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to create account")
	}

	if err := startSession(c, user); err != nil {
		return err
	}
	return jsonCreated(c, user)
}

// Login signs in with email and password.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body credentialsBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.local.Authenticate(c.Context(), auth.Credentials{Email: body.Email, Password: body.Password})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return jsonError(c, fiber.StatusUnauthorized, "invalid email or password")
		}
		h.logger.Error("login failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "login failed")
	}

	if err := startSession(c, user); err != nil {
		return err
	}
	return jsonSuccess(c, user)
}

// Logout clears the user session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		sess.Destroy()
	}
	return jsonSuccess(c, nil)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return jsonSuccess(c, user)
}

// OAuthLogin initiates the OIDC login flow.
func (h *AuthHandler) OAuthLogin(c fiber.Ctx) error {
	if h.oauth == nil {
		return jsonError(c, fiber.StatusNotFound, "OAuth login is not enabled")
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	state := auth.GenerateState()
	sess.Set(oauthStateKey, state)

	return c.Redirect().To(h.oauth.AuthCodeURL(state))
}

// OAuthCallback handles the OIDC callback after authentication.
func (h *AuthHandler) OAuthCallback(c fiber.Ctx) error {
	if h.oauth == nil {
		return jsonError(c, fiber.StatusNotFound, "OAuth login is not enabled")
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	savedState, _ := sess.Get(oauthStateKey).(string)
	if savedState == "" || savedState != c.Query("state") {
		return jsonError(c, fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete(oauthStateKey)

	user, err := h.oauth.Authenticate(c.Context(), auth.Credentials{Code: c.Query("code")})
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUser) {
			return jsonError(c, fiber.StatusConflict, "this email is registered with a password; sign in with it instead")
		}
		h.logger.Warn("OAuth callback failed", "error", err)
		return jsonError(c, fiber.StatusBadRequest, "authentication failed")
	}

	sess.Set(middleware.SessionUserKey, user.ID.String())
	return c.Redirect().To("/api/me")
}

func startSession(c fiber.Ctx, user *models.User) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set(middleware.SessionUserKey, user.ID.String())
	return nil
}
