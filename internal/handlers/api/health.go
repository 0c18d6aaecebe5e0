package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Pinger reports database reachability. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health.
type HealthHandler struct {
	db               Pinger
	searchConfigured bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, searchConfigured bool) *HealthHandler {
	return &HealthHandler{db: db, searchConfigured: searchConfigured}
}

// Healthz answers 200 when the database responds, 503 otherwise.
func (h *HealthHandler) Healthz(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
	}
	return jsonSuccess(c, fiber.Map{
		"database":         "ok",
		"searchConfigured": h.searchConfigured,
	})
}
