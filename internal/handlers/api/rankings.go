package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"rankwatch/internal/models"
	"rankwatch/internal/rank"
	"rankwatch/internal/validation"
)

// RankTracker runs and records rank checks. *tracker.Service implements it.
type RankTracker interface {
	Check(ctx context.Context, kw *models.Keyword) (*models.RankCheckResult, error)
	CheckDomain(ctx context.Context, domainID uuid.UUID) (*models.BatchCheckResult, error)
}

// RankResolver resolves a rank without recording it. *rank.Resolver implements it.
type RankResolver interface {
	Resolve(ctx context.Context, domainURL, keyword string) (rank.Outcome, error)
}

// RankHandler handles rank checks and history via JSON API.
type RankHandler struct {
	store    Store
	tracker  RankTracker
	resolver RankResolver
	logger   *slog.Logger
}

// NewRankHandler creates a new API rank handler.
func NewRankHandler(store Store, tracker RankTracker, resolver RankResolver, logger *slog.Logger) *RankHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankHandler{store: store, tracker: tracker, resolver: resolver, logger: logger}
}

// CheckKeyword checks one keyword now and returns its updated history.
func (h *RankHandler) CheckKeyword(c fiber.Ctx) error {
	kw, err := loadKeyword(c, h.store)
	if err != nil || kw == nil {
		return err
	}

	result, err := h.tracker.Check(c.Context(), kw)
	if err != nil {
		return h.checkError(c, err)
	}
	return jsonSuccess(c, result)
}

// CheckDomain checks every keyword of a domain. Answers 207 when any
// keyword failed.
func (h *RankHandler) CheckDomain(c fiber.Ctx) error {
	domain, err := loadDomain(c, h.store)
	if err != nil || domain == nil {
		return err
	}

	batch, err := h.tracker.CheckDomain(c.Context(), domain.ID)
	if err != nil {
		return h.checkError(c, err)
	}
	if batch.HasErrors {
		return jsonPartial(c, batch)
	}
	return jsonSuccess(c, batch)
}

// History returns a keyword's stored history and trend.
func (h *RankHandler) History(c fiber.Ctx) error {
	kw, err := loadKeyword(c, h.store)
	if err != nil || kw == nil {
		return err
	}

	history := kw.History
	if history == nil {
		history = []models.RankingHistoryEntry{}
	}
	return jsonSuccess(c, models.KeywordHistoryResponse{
		KeywordID:   kw.ID,
		Keyword:     kw.Keyword,
		Rank:        kw.CurrentRank,
		LastChecked: kw.LastChecked,
		History:     history,
		Trend:       string(rank.TrendOf(history)),
	})
}

// Resolve looks up a rank for any domain and keyword without storing it.
func (h *RankHandler) Resolve(c fiber.Ctx) error {
	var body struct {
		DomainURL string `json:"domainUrl"`
		Keyword   string `json:"keyword"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	domain, valid, msg := validation.ValidateDomain(body.DomainURL)
	if !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	keyword := validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(keyword); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	outcome, err := h.resolver.Resolve(c.Context(), domain, keyword)
	if err != nil {
		return h.checkError(c, err)
	}

	return jsonSuccess(c, fiber.Map{
		"domainUrl": domain,
		"keyword":   keyword,
		"rank":      outcome.String(),
		"outcome":   outcome,
	})
}

// checkError maps rank check failures to HTTP responses.
func (h *RankHandler) checkError(c fiber.Ctx, err error) error {
	var be *rank.BackendError
	switch {
	case errors.Is(err, rank.ErrConfigMissing):
		return jsonError(c, fiber.StatusServiceUnavailable, "search backend is not configured")
	case errors.Is(err, rank.ErrInvalidInput):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return jsonError(c, fiber.StatusGatewayTimeout, "rank check timed out")
	case errors.As(err, &be):
		msg := be.Message
		if msg == "" {
			msg = be.Error()
		}
		return jsonError(c, fiber.StatusBadGateway, msg)
	default:
		h.logger.Error("rank check failed", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "rank check failed")
	}
}
