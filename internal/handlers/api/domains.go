package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"rankwatch/internal/db"
	"rankwatch/internal/models"
	"rankwatch/internal/validation"
)

// DomainHandler handles tracked domain and keyword CRUD via JSON API.
type DomainHandler struct {
	store Store
}

// NewDomainHandler creates a new API domain handler.
func NewDomainHandler(store Store) *DomainHandler {
	return &DomainHandler{store: store}
}

// List returns the signed-in user's domains.
func (h *DomainHandler) List(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	domains, err := h.store.ListDomainsByUser(c.Context(), user.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch domains")
	}
	if domains == nil {
		domains = []models.Domain{}
	}
	return jsonSuccess(c, domains)
}

// Create starts tracking a domain.
func (h *DomainHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	normalized, valid, msg := validation.ValidateDomain(body.URL)
	if !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	domain := &models.Domain{UserID: user.ID, URL: normalized}
	if err := h.store.CreateDomain(c.Context(), domain); err != nil {
		if errors.Is(err, db.ErrDuplicateDomain) {
			return jsonError(c, fiber.StatusConflict, "domain is already tracked")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to create domain")
	}

	return jsonCreated(c, domain)
}

// Get returns a single domain.
func (h *DomainHandler) Get(c fiber.Ctx) error {
	domain, err := loadDomain(c, h.store)
	if err != nil || domain == nil {
		return err
	}
	return jsonSuccess(c, domain)
}

// Delete stops tracking a domain and all of its keywords.
func (h *DomainHandler) Delete(c fiber.Ctx) error {
	domain, err := loadDomain(c, h.store)
	if err != nil || domain == nil {
		return err
	}

	if err := h.store.DeleteDomain(c.Context(), domain.ID); err != nil {
		if errors.Is(err, db.ErrDomainNotFound) {
			return jsonError(c, fiber.StatusNotFound, "domain not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete domain")
	}
	return jsonSuccess(c, fiber.Map{"deleted": domain.ID})
}

// ListKeywords returns a domain's keywords with their current rank state.
func (h *DomainHandler) ListKeywords(c fiber.Ctx) error {
	domain, err := loadDomain(c, h.store)
	if err != nil || domain == nil {
		return err
	}

	keywords, err := h.store.ListKeywordsByDomain(c.Context(), domain.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keywords")
	}
	if keywords == nil {
		keywords = []models.Keyword{}
	}
	return jsonSuccess(c, keywords)
}

// CreateKeyword starts tracking a keyword for a domain.
func (h *DomainHandler) CreateKeyword(c fiber.Ctx) error {
	domain, err := loadDomain(c, h.store)
	if err != nil || domain == nil {
		return err
	}

	var body struct {
		Keyword string `json:"keyword"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	body.Keyword = validation.NormalizeKeyword(body.Keyword)
	if valid, msg := validation.ValidateKeyword(body.Keyword); !valid {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	kw := &models.Keyword{DomainID: domain.ID, Keyword: body.Keyword, DomainURL: domain.URL, OwnerID: domain.UserID}
	if err := h.store.CreateKeyword(c.Context(), kw); err != nil {
		if errors.Is(err, db.ErrDuplicateKeyword) {
			return jsonError(c, fiber.StatusConflict, "keyword is already tracked for this domain")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to create keyword")
	}

	return jsonCreated(c, kw)
}

// DeleteKeyword stops tracking a keyword.
func (h *DomainHandler) DeleteKeyword(c fiber.Ctx) error {
	kw, err := loadKeyword(c, h.store)
	if err != nil || kw == nil {
		return err
	}

	if err := h.store.DeleteKeyword(c.Context(), kw.ID); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete keyword")
	}
	return jsonSuccess(c, fiber.Map{"deleted": kw.ID})
}

// loadDomain fetches the :id domain and checks the caller may access it.
// A nil domain with a nil error means the error response was already written.
func loadDomain(c fiber.Ctx, store Store) (*models.Domain, error) {
	user, ok := currentUser(c)
	if !ok {
		return nil, jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid domain id")
	}

	domain, err := store.GetDomainByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrDomainNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "domain not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "failed to fetch domain")
	}

	if !user.CanAccessDomain(domain) {
		return nil, jsonError(c, fiber.StatusForbidden, "you do not have permission to access this domain")
	}
	return domain, nil
}

// loadKeyword fetches the :id keyword and checks the caller owns its domain.
func loadKeyword(c fiber.Ctx, store Store) (*models.Keyword, error) {
	user, ok := currentUser(c)
	if !ok {
		return nil, jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
	}

	kw, err := store.GetKeywordByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return nil, jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return nil, jsonError(c, fiber.StatusInternalServerError, "failed to fetch keyword")
	}

	if !user.CanAccessDomain(&models.Domain{ID: kw.DomainID, UserID: kw.OwnerID}) {
		return nil, jsonError(c, fiber.StatusForbidden, "you do not have permission to access this keyword")
	}
	return kw, nil
}
