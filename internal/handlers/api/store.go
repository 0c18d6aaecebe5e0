package api

import (
	"context"

	"github.com/google/uuid"

	"rankwatch/internal/models"
)

// Store is the persistence used by the API handlers. *db.DB implements it.
type Store interface {
	CreateDomain(ctx context.Context, domain *models.Domain) error
	GetDomainByID(ctx context.Context, id uuid.UUID) (*models.Domain, error)
	ListDomainsByUser(ctx context.Context, userID uuid.UUID) ([]models.Domain, error)
	DeleteDomain(ctx context.Context, id uuid.UUID) error

	CreateKeyword(ctx context.Context, kw *models.Keyword) error
	GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error)
	ListKeywordsByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Keyword, error)
	DeleteKeyword(ctx context.Context, id uuid.UUID) error
}
