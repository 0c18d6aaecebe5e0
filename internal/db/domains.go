package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rankwatch/internal/models"
)

const domainColumns = `d.id, d.user_id, d.url, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM keywords k WHERE k.domain_id = d.id)`

func scanDomain(row pgx.Row) (*models.Domain, error) {
	var domain models.Domain
	err := row.Scan(
		&domain.ID,
		&domain.UserID,
		&domain.URL,
		&domain.CreatedAt,
		&domain.UpdatedAt,
		&domain.KeywordCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

// CreateDomain starts tracking a domain for a user. The URL must already be normalized.
func (d *DB) CreateDomain(ctx context.Context, domain *models.Domain) error {
	query := `
		INSERT INTO domains (user_id, url)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query, domain.UserID, domain.URL).
		Scan(&domain.ID, &domain.CreatedAt, &domain.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateDomain
		}
		return err
	}
	return nil
}

// GetDomainByID retrieves a domain by ID.
func (d *DB) GetDomainByID(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	return scanDomain(d.Pool.QueryRow(ctx, `SELECT `+domainColumns+` FROM domains d WHERE d.id = $1`, id))
}

// GetDomainByURL retrieves a user's domain by its normalized URL.
func (d *DB) GetDomainByURL(ctx context.Context, userID uuid.UUID, url string) (*models.Domain, error) {
	return scanDomain(d.Pool.QueryRow(ctx,
		`SELECT `+domainColumns+` FROM domains d WHERE d.user_id = $1 AND d.url = $2`, userID, url))
}

// ListDomainsByUser returns all domains owned by a user, newest first.
func (d *DB) ListDomainsByUser(ctx context.Context, userID uuid.UUID) ([]models.Domain, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT `+domainColumns+` FROM domains d WHERE d.user_id = $1 ORDER BY d.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []models.Domain
	for rows.Next() {
		domain, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, *domain)
	}
	return domains, rows.Err()
}

// DeleteDomain deletes a domain and, by cascade, its keywords and history.
func (d *DB) DeleteDomain(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrDomainNotFound
	}
	return nil
}
