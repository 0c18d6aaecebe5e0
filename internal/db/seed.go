package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SeedTracking ensures the owner account, the domain and its keywords exist.
// domainURL must already be normalized. Existing rows are left untouched;
// an owner created here has no password and can only sign in via OAuth.
func (d *DB) SeedTracking(ctx context.Context, ownerEmail, domainURL string, keywords []string) error {
	return d.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (email, provider)
			VALUES ($1, 'local')
			ON CONFLICT (email) DO NOTHING
		`, ownerEmail)
		if err != nil {
			return fmt.Errorf("failed to seed owner %s: %w", ownerEmail, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO domains (user_id, url)
			SELECT id, $2 FROM users WHERE email = $1
			ON CONFLICT (user_id, url) DO NOTHING
		`, ownerEmail, domainURL)
		if err != nil {
			return fmt.Errorf("failed to seed domain %s: %w", domainURL, err)
		}

		query := `
			INSERT INTO keywords (domain_id, keyword)
			SELECT d.id, $3 FROM domains d
			JOIN users u ON u.id = d.user_id
			WHERE u.email = $1 AND d.url = $2
			ON CONFLICT (domain_id, keyword) DO NOTHING
		`
		for _, kw := range keywords {
			if _, err := tx.Exec(ctx, query, ownerEmail, domainURL, kw); err != nil {
				return fmt.Errorf("failed to seed keyword %q: %w", kw, err)
			}
		}
		return nil
	})
}
