package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rankwatch/internal/models"
)

const keywordColumns = `k.id, k.domain_id, k.keyword, k.current_rank, k.last_checked, k.history,
	k.created_at, k.updated_at, d.url, d.user_id`

func scanKeyword(row pgx.Row) (*models.Keyword, error) {
	var kw models.Keyword
	var history []byte
	err := row.Scan(
		&kw.ID,
		&kw.DomainID,
		&kw.Keyword,
		&kw.CurrentRank,
		&kw.LastChecked,
		&history,
		&kw.CreatedAt,
		&kw.UpdatedAt,
		&kw.DomainURL,
		&kw.OwnerID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeywordNotFound
	}
	if err != nil {
		return nil, err
	}
	if kw.History, err = decodeHistory(history); err != nil {
		return nil, err
	}
	return &kw, nil
}

func scanKeywords(rows pgx.Rows) ([]models.Keyword, error) {
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, *kw)
	}
	return keywords, rows.Err()
}

func decodeHistory(raw []byte) ([]models.RankingHistoryEntry, error) {
	history := []models.RankingHistoryEntry{}
	if len(raw) == 0 {
		return history, nil
	}
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode ranking history: %w", err)
	}
	return history, nil
}

func encodeHistory(history []models.RankingHistoryEntry) ([]byte, error) {
	if history == nil {
		history = []models.RankingHistoryEntry{}
	}
	return json.Marshal(history)
}

// CreateKeyword starts tracking a keyword for a domain.
func (d *DB) CreateKeyword(ctx context.Context, kw *models.Keyword) error {
	query := `
		INSERT INTO keywords (domain_id, keyword)
		VALUES ($1, $2)
		RETURNING id, current_rank, created_at, updated_at
	`
	err := d.Pool.QueryRow(ctx, query, kw.DomainID, kw.Keyword).
		Scan(&kw.ID, &kw.CurrentRank, &kw.CreatedAt, &kw.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateKeyword
		}
		return err
	}
	kw.History = []models.RankingHistoryEntry{}
	return nil
}

// GetKeywordByID retrieves a keyword joined with its domain.
func (d *DB) GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error) {
	query := `SELECT ` + keywordColumns + `
		FROM keywords k
		JOIN domains d ON d.id = k.domain_id
		WHERE k.id = $1`
	return scanKeyword(d.Pool.QueryRow(ctx, query, id))
}

// ListKeywordsByDomain returns a domain's keywords in the order they were added.
func (d *DB) ListKeywordsByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Keyword, error) {
	query := `SELECT ` + keywordColumns + `
		FROM keywords k
		JOIN domains d ON d.id = k.domain_id
		WHERE k.domain_id = $1
		ORDER BY k.created_at, k.keyword`
	rows, err := d.Pool.Query(ctx, query, domainID)
	if err != nil {
		return nil, err
	}
	return scanKeywords(rows)
}

// DeleteKeyword stops tracking a keyword and drops its history.
func (d *DB) DeleteKeyword(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrKeywordNotFound
	}
	return nil
}

// GetKeywordsNeedingCheck returns keywords never checked or last checked
// before maxAge ago, oldest first.
func (d *DB) GetKeywordsNeedingCheck(ctx context.Context, maxAge time.Duration, limit int) ([]models.Keyword, error) {
	cutoff := time.Now().Add(-maxAge)

	query := `SELECT ` + keywordColumns + `
		FROM keywords k
		JOIN domains d ON d.id = k.domain_id
		WHERE k.last_checked IS NULL OR k.last_checked < $1
		ORDER BY k.last_checked NULLS FIRST
		LIMIT $2`
	rows, err := d.Pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return scanKeywords(rows)
}

// RecordRankCheck applies update to a keyword's stored rank state and saves
// the result. The row is locked for the duration so concurrent checks of the
// same keyword each see the other's entry.
func (d *DB) RecordRankCheck(ctx context.Context, id uuid.UUID, update func(models.KeywordRankState) models.KeywordRankState) (*models.KeywordRankState, error) {
	var next models.KeywordRankState
	err := d.withTx(ctx, func(tx pgx.Tx) error {
		var state models.KeywordRankState
		var raw []byte
		err := tx.QueryRow(ctx,
			`SELECT current_rank, last_checked, history FROM keywords WHERE id = $1 FOR UPDATE`, id,
		).Scan(&state.CurrentRank, &state.LastChecked, &raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrKeywordNotFound
		}
		if err != nil {
			return err
		}
		if state.History, err = decodeHistory(raw); err != nil {
			return err
		}

		next = update(state)
		encoded, err := encodeHistory(next.History)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE keywords
			SET current_rank = $2, last_checked = $3, history = $4, updated_at = NOW()
			WHERE id = $1
		`, id, next.CurrentRank, next.LastChecked, encoded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}
