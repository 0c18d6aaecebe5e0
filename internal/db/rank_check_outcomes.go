package db

import (
	"context"

	"rankwatch/internal/models"
)

// IncrementRankCheckOutcome upserts the running count for a rank check outcome.
func (d *DB) IncrementRankCheckOutcome(ctx context.Context, outcome string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO rank_check_outcomes (outcome, count, last_seen_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (outcome) DO UPDATE
		SET count = rank_check_outcomes.count + 1, last_seen_at = NOW()
	`, outcome)
	return err
}

// GetRankCheckOutcomes returns all outcome counters for metrics export.
func (d *DB) GetRankCheckOutcomes(ctx context.Context) ([]models.RankCheckOutcome, error) {
	rows, err := d.Pool.Query(ctx, `SELECT outcome, count, last_seen_at FROM rank_check_outcomes ORDER BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.RankCheckOutcome
	for rows.Next() {
		var o models.RankCheckOutcome
		if err := rows.Scan(&o.Outcome, &o.Count, &o.LastSeenAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
