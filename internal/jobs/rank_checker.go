package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rankwatch/internal/rank"
)

// Checker runs one pass over keywords that are due for a check.
// *tracker.Service implements it.
type Checker interface {
	CheckAll(ctx context.Context) (int, error)
}

// DefaultInterval is used when NewRankChecker is given a non-positive interval.
const DefaultInterval = 24 * time.Hour

// RankChecker periodically re-checks stale keywords in the background.
type RankChecker struct {
	checker  Checker
	interval time.Duration
	logger   *slog.Logger
}

// NewRankChecker creates a new background rank checker.
func NewRankChecker(checker Checker, interval time.Duration, logger *slog.Logger) *RankChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &RankChecker{
		checker:  checker,
		interval: interval,
		logger:   logger.With("component", "rank_checker"),
	}
}

// Start begins the background check loop and returns when ctx is done or the
// search backend turns out not to be configured.
func (r *RankChecker) Start(ctx context.Context) {
	r.logger.Info("rank checker started", "interval", r.interval)

	// Run immediately on start
	if !r.runOnce(ctx) {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rank checker stopped")
			return
		case <-ticker.C:
			if !r.runOnce(ctx) {
				return
			}
		}
	}
}

// runOnce reports whether the loop should keep going.
func (r *RankChecker) runOnce(ctx context.Context) bool {
	checked, err := r.checker.CheckAll(ctx)
	switch {
	case errors.Is(err, rank.ErrConfigMissing):
		r.logger.Error("rank checker disabled: search backend not configured")
		return false
	case errors.Is(err, context.Canceled):
		return false
	case err != nil:
		r.logger.Error("rank check run failed", "checked", checked, "error", err)
	case checked > 0:
		r.logger.Info("rank check run finished", "checked", checked)
	}
	return true
}
