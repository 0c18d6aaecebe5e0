// Package tracker checks tracked keywords against the search backend and
// records the results in each keyword's ranking history.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rankwatch/internal/metrics"
	"rankwatch/internal/models"
	"rankwatch/internal/rank"
)

// Resolver resolves the rank of a domain for a keyword. *rank.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, domainURL, keyword string) (rank.Outcome, error)
}

// Store is the persistence the tracker needs. *db.DB implements it.
type Store interface {
	GetKeywordByID(ctx context.Context, id uuid.UUID) (*models.Keyword, error)
	ListKeywordsByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Keyword, error)
	GetKeywordsNeedingCheck(ctx context.Context, maxAge time.Duration, limit int) ([]models.Keyword, error)
	RecordRankCheck(ctx context.Context, id uuid.UUID, update func(models.KeywordRankState) models.KeywordRankState) (*models.KeywordRankState, error)
}

// Config tunes batch pacing and per-check limits.
type Config struct {
	KeywordInterval time.Duration // pause between keywords of a batch
	CheckTimeout    time.Duration // 0 means no timeout
	MaxAge          time.Duration // CheckAll picks keywords older than this
	BatchLimit      int           // keywords per CheckAll run
}

// Service runs rank checks and persists their outcomes.
type Service struct {
	resolver Resolver
	store    Store
	cfg      Config
	throttle rank.Throttle
	locks    *keyLock
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a tracker service.
func New(resolver Resolver, store Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	return &Service{
		resolver: resolver,
		store:    store,
		cfg:      cfg,
		throttle: rank.NewThrottle(cfg.KeywordInterval),
		locks:    newKeyLock(),
		logger:   logger.With("component", "tracker"),
		now:      time.Now,
	}
}

// CheckKeyword loads a keyword and checks it.
func (s *Service) CheckKeyword(ctx context.Context, keywordID uuid.UUID) (*models.RankCheckResult, error) {
	kw, err := s.store.GetKeywordByID(ctx, keywordID)
	if err != nil {
		return nil, err
	}
	return s.Check(ctx, kw)
}

// Check resolves kw's current rank and appends it to the stored history.
// Failed resolutions are returned as errors and leave the history untouched.
// Checks of the same keyword run one at a time.
func (s *Service) Check(ctx context.Context, kw *models.Keyword) (*models.RankCheckResult, error) {
	unlock := s.locks.Lock(kw.ID)
	defer unlock()

	resolveCtx := ctx
	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}

	outcome, err := s.resolver.Resolve(resolveCtx, kw.DomainURL, kw.Keyword)
	if err != nil {
		if countsAsFailure(err) {
			metrics.RecordRankCheck(models.CheckOutcomeError)
		}
		return nil, err
	}

	checkedAt := s.now().UTC()
	state, err := s.store.RecordRankCheck(ctx, kw.ID, func(current models.KeywordRankState) models.KeywordRankState {
		return rank.Append(current, outcome, checkedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record rank check: %w", err)
	}
	metrics.RecordRankCheck(outcomeLabel(outcome))

	return &models.RankCheckResult{
		KeywordID:   kw.ID,
		Keyword:     kw.Keyword,
		Rank:        state.CurrentRank,
		LastChecked: checkedAt,
		History:     state.History,
		Trend:       string(rank.TrendOf(state.History)),
	}, nil
}

// CheckDomain checks every keyword of a domain in order, pausing between
// keywords. One keyword failing does not stop the others, except for a
// missing search configuration which fails the whole batch.
func (s *Service) CheckDomain(ctx context.Context, domainID uuid.UUID) (*models.BatchCheckResult, error) {
	keywords, err := s.store.ListKeywordsByDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	batch := &models.BatchCheckResult{
		DomainID: domainID,
		Results:  make([]models.BatchItemResult, 0, len(keywords)),
	}
	for i := range keywords {
		kw := &keywords[i]
		item := models.BatchItemResult{KeywordID: kw.ID, Keyword: kw.Keyword}

		if err := s.throttle.Wait(ctx); err != nil {
			item.Error = err.Error()
		} else if res, err := s.Check(ctx, kw); err != nil {
			if errors.Is(err, rank.ErrConfigMissing) {
				return nil, err
			}
			item.Error = errorMessage(err)
		} else {
			item.Result = res
		}

		if item.Error != "" {
			batch.HasErrors = true
		}
		batch.Results = append(batch.Results, item)
	}
	return batch, nil
}

// CheckAll checks keywords whose last check is older than the configured
// max age and returns how many were recorded.
func (s *Service) CheckAll(ctx context.Context) (int, error) {
	keywords, err := s.store.GetKeywordsNeedingCheck(ctx, s.cfg.MaxAge, s.cfg.BatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to get keywords: %w", err)
	}
	if len(keywords) == 0 {
		return 0, nil
	}

	s.logger.Info("checking stale keywords", "count", len(keywords))

	checked := 0
	for i := range keywords {
		if err := s.throttle.Wait(ctx); err != nil {
			return checked, err
		}
		kw := &keywords[i]
		if _, err := s.Check(ctx, kw); err != nil {
			if errors.Is(err, rank.ErrConfigMissing) {
				return checked, err
			}
			s.logger.Warn("keyword check failed", "keyword_id", kw.ID, "keyword", kw.Keyword, "error", err)
			continue
		}
		checked++
	}
	return checked, nil
}

// errorMessage prefers the backend's own message over the wrapped chain.
func errorMessage(err error) string {
	var be *rank.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}

// countsAsFailure reports whether err came from a search that actually ran.
// Rejected input and missing configuration are not counted.
func countsAsFailure(err error) bool {
	var be *rank.BackendError
	return errors.As(err, &be) || errors.Is(err, context.DeadlineExceeded)
}

func outcomeLabel(o rank.Outcome) string {
	switch o.Kind {
	case rank.OutcomeFound:
		if o.Source == rank.SourcePromoted {
			return models.CheckOutcomePromoted
		}
		return models.CheckOutcomeFound
	case rank.OutcomeNotFound:
		return models.CheckOutcomeNotFound
	case rank.OutcomeUnavailable:
		return models.CheckOutcomeUnavailable
	default:
		return models.CheckOutcomeError
	}
}
