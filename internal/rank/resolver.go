package rank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rankwatch/internal/metrics"
)

// Searcher is the paginated search backend used by the Resolver.
// *SearchClient implements it.
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query, targetDomain string) (*SearchOutcome, error)
}

// Resolver turns a (domain, keyword) pair into an Outcome. It holds no
// per-keyword state and never persists anything; callers record the outcome.
type Resolver struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewResolver creates a resolver over searcher. A nil logger uses slog.Default.
func NewResolver(searcher Searcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{searcher: searcher, logger: logger.With("component", "rank")}
}

// Resolve finds the rank of domainURL for keyword. On failure the returned
// Outcome has Kind OutcomeError and the error wraps ErrConfigMissing,
// ErrInvalidInput or a *BackendError.
func (r *Resolver) Resolve(ctx context.Context, domainURL, keyword string) (Outcome, error) {
	if r.searcher == nil || !r.searcher.Configured() {
		r.logger.Error("search API key or engine id not configured")
		return Failed(ErrConfigMissing.Error()), ErrConfigMissing
	}

	target := NormalizeDomain(domainURL)
	query := strings.TrimSpace(keyword)
	if target == "" {
		return Failed("domain is required"), fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}
	if query == "" {
		return Failed("keyword is required"), fmt.Errorf("%w: keyword is required", ErrInvalidInput)
	}

	start := time.Now()
	res, err := r.searcher.Search(ctx, query, target)
	if err != nil {
		msg := err.Error()
		var be *BackendError
		if errors.As(err, &be) && be.Message != "" {
			msg = be.Message
		}
		metrics.ResolveDurationSeconds.WithLabelValues(string(OutcomeError)).Observe(time.Since(start).Seconds())
		r.logger.Warn("rank check failed", "domain", target, "keyword", query, "error", err)
		return Failed(msg), fmt.Errorf("resolve %q for %s: %w", query, target, err)
	}

	outcome := Decide(res)
	metrics.ResolveDurationSeconds.WithLabelValues(string(outcome.Kind)).Observe(time.Since(start).Seconds())
	r.logger.Info("rank checked",
		"domain", target,
		"keyword", query,
		"rank", outcome.String(),
		"pages", res.Pages,
		"items", len(res.Items),
	)
	return outcome, nil
}

// Decide maps a search outcome to a rank. A matching ad wins over the
// organic match only when it sits strictly above it.
func Decide(res *SearchOutcome) Outcome {
	if res == nil {
		return Unavailable()
	}
	organic, promoted := res.MatchIndex, res.PromotedMatchIndex

	switch {
	case organic != nil && promoted != nil:
		if *promoted < *organic {
			return Found(*promoted+1, SourcePromoted)
		}
		return Found(*organic+1, SourceOrganic)
	case organic != nil:
		return Found(*organic+1, SourceOrganic)
	case promoted != nil:
		return Found(*promoted+1, SourcePromoted)
	case len(res.Items) > 0:
		return NotFound()
	default:
		return Unavailable()
	}
}
