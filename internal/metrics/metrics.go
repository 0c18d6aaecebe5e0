package metrics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"rankwatch/internal/models"
)

var (
	// SearchRequestsTotal counts search backend page requests by result.
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwatch_search_requests_total",
			Help: "Search backend page requests by status",
		},
		[]string{"status"},
	)

	// ResolveDurationSeconds observes full rank resolutions, all pages included.
	ResolveDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankwatch_rank_resolve_duration_seconds",
			Help:    "Duration of rank resolutions by outcome",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	rankCheckDesc = prometheus.NewDesc(
		"rankwatch_rank_checks_total",
		"Total persisted rank checks by outcome",
		[]string{"outcome"},
		nil,
	)
)

// OutcomeStore persists rank check outcome counters.
type OutcomeStore interface {
	IncrementRankCheckOutcome(ctx context.Context, outcome string) error
	GetRankCheckOutcomes(ctx context.Context) ([]models.RankCheckOutcome, error)
}

// OutcomeCollector is a custom Prometheus collector that reads rank check
// counters from the database on each scrape.
type OutcomeCollector struct {
	store OutcomeStore
}

// Describe sends the metric descriptor to the channel.
func (c *OutcomeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rankCheckDesc
}

// Collect queries the store for all outcome counters and emits them.
func (c *OutcomeCollector) Collect(ch chan<- prometheus.Metric) {
	outcomes, err := c.store.GetRankCheckOutcomes(context.Background())
	if err != nil {
		slog.Error("failed to collect rank check metrics", "error", err)
		return
	}
	for _, o := range outcomes {
		ch <- prometheus.MustNewConstMetric(
			rankCheckDesc,
			prometheus.CounterValue,
			float64(o.Count),
			o.Outcome,
		)
	}
}

// Recorder provides async rank check outcome recording.
type Recorder struct {
	store  OutcomeStore
	logger *slog.Logger
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the collectors and initializes the recorder.
// Must be called once at startup.
func Init(store OutcomeStore, logger *slog.Logger) {
	recorderOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
		recorder = &Recorder{store: store, logger: logger}
		prometheus.MustRegister(
			SearchRequestsTotal,
			ResolveDurationSeconds,
			&OutcomeCollector{store: store},
		)
	})
}

// RecordRankCheck asynchronously records a rank check outcome.
func RecordRankCheck(outcome string) {
	if recorder == nil {
		return
	}
	go func() {
		if err := recorder.store.IncrementRankCheckOutcome(context.Background(), outcome); err != nil {
			recorder.logger.Error("failed to record rank check", "outcome", outcome, "error", err)
		}
	}()
}
