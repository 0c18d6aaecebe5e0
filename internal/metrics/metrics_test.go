package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"rankwatch/internal/models"
)

type memoryOutcomes struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryOutcomes) IncrementRankCheckOutcome(_ context.Context, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[outcome]++
	return nil
}

func (m *memoryOutcomes) GetRankCheckOutcomes(context.Context) ([]models.RankCheckOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.RankCheckOutcome
	for _, o := range []string{models.CheckOutcomeFound, models.CheckOutcomeNotFound} {
		if c, ok := m.counts[o]; ok {
			out = append(out, models.RankCheckOutcome{Outcome: o, Count: c, LastSeenAt: time.Now()})
		}
	}
	return out, nil
}

func (m *memoryOutcomes) count(outcome string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[outcome]
}

func TestOutcomeCollector(t *testing.T) {
	store := &memoryOutcomes{counts: map[string]int64{
		models.CheckOutcomeFound:    3,
		models.CheckOutcomeNotFound: 1,
	}}

	expected := `
# HELP rankwatch_rank_checks_total Total persisted rank checks by outcome
# TYPE rankwatch_rank_checks_total counter
rankwatch_rank_checks_total{outcome="found"} 3
rankwatch_rank_checks_total{outcome="not_found"} 1
`
	if err := testutil.CollectAndCompare(&OutcomeCollector{store: store}, strings.NewReader(expected)); err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestOutcomeCollector_StoreError(t *testing.T) {
	store := &memoryOutcomes{counts: map[string]int64{}, err: errors.New("db down")}
	if n := testutil.CollectAndCount(&OutcomeCollector{store: store}); n != 0 {
		t.Errorf("CollectAndCount() = %d, want 0", n)
	}
}

func TestRecordRankCheck(t *testing.T) {
	store := &memoryOutcomes{counts: map[string]int64{}}
	Init(store, nil)

	RecordRankCheck(models.CheckOutcomeFound)
	RecordRankCheck(models.CheckOutcomeFound)

	deadline := time.Now().Add(time.Second)
	for store.count(models.CheckOutcomeFound) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := store.count(models.CheckOutcomeFound); got != 2 {
		t.Errorf("recorded found = %d, want 2", got)
	}
}

func TestSearchRequestsTotal(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("ok"))
	SearchRequestsTotal.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("SearchRequestsTotal{ok} = %v, want %v", got, before+1)
	}
}
