package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the task runner.
//
// Metrics:
//   - rematch_engine_tasks_total{status} - tasks reaching a terminal status
//   - rematch_engine_steps_total{match_type,outcome} - steps run or skipped
//   - rematch_engine_matches_total{match_type} - matches persisted
//   - rematch_engine_candidates_dropped_total{match_type,reason} - candidates
//     dropped as non_finite or below_threshold
//   - rematch_engine_batches_total - match batches committed
//   - rematch_engine_step_duration_seconds{match_type} - step latency
type Metrics struct {
	TasksTotal        *prometheus.CounterVec
	StepsTotal        *prometheus.CounterVec
	MatchesTotal      *prometheus.CounterVec
	CandidatesDropped *prometheus.CounterVec
	BatchesTotal      prometheus.Counter
	StepDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers runner metrics on reg.
// Registering twice on the same registerer panics; use DefaultMetrics for
// the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "tasks_total",
				Help:      "Total number of tasks by terminal status",
			},
			[]string{"status"},
		),
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "steps_total",
				Help:      "Total number of strategy steps by outcome",
			},
			[]string{"match_type", "outcome"}, // "run" or "skipped"
		),
		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "matches_total",
				Help:      "Total number of matches persisted",
			},
			[]string{"match_type"},
		),
		CandidatesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "candidates_dropped_total",
				Help:      "Total number of candidates dropped before persistence",
			},
			[]string{"match_type", "reason"}, // "non_finite" or "below_threshold"
		),
		BatchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "batches_total",
				Help:      "Total number of match batches committed",
			},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rematch",
				Subsystem: "engine",
				Name:      "step_duration_seconds",
				Help:      "Duration of strategy steps in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"match_type"},
		),
	}
}

// DefaultMetrics returns metrics registered once on the default registerer.
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// The record helpers are nil-safe so a Runner without metrics needs no
// checks at call sites.

func (m *Metrics) taskFinished(status string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) stepDone(matchType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(matchType, outcome).Inc()
	if outcome == "run" {
		m.StepDuration.WithLabelValues(matchType).Observe(seconds)
	}
}

func (m *Metrics) batchCommitted(matchType string, n int) {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
	m.MatchesTotal.WithLabelValues(matchType).Add(float64(n))
}

func (m *Metrics) dropped(matchType, reason string) {
	if m == nil {
		return
	}
	m.CandidatesDropped.WithLabelValues(matchType, reason).Inc()
}
