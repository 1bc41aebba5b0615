package learning

import "github.com/prometheus/client_golang/prometheus"

// Metric names for online-learning updates.
const (
	MetricUpdatesApplied = "learning_updates_applied_total"
	MetricUpdatesSkipped = "learning_updates_skipped_total"
	MetricUpdateFailures = "learning_update_failures_total"
)

// Skip reasons.
const (
	SkipZeroSignal       = "zero_signal"
	SkipMissingEmbedding = "missing_embedding"
)

// Metrics holds Prometheus collectors for the online learner.
type Metrics struct {
	updatesApplied prometheus.Counter
	updatesSkipped *prometheus.CounterVec
	updateFailures *prometheus.CounterVec
}

// NewMetrics creates learning metrics collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		updatesApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricUpdatesApplied,
				Help: "Total engagement events that updated both embeddings",
			},
		),
		updatesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricUpdatesSkipped,
				Help: "Total engagement events skipped without touching embeddings",
			},
			[]string{"reason"},
		),
		updateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricUpdateFailures,
				Help: "Total embedding writes that failed",
			},
			[]string{"target"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry *prometheus.Registry) error {
	for _, c := range m.Collectors() {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all metric collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.updatesApplied,
		m.updatesSkipped,
		m.updateFailures,
	}
}

// IncApplied records one fully-applied update.
func (m *Metrics) IncApplied() {
	if m == nil {
		return
	}
	m.updatesApplied.Inc()
}

// IncSkipped records one skipped update with the given reason.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.updatesSkipped.WithLabelValues(reason).Inc()
}

// IncFailure records one failed embedding write (target "user" or "post").
func (m *Metrics) IncFailure(target string) {
	if m == nil {
		return
	}
	m.updateFailures.WithLabelValues(target).Inc()
}
