package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRequestsTotal     = "recommend_requests_total"
	MetricRequestDuration   = "recommend_request_duration_seconds"
	MetricCandidatesSourced = "recommend_candidates_sourced_total"
	MetricFilterRemovals    = "recommend_filter_removals_total"
)

// Source constants for labeling.
const (
	SourceInNetwork    = "in_network"
	SourceOutOfNetwork = "out_of_network"
)

// Status constants for request completion.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains Prometheus metrics for the recommendation pipeline.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	candidatesSourced *prometheus.CounterVec
	filterRemovals    *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestsTotal,
				Help: "Total number of recommendation requests by status",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRequestDuration,
				Help:    "Histogram of end-to-end recommendation latency in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),
		candidatesSourced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCandidatesSourced,
				Help: "Total candidates sourced by retrieval branch",
			},
			[]string{"source"},
		),
		filterRemovals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFilterRemovals,
				Help: "Total candidates removed by filter stage",
			},
			[]string{"filter"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.candidatesSourced,
		m.filterRemovals,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRequests increments the request counter for the given status.
func (m *Metrics) IncRequests(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// ObserveDuration records one end-to-end request latency sample.
func (m *Metrics) ObserveDuration(seconds float64) {
	m.requestDuration.Observe(seconds)
}

// AddCandidatesSourced records candidates returned by a retrieval branch.
func (m *Metrics) AddCandidatesSourced(source string, n int) {
	m.candidatesSourced.WithLabelValues(source).Add(float64(n))
}

// AddFilterRemovals records candidates dropped by a filter stage.
func (m *Metrics) AddFilterRemovals(filter string, n int) {
	m.filterRemovals.WithLabelValues(filter).Add(float64(n))
}
