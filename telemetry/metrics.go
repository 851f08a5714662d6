package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK is the outcome label of a successful fetch. Failed fetches use
// the error code as outcome.
const OutcomeOK = "ok"

// Metrics receives refresh engine events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// FetchObserved is called once per fetch, after retries.
	FetchObserved(source, outcome string, duration time.Duration)
	// RefreshTriggered is called when a lookup miss arms a refresh.
	RefreshTriggered(source string)
	// SignersUpdated is called after a new key set has been installed.
	SignersUpdated(source string, count int)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) FetchObserved(string, string, time.Duration) {}
func (NoopMetrics) RefreshTriggered(string)                     {}
func (NoopMetrics) SignersUpdated(string, int)                  {}

// PrometheusMetrics implements Metrics with Prometheus collectors.
type PrometheusMetrics struct {
	fetches          *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	refreshTriggered *prometheus.CounterVec
	signers          *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jwks_fetch_total",
			Help: "JWKS fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jwks_fetch_duration_seconds",
			Help:    "Duration of JWKS fetches including retries.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		refreshTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jwks_refresh_triggered_total",
			Help: "Refreshes armed by a kid lookup miss.",
		}, []string{"source"}),
		signers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jwks_signers",
			Help: "Signers in the currently installed key set.",
		}, []string{"source"}),
	}

	for _, c := range []prometheus.Collector{m.fetches, m.fetchDuration, m.refreshTriggered, m.signers} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register jwks metrics: %w", err)
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) FetchObserved(source, outcome string, duration time.Duration) {
	m.fetches.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RefreshTriggered(source string) {
	m.refreshTriggered.WithLabelValues(source).Inc()
}

func (m *PrometheusMetrics) SignersUpdated(source string, count int) {
	m.signers.WithLabelValues(source).Set(float64(count))
}
