package summary

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// Metrics counts summary requests by outcome and times generation calls.
// A nil *Metrics records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	generation prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessmap",
			Subsystem: "summary",
			Name:      "requests_total",
			Help:      "Place summary requests by outcome (hit, miss, empty, error).",
		}, []string{"result"}),
		generation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accessmap",
			Subsystem: "summary",
			Name:      "generation_seconds",
			Help:      "Latency of summary generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
}

func (m *Metrics) observeRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generation.Observe(d.Seconds())
}
