package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CartMetrics struct {
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
}

// NewCartMetrics registers the engine collectors on reg. A nil reg uses the default
// registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minishop",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart engine operations by outcome.",
	}, []string{"op", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "minishop",
		Subsystem: "cart",
		Name:      "operation_duration_ms",
		Help:      "Cart engine operation latency in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"op"})

	reg.MustRegister(ops, latency)
	return &CartMetrics{Operations: ops, LatencyMS: latency}
}

// Observe records one finished operation. Safe on a nil receiver.
func (m *CartMetrics) Observe(op, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.LatencyMS.WithLabelValues(op).Observe(float64(time.Since(started).Microseconds()) / 1000)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
