package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments of the assistant. Each Metrics
// owns its registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Intents      *prometheus.CounterVec
	StoreCalls   *prometheus.CounterVec
	StoreRetries *prometheus.CounterVec
	TurnDuration prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Handled utterances by classified intent.",
		}, []string{"intent"}),
		StoreCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Calendar store operations by outcome.",
		}, []string{"op", "outcome"}),
		StoreRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Calendar store retries by operation.",
		}, []string{"op"}),
		TurnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to handle one command, follow-up questions included.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}
}

func (m *Metrics) ObserveIntent(kind string) {
	m.Intents.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveStoreCall(op, outcome string) {
	m.StoreCalls.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveStoreRetry(op string) {
	m.StoreRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveTurn(d time.Duration) {
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
