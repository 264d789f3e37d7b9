package pipeline

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes per-receiver queue depth and drop counts as
// prometheus collectors. It is ambient instrumentation, not a
// visualization front-end: a host process scrapes it with whatever it
// already uses for everything else.
//
// A nil *Metrics is always valid: every method is a no-op, so a
// Pipeline built without Options.Metrics pays nothing for the hooks.
type Metrics struct {
	queueDepth *prometheus.GaugeVec
	drops      *prometheus.CounterVec
}

// NewMetrics builds and registers a Metrics on reg. Passing nil
// registers against prometheus.DefaultRegisterer, the usual choice for
// a single pipeline per process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tempopipe",
			Subsystem: "scheduler",
			Name:      "receiver_queue_depth",
			Help:      "Messages currently queued on a receiver, awaiting a scheduler activation.",
		}, []string{"receiver"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempopipe",
			Subsystem: "scheduler",
			Name:      "receiver_drops_total",
			Help:      "Messages a receiver's delivery policy discarded rather than queued or delivered.",
		}, []string{"receiver", "reason"}),
	}
	reg.MustRegister(m.queueDepth, m.drops)
	return m
}

func (m *Metrics) setQueueDepth(receiver string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(receiver).Set(float64(depth))
}

func (m *Metrics) incDrop(receiver, reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(receiver, reason).Inc()
}

// Handler returns the promhttp scrape endpoint a host process can
// mount at "/metrics". Building it does not require a *Metrics value:
// it scrapes whatever registry those were registered against.
func Handler() http.Handler {
	return promhttp.Handler()
}
