package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	rateLimitDecisions *prometheus.CounterVec
	rateLimitFallbacks *prometheus.CounterVec
	quorumOutcomes     *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	invalidTransitions *prometheus.CounterVec
}

// NewRecorder creates and registers all collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rateLimitDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Rate limit admission decisions.",
			},
			[]string{"action", "allowed"},
		),
		rateLimitFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "ratelimit",
				Name:      "fallback_total",
				Help:      "Checks served by the local fallback store.",
			},
			[]string{"reason"},
		),
		quorumOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "quorum",
				Name:      "outcomes_total",
				Help:      "Quorum evaluations by outcome.",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "transactions",
				Name:      "transitions_total",
				Help:      "Persisted transaction status transitions.",
			},
			[]string{"kind", "from", "to"},
		),
		invalidTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "transactions",
				Name:      "invalid_transitions_total",
				Help:      "Rejected transaction status transitions.",
			},
			[]string{"kind"},
		),
	}
	r.registry.MustRegister(
		r.rateLimitDecisions,
		r.rateLimitFallbacks,
		r.quorumOutcomes,
		r.transitions,
		r.invalidTransitions,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveDecision(action string, allowed bool) {
	r.rateLimitDecisions.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}

func (r *Recorder) ObserveFallback(reason string) {
	r.rateLimitFallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveQuorum(outcome string) {
	r.quorumOutcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveTransition(kind, from, to string) {
	r.transitions.WithLabelValues(kind, from, to).Inc()
}

func (r *Recorder) ObserveInvalidTransition(kind string) {
	r.invalidTransitions.WithLabelValues(kind).Inc()
}
