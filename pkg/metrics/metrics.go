// Package metrics exposes mutation outcomes in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meditactive"

// Recorder implements engine.Recorder on Prometheus collectors
type Recorder struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	skipped   *prometheus.CounterVec
	gatherer  prometheus.Gatherer
}

// New registers the collectors on a fresh registry
func New() (*Recorder, error) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Recorder, error) {
	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Member aggregate mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent in a member aggregate transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_references_total",
			Help:      "References dropped during a mutation, by warning kind.",
		}, []string{"kind"}),
		gatherer: gatherer,
	}

	for _, c := range []prometheus.Collector{r.mutations, r.duration, r.skipped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveMutation counts one mutation and records its latency
func (r *Recorder) ObserveMutation(op, outcome string, elapsed time.Duration) {
	r.mutations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SkippedReferences adds n dropped references of the given kind
func (r *Recorder) SkippedReferences(kind string, n int) {
	if n <= 0 {
		return
	}
	r.skipped.WithLabelValues(kind).Add(float64(n))
}

// Handler serves the registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
