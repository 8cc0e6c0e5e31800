// Package metrics provides the Prometheus collectors for the RosterLab server.
//
// A Recorder owns its registry, so tests can create as many as they like.
// Every method is safe on a nil *Recorder and does nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rosterlab"

// Generation attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeFatal     = "fatal"
)

// Recorder holds every collector the server exports.
type Recorder struct {
	registry *prometheus.Registry

	generationAttempts *prometheus.CounterVec
	generationFallback prometheus.Counter
	schemaErrors       *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	poolSize           *prometheus.HistogramVec
	dynamicMode        prometheus.Counter
	backfilled         prometheus.Counter
	movepoolLookups    *prometheus.CounterVec
}

// New creates a Recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		generationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "attempts_total",
			Help:      "Generation attempts by model and outcome.",
		}, []string{"model", "outcome"}),
		generationFallback: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "fallbacks_total",
			Help:      "Times a generation moved on to the next model.",
		}),
		schemaErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "schema_errors_total",
			Help:      "Responses that did not decode into the expected JSON object.",
		}, []string{"kind"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by endpoint.",
		}, []string{"endpoint"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline latency by endpoint and outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"endpoint", "outcome"}),
		poolSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "pool_size",
			Help:      "Candidate pool size handed to the prompt, by mode.",
			Buckets:   []float64{0, 5, 10, 20, 30, 40},
		}, []string{"mode"}),
		dynamicMode: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "dynamic_mode_total",
			Help:      "Leader-anchored retrievals that fell back to popularity ranking.",
		}),
		backfilled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "backfilled_total",
			Help:      "Slots filled from pool order because the model selection fell short.",
		}),
		movepoolLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "movepool",
			Name:      "lookups_total",
			Help:      "Movepool lookups by outcome (hit, miss, error).",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry (tests gather from it).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) GenerationAttempt(model, outcome string) {
	if r == nil {
		return
	}
	r.generationAttempts.WithLabelValues(model, outcome).Inc()
}

func (r *Recorder) GenerationFallback() {
	if r == nil {
		return
	}
	r.generationFallback.Inc()
}

func (r *Recorder) SchemaError(kind string) {
	if r == nil {
		return
	}
	r.schemaErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RateLimited(endpoint string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(endpoint).Inc()
}

func (r *Recorder) ObservePipeline(endpoint, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

func (r *Recorder) ObservePool(mode string, size int, dynamic bool) {
	if r == nil {
		return
	}
	r.poolSize.WithLabelValues(mode).Observe(float64(size))
	if dynamic {
		r.dynamicMode.Inc()
	}
}

func (r *Recorder) Backfilled(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.backfilled.Add(float64(n))
}

func (r *Recorder) MovepoolLookup(outcome string) {
	if r == nil {
		return
	}
	r.movepoolLookups.WithLabelValues(outcome).Inc()
}
