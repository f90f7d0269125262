// Package metrics exposes Prometheus instrumentation for commission calculations.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/iwvelando/commission-calculator/pkg/commission"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commission"

// Outcome labels for calculation counters.
const (
	OutcomeCalculated = "calculated"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)

// Recorder holds the calculator's collectors on a private registry.
type Recorder struct {
	registry           *prometheus.Registry
	calculations       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	amounts            prometheus.Histogram
	requests           *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Commission calculation requests by outcome.",
		}, []string{"outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Validation failures reported, by failure code.",
		}, []string{"code"}),
		amounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "amount",
			Help:      "Total commission amount of successful calculations.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 12),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the commission API.",
		}, []string{"route", "method", "status"}),
	}

	registry.MustRegister(r.calculations, r.validationFailures, r.amounts, r.requests)
	return r
}

// ObserveValidation counts every failure in an invalid result.
func (r *Recorder) ObserveValidation(result commission.ValidationResult) {
	if r == nil || result.Valid() {
		return
	}
	r.calculations.WithLabelValues(OutcomeInvalid).Inc()
	for _, failure := range result.Failures {
		r.validationFailures.WithLabelValues(string(failure.Code)).Inc()
	}
}

// ObserveResult records a successful calculation.
func (r *Recorder) ObserveResult(result commission.Result) {
	if r == nil {
		return
	}
	r.calculations.WithLabelValues(OutcomeCalculated).Inc()
	r.amounts.Observe(result.TotalCommissionAmount)
}

// ObserveError records a calculation that failed after validation.
func (r *Recorder) ObserveError() {
	if r == nil {
		return
	}
	r.calculations.WithLabelValues(OutcomeError).Inc()
}

// ObserveRequest counts one HTTP request.
func (r *Recorder) ObserveRequest(route, method string, status int) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
