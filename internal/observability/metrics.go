package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Diagnostics endpoint traffic (/health, /metrics).
	HTTPRequestsTotal *prometheus.CounterVec

	// Diagnostics endpoint latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// Prediction exchanges by endpoint and outcome. Watch for: error vs success ratio.
	PredictionCallsTotal *prometheus.CounterVec

	// Prediction exchange latency. Watch for: p95 approaching the transport timeout.
	PredictionDuration *prometheus.HistogramVec

	// Failed exchanges by error category (see client.CategorizeError).
	PredictionErrorsTotal *prometheus.CounterVec

	// 1 while a submission is outstanding, else 0.
	PredictionInFlight prometheus.Gauge

	// Submit attempts dropped at the trigger (busy, rate_limited).
	SubmitSuppressedTotal *prometheus.CounterVec

	// Submissions stopped by input validation, by error kind (parse, range).
	ValidationFailuresTotal *prometheus.CounterVec

	// Successful responses that could not be rendered.
	RenderFailuresTotal prometheus.Counter

	// Mode toggles by axis and target mode.
	ModeChangesTotal *prometheus.CounterVec

	// Circuit breaker state: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState prometheus.Gauge

	// Circuit breaker transitions by from/to state.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of diagnostics HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "Diagnostics HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	PredictionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionCallsTotal",
			Help: "Total number of prediction service exchanges",
		},
		[]string{"endpoint", "status"},
	)
	PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictionDurationSeconds",
			Help:    "Prediction service latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	PredictionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionErrorsTotal",
			Help: "Failed prediction exchanges by category",
		},
		[]string{"category"},
	)
	PredictionInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictionInFlight",
			Help: "1 while a prediction submission is outstanding",
		},
	)
	SubmitSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submitSuppressedTotal",
			Help: "Submit attempts suppressed at the trigger",
		},
		[]string{"reason"},
	)
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validationFailuresTotal",
			Help: "Submissions rejected by input validation",
		},
		[]string{"kind"},
	)
	RenderFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renderFailuresTotal",
			Help: "Successful responses missing expected fields",
		},
	)
	ModeChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeChangesTotal",
			Help: "Input mode toggles by axis and target mode",
		},
		[]string{"axis", "mode"},
	)
	CircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Prediction service circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Prediction service circuit breaker transitions",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration,
		PredictionCallsTotal, PredictionDuration, PredictionErrorsTotal, PredictionInFlight,
		SubmitSuppressedTotal, ValidationFailuresTotal, RenderFailuresTotal, ModeChangesTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
	)
}

// RecordCircuitBreakerTransition records a breaker state change and updates the state gauge.
func RecordCircuitBreakerTransition(from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(from, to).Inc()
	CircuitBreakerState.Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
