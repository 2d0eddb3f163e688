// Package metrics provides Prometheus metrics for the preview service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewkit_builds_total",
			Help: "Total number of builds by outcome",
		},
		[]string{"outcome"},
	)

	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "previewkit_build_duration_seconds",
			Help:    "Build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	buildDiagnostics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewkit_build_diagnostics_total",
			Help: "Diagnostics emitted by builds",
		},
		[]string{"severity"},
	)

	buildCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewkit_build_cache_lookups_total",
			Help: "Build cache lookups by result",
		},
		[]string{"result"},
	)

	dependencyLocators = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "previewkit_dependency_locators",
			Help: "Number of memoized third-party package locators",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewkit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "previewkit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	assistantRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previewkit_assistant_requests_total",
			Help: "Assistant completions by provider and status",
		},
		[]string{"provider", "status"},
	)

	artifactOperations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "previewkit_artifact_operation_duration_seconds",
			Help:    "Artifact store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "previewkit_ws_connections_active",
			Help: "Number of open build stream connections",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBuild records one finished build.
func RecordBuild(success bool, cached bool, duration time.Duration, errors, warnings int) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	buildsTotal.WithLabelValues(outcome).Inc()
	if !cached {
		buildDuration.Observe(duration.Seconds())
	}
	buildDiagnostics.WithLabelValues("error").Add(float64(errors))
	buildDiagnostics.WithLabelValues("warning").Add(float64(warnings))
}

func RecordCacheLookup(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	buildCacheLookups.WithLabelValues(result).Inc()
}

func SetDependencyLocators(n int) {
	dependencyLocators.Set(float64(n))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordAssistantRequest(provider string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	assistantRequestsTotal.WithLabelValues(provider, status).Inc()
}

func RecordArtifactOperation(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	artifactOperations.WithLabelValues(operation, status).Observe(duration.Seconds())
}

func AddWSConnections(delta int) {
	wsConnectionsActive.Add(float64(delta))
}
