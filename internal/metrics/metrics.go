// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependency labels used with ObserveDependency.
const (
	DependencyEmbedder  = "embedder"
	DependencyGenerator = "generator"
	DependencyAnswerer  = "answerer"
	DependencyVector    = "vector_index"
	DependencyFetcher   = "fetcher"
	DependencyStorage   = "object_store"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomePartial   = "partial"
	OutcomeNoContent = "no_relevant_content"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skimzy_http_requests_total",
	Help: "Total number of requests labelled by route pattern and status.",
}, []string{"path", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "skimzy_dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"service"})

var ingestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skimzy_ingestions_total",
	Help: "Ingestion attempts labelled by content type and outcome.",
}, []string{"content_type", "outcome"})

var questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skimzy_questions_total",
	Help: "Chat questions labelled by outcome.",
}, []string{"outcome"})

var reindexJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skimzy_reindex_jobs_total",
	Help: "Processed reindex jobs labelled by outcome.",
}, []string{"outcome"})

// ObserveDependency records how long a call to service took since start.
func ObserveDependency(service string, start time.Time) {
	dependencyLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

func RecordHTTPRequest(path, status string) {
	HTTPRequestsTotal.WithLabelValues(path, status).Inc()
}

func RecordIngestion(contentType, outcome string) {
	ingestionsTotal.WithLabelValues(contentType, outcome).Inc()
}

func RecordQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

func RecordReindexJob(outcome string) {
	reindexJobsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
