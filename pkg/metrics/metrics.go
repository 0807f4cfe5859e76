// Package metrics exposes Prometheus collectors for ingestion and retrieval.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/soundprediction/studygraph/pkg/types"
)

var (
	// Ingestion metrics
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studygraph_records_ingested_total",
		Help: "Total number of records written to the graph",
	}, []string{"kind"})

	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studygraph_records_rejected_total",
		Help: "Total number of records rejected by a precondition",
	}, []string{"kind"})

	// Retrieval metrics
	RetrievalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studygraph_retrieval_duration_seconds",
		Help:    "Latency of retrieval operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	AttemptsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studygraph_attempts_recorded_total",
		Help: "Total number of learner attempts recorded",
	}, []string{"correct"})
)

// ObserveBatch counts the successes and rejections of a batch result.
func ObserveBatch(kind string, result *types.BatchResult) {
	if result == nil {
		return
	}
	RecordsIngested.WithLabelValues(kind).Add(float64(result.Succeeded))
	for _, rej := range result.Rejected {
		k := rej.Kind
		if k == "" {
			k = kind
		}
		RecordsRejected.WithLabelValues(k).Inc()
	}
}

// ObserveRecord counts a single-record write by its outcome.
func ObserveRecord(kind string, err error) {
	if err == nil {
		RecordsIngested.WithLabelValues(kind).Inc()
		return
	}
	if _, ok := types.AsRejection(err); ok {
		RecordsRejected.WithLabelValues(kind).Inc()
	}
}

// ObserveAttempt counts a recorded attempt.
func ObserveAttempt(correct bool) {
	if correct {
		AttemptsRecorded.WithLabelValues("true").Inc()
		return
	}
	AttemptsRecorded.WithLabelValues("false").Inc()
}

// Timer measures one retrieval operation:
//
//	defer metrics.Timer("vector_search")()
func Timer(operation string) func() {
	start := time.Now()
	return func() {
		RetrievalLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studygraph_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studygraph_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
