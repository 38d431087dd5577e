// Package metrics exposes Prometheus collectors for the evaluation pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fluency"

// Custom registry so tests and the /metrics handler see only our collectors.
var registry = prometheus.NewRegistry() //nolint:gochecknoglobals

var (
	auto = promauto.With(registry) //nolint:gochecknoglobals

	evaluationsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "evaluations_total",
		Help:      "Recording evaluations by outcome (complete, duplicate, error).",
	}, []string{"outcome"})

	externalCallDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "external_call_duration_seconds",
		Help:      "Latency of transcription and language-model calls.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"service", "result"})

	partialParses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "partial_parses_total",
		Help:      "Language-model responses missing at least one metric.",
	})

	lusScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "lus_score",
		Help:      "Distribution of LUS grades written.",
		Buckets:   prometheus.LinearBuckets(1, 1, 20),
	})

	assessmentScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rubric",
		Name:      "normalized_score",
		Help:      "Distribution of normalized assessment scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "queue_depth",
		Help:      "Evaluation tasks waiting in the queue.",
	})

	tasksDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "tasks_rejected_total",
		Help:      "Evaluation tasks rejected because the queue was full or closed.",
	})

	httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() { //nolint:gochecknoinits
	registry.MustRegister(collectors.NewGoCollector())
}

func GetRegistry() *prometheus.Registry { return registry }

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func RecordEvaluation(outcome string) {
	evaluationsTotal.WithLabelValues(outcome).Inc()
}

func ObserveExternalCall(service string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	externalCallDuration.WithLabelValues(service, result).Observe(time.Since(start).Seconds())
}

func RecordPartialParse() { partialParses.Inc() }

func ObserveLUS(score int) { lusScores.Observe(float64(score)) }

func ObserveAssessment(normalized float64) { assessmentScores.Observe(normalized) }

func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

func RecordRejectedTask() { tasksDropped.Inc() }

// GinMiddleware records request count and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
