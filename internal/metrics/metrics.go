package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttemptsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom",
		Subsystem: "exam",
		Name:      "attempts_started_total",
		Help:      "Start calls that returned an attempt, by outcome (created|resumed).",
	}, []string{"outcome"})

	AttemptsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom",
		Subsystem: "exam",
		Name:      "attempts_submitted_total",
		Help:      "Completed submissions, by whether manual grading remains.",
	}, []string{"needs_manual"})

	Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom",
		Subsystem: "exam",
		Name:      "rejections_total",
		Help:      "Start/Submit calls rejected with a domain error.",
	}, []string{"op", "code"})

	Scores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classroom",
		Subsystem: "exam",
		Name:      "score_percent",
		Help:      "Auto-graded attempt scores.",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})
)

// NewRegistry returns a registry holding the exam collectors plus the Go and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AttemptsStarted, AttemptsSubmitted, Rejections, Scores,
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
