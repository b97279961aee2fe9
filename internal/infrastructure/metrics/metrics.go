package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages.
const (
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	questions     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	matches       prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "policysage_questions_total",
				Help: "Total number of questions processed, by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "policysage_stage_duration_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		matches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "policysage_matches_returned",
				Help:    "Number of graph matches retrieved per question",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
	}

	m.registry.MustRegister(
		m.questions,
		m.stageDuration,
		m.matches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveQuestion counts one processed question.
func (m *Metrics) ObserveQuestion(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveMatches records the number of matches retrieved.
func (m *Metrics) ObserveMatches(n int) {
	if m == nil {
		return
	}
	m.matches.Observe(float64(n))
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
