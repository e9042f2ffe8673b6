// Package metrics exposes Prometheus collectors for the reno API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/janhq/reno-server/internal/domain/chat"
	"github.com/janhq/reno-server/internal/domain/intent"
)

const (
	namespace = "reno"
	subsystem = "api"
)

// Collectors groups every metric the service records. Use New with a
// dedicated registry in tests.
type Collectors struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StageDuration   *prometheus.HistogramVec
	DegradedTotal   *prometheus.CounterVec
	IntentsTotal    *prometheus.CounterVec
	AgentOutcomes   *prometheus.CounterVec
	TurnsTotal      *prometheus.CounterVec
	SummariesTotal  prometheus.Counter
	ActiveStreams   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "endpoint", "status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each chat pipeline stage",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage"},
		),
		DegradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_degraded_total",
				Help:      "Pipeline stages that failed and fell back",
			},
			[]string{"stage"},
		),
		IntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "intents_total",
				Help:      "Classified intents by source",
			},
			[]string{"intent", "source"},
		),
		AgentOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "agent_outcomes_total",
				Help:      "Specialized agent results by status",
			},
			[]string{"agent", "status"},
		),
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "turns_total",
				Help:      "Completed chat turns by mode and status",
			},
			[]string{"mode", "status"},
		),
		SummariesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "summaries_created_total",
				Help:      "Conversation summaries created",
			},
		),
		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_streams",
				Help:      "Streaming responses currently open",
			},
		),
	}
}

// RecordRequest records one HTTP request.
func (c *Collectors) RecordRequest(method, endpoint string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	c.RequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	c.RequestDuration.WithLabelValues(method, endpoint, code).Observe(d.Seconds())
}

func (c *Collectors) StreamOpened() { c.ActiveStreams.Inc() }
func (c *Collectors) StreamClosed() { c.ActiveStreams.Dec() }

func (c *Collectors) ObserveStage(stage string, d time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collectors) StageDegraded(stage string) {
	c.DegradedTotal.WithLabelValues(stage).Inc()
}

func (c *Collectors) IntentClassified(in intent.Intent, source string) {
	if source == "" {
		source = "unknown"
	}
	c.IntentsTotal.WithLabelValues(string(in), source).Inc()
}

func (c *Collectors) AgentOutcome(agent, status string) {
	c.AgentOutcomes.WithLabelValues(agent, status).Inc()
}

func (c *Collectors) TurnCompleted(mode, status string) {
	c.TurnsTotal.WithLabelValues(mode, status).Inc()
}

func (c *Collectors) SummaryCreated() {
	c.SummariesTotal.Inc()
}

var _ chat.Metrics = (*Collectors)(nil)
