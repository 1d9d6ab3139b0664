package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters and histograms of every binary. Components
// accept a nil *Metrics and record nothing in that case.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunFailures       *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	Notifications     *prometheus.CounterVec
	DroppedSteps      prometheus.Counter
	InteractionEvents *prometheus.CounterVec
	QuizRuns          *prometheus.CounterVec
	DedupeEntries     *prometheus.GaugeVec
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_runs_total",
			Help: "Travel plan runs by final status",
		}, []string{"status"}),

		RunFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_run_failures_total",
			Help: "Failed travel plan runs by error kind",
		}, []string{"kind"}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripplanner_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_notifications_total",
			Help: "Push notifications by flow and outcome",
		}, []string{"flow", "outcome"}),

		DroppedSteps: f.NewCounter(prometheus.CounterOpts{
			Name: "tripplanner_enrichment_dropped_steps_total",
			Help: "Synthesized steps dropped because the place was not a candidate",
		}),

		InteractionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_interaction_events_total",
			Help: "Post interaction events by type and outcome",
		}, []string{"type", "outcome"}),

		QuizRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tripplanner_quiz_runs_total",
			Help: "Daily quiz runs by outcome",
		}, []string{"outcome"}),

		DedupeEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tripplanner_dedupe_entries",
			Help: "Live redelivery claims held by a consumer",
		}, []string{"consumer"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RunFinished records the final status of a run and, for failures, its kind.
func (m *Metrics) RunFinished(status, kind string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	if kind != "" {
		m.RunFailures.WithLabelValues(kind).Inc()
	}
}

// Notification records one notification attempt.
func (m *Metrics) Notification(flow, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(flow, outcome).Inc()
}

// StepsDropped adds n dropped steps.
func (m *Metrics) StepsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedSteps.Add(float64(n))
}

// Interaction records one processed interaction event.
func (m *Metrics) Interaction(eventType, outcome string) {
	if m == nil {
		return
	}
	m.InteractionEvents.WithLabelValues(eventType, outcome).Inc()
}

// Quiz records one quiz run.
func (m *Metrics) Quiz(outcome string) {
	if m == nil {
		return
	}
	m.QuizRuns.WithLabelValues(outcome).Inc()
}

// DedupeSize reports the number of live dedupe claims of consumer.
func (m *Metrics) DedupeSize(consumer string, n int) {
	if m == nil {
		return
	}
	m.DedupeEntries.WithLabelValues(consumer).Set(float64(n))
}
