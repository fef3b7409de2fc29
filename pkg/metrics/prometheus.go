package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	sendsTotal         *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	workflowEvents     *prometheus.CounterVec
	modeSwitches       *prometheus.CounterVec
	triggersTotal      *prometheus.CounterVec
}

// NewPrometheusRecorder registers the engine metrics on reg.
// Passing prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		sendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_sends_total",
				Help: "Total number of send attempts by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_generation_duration_seconds",
				Help:    "Duration of generation collaborator calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode", "status"},
		),
		workflowEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_workflow_events_total",
				Help: "Total number of guided interview transitions by kind and event",
			},
			[]string{"kind", "event"},
		),
		modeSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_mode_switches_total",
				Help: "Total number of active mode changes",
			},
			[]string{"from", "to"},
		),
		triggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_triggers_total",
				Help: "Total number of launch and mount triggers by source",
			},
			[]string{"source"},
		),
	}
}

func (p *PrometheusRecorder) ObserveSend(mode, outcome string) {
	p.sendsTotal.WithLabelValues(mode, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveGeneration(mode, status string, duration time.Duration) {
	p.generationDuration.WithLabelValues(mode, status).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncWorkflowEvent(kind, event string) {
	p.workflowEvents.WithLabelValues(kind, event).Inc()
}

func (p *PrometheusRecorder) IncModeSwitch(from, to string) {
	p.modeSwitches.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) IncTrigger(source string) {
	p.triggersTotal.WithLabelValues(source).Inc()
}
