package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/stagetrack/internal/model"
)

const prefix = "stagetrack"

// PrometheusRecorder records stage tracking metrics using Prometheus collectors.
type PrometheusRecorder struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

// NewPrometheusRecorder returns a recorder registered on the given registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		return nil, fmt.Errorf("prometheus registerer is required")
	}

	r := &PrometheusRecorder{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "stage_events_total",
			Help:      "Total number of stage events by stage and type.",
		}, []string{"stage", "type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "stage_transitions_total",
			Help:      "Total number of accepted stage transitions.",
		}, []string{"from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "stage_transitions_rejected_total",
			Help:      "Total number of rejected stage transitions by reason.",
		}, []string{"reason"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "stage_duration_seconds",
			Help:      "Duration of finished stages.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{r.events, r.transitions, r.rejected, r.durations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}

	return r, nil
}

func (r *PrometheusRecorder) ObserveEvent(stage model.Stage, eventType model.StageEventType) {
	r.events.WithLabelValues(stage.String(), string(eventType)).Inc()
}

func (r *PrometheusRecorder) ObserveTransition(from, to model.Stage) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (r *PrometheusRecorder) ObserveRejectedTransition(reason model.TransitionReason) {
	r.rejected.WithLabelValues(string(reason)).Inc()
}

func (r *PrometheusRecorder) ObserveStageDuration(stage model.Stage, duration time.Duration) {
	r.durations.WithLabelValues(stage.String()).Observe(duration.Seconds())
}
