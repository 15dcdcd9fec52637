// Prometheus-based recorder for effect execution metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	effectsTotal   *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a Prometheus-based metrics recorder
// registered on the default registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		effectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effect_executions_total",
				Help: "Total number of effect executions by type and status",
			},
			[]string{"effect_type", "status"},
		),
		effectDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "effect_execution_duration_seconds",
				Help:    "Duration of effect executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"effect_type"},
		),
	}
}

// ObserveEffect records one completed effect execution.
func (p *PrometheusRecorder) ObserveEffect(effectType string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	p.effectsTotal.WithLabelValues(effectType, status).Inc()
	p.effectDuration.WithLabelValues(effectType).Observe(duration.Seconds())
}
