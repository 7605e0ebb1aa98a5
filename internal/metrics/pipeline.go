// Package metrics holds the Prometheus instruments for the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Pipeline records stage outcomes and latencies. A nil *Pipeline is a no-op.
type Pipeline struct {
	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	cleanupFailures prometheus.Counter
	uploadBytes     prometheus.Histogram
}

// NewPipeline creates the pipeline metrics and registers them with reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	m := &Pipeline{
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_pipeline_stage_total",
				Help: "Pipeline stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "minutes_pipeline_stage_duration_seconds",
				Help: "Time spent in each pipeline stage",
				// 50ms to ~7min; transcription of long recordings sits at the top end
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
			[]string{"stage"},
		),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minutes_temp_cleanup_failures_total",
			Help: "Temporary upload files that could not be removed",
		}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minutes_upload_bytes",
			Help:    "Size of accepted audio uploads",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.stageTotal, m.stageDuration, m.cleanupFailures, m.uploadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Pipeline) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Pipeline) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

func (m *Pipeline) ObserveUpload(size int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Observe(float64(size))
}
