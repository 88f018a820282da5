// Package metrics exposes batch timings as Prometheus metrics written to a
// node_exporter textfile at the end of a run.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subburn"

// Batch collects per-stage and per-job observations for one process.
// It satisfies pipeline.Metrics.
type Batch struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	jobDuration   *prometheus.HistogramVec
	jobsTotal     *prometheus.CounterVec
	lastRunTime   prometheus.Gauge
	lastRunJobs   *prometheus.GaugeVec
}

// New registers the batch metrics on a private registry.
func New() *Batch {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Batch{
		registry: reg,
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage", "result"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of whole video jobs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"kind"}),
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of video jobs by outcome",
		}, []string{"kind", "failed_stage"}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
		lastRunJobs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_jobs",
			Help:      "Jobs in the last batch by result",
		}, []string{"result"}),
	}
}

// Registry returns the gatherer backing the batch metrics.
func (b *Batch) Registry() *prometheus.Registry {
	return b.registry
}

// ObserveStage records the duration of one stage attempt.
func (b *Batch) ObserveStage(stage string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	b.stageDuration.WithLabelValues(stage, result).Observe(elapsed.Seconds())
}

// ObserveJob records a finished job. failedStage is empty for successes.
func (b *Batch) ObserveJob(kind, failedStage string, elapsed time.Duration) {
	b.jobsTotal.WithLabelValues(kind, failedStage).Inc()
	b.jobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRun records batch-level totals.
func (b *Batch) ObserveRun(total, failed int, finished time.Time) {
	b.lastRunTime.Set(float64(finished.Unix()))
	b.lastRunJobs.WithLabelValues("succeeded").Set(float64(total - failed))
	b.lastRunJobs.WithLabelValues("failed").Set(float64(failed))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically so a scraping node_exporter never sees a
// partial write.
func (b *Batch) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("metrics textfile path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, b.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
