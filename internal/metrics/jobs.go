package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes.
const (
	ResultSent     = "sent"
	ResultStored   = "stored"
	ResultUploaded = "uploaded"
	ResultEmpty    = "empty"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "result"},
	)

	jobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "budget_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each job",
		},
		[]string{"job"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "budget_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

// ObserveJob records one run of job. Every result other than ResultFailed and
// ResultSkipped counts as a success.
func ObserveJob(job, result string, start, end time.Time) {
	jobRunsTotal.WithLabelValues(job, result).Inc()
	if result == ResultSkipped {
		return
	}
	jobDuration.WithLabelValues(job).Observe(end.Sub(start).Seconds())
	if result != ResultFailed {
		jobLastSuccess.WithLabelValues(job).Set(float64(end.Unix()))
	}
}
