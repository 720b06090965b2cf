// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed or rejected by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	LenderSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lender_submissions_total",
			Help: "Submission attempts by channel and response status",
		},
		[]string{"method", "status"},
	)

	LenderSubmissionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lender_submission_failures_total",
			Help: "Failed submission attempts by channel, failure reason and retry classification",
		},
		[]string{"method", "reason", "retryable"},
	)

	LenderSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lender_submission_duration_seconds",
			Help:    "Time spent inside a channel adapter",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
)

// RecordSubmission records one adapter invocation. reason is empty on success.
func RecordSubmission(method, status, reason string, retryable bool, elapsed time.Duration) {
	LenderSubmissions.WithLabelValues(method, status).Inc()
	LenderSubmissionDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	if reason != "" {
		LenderSubmissionFailures.WithLabelValues(method, reason, strconv.FormatBool(retryable)).Inc()
	}
}

// TrackJob marks a job active and returns a func that records its completion.
func TrackJob(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}
