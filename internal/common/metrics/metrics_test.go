// internal/common/metrics/metrics_test.go
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(LenderSubmissions.WithLabelValues("google_sheet", "failed"))
	beforeFailures := testutil.ToFloat64(LenderSubmissionFailures.WithLabelValues("google_sheet", "google_sheet_error", "true"))

	RecordSubmission("google_sheet", "failed", "google_sheet_error", true, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(LenderSubmissions.WithLabelValues("google_sheet", "failed")))
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(LenderSubmissionFailures.WithLabelValues("google_sheet", "google_sheet_error", "true")))
}

func TestRecordSubmission_SuccessSkipsFailureCounter(t *testing.T) {
	before := testutil.ToFloat64(LenderSubmissionFailures.WithLabelValues("email", "", "false"))

	RecordSubmission("email", "accepted", "", false, time.Millisecond)

	assert.Equal(t, before, testutil.ToFloat64(LenderSubmissionFailures.WithLabelValues("email", "", "false")))
}

func TestTrackJob(t *testing.T) {
	done := TrackJob("test-task")
	assert.Equal(t, float64(1), testutil.ToFloat64(WorkerJobsActive.WithLabelValues("test-task")))

	done("SUBMISSION_REJECTED")

	assert.Equal(t, float64(0), testutil.ToFloat64(WorkerJobsActive.WithLabelValues("test-task")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WorkerJobsFailed.WithLabelValues("test-task", "SUBMISSION_REJECTED")))
}
