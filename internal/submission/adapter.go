// internal/submission/adapter.go
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	httpclient "lender-submission-workers/internal/common/http"
	"lender-submission-workers/internal/common/sheets"
)

// Adapter delivers a payload over a single channel. Submit never returns an
// error: every failure is folded into the result.
type Adapter interface {
	Submit(ctx context.Context, payload *SubmissionPayload) SubmissionResult
}

// now is swapped in tests that need a stable receivedAt.
var now = func() time.Time { return time.Now().UTC() }

// guard runs fn and converts a panic into a non-retryable failure carrying reason.
func guard(reason string, fn func() SubmissionResult) (result SubmissionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(reason, false, Response{
				Status:     StatusFailed,
				Detail:     fmt.Sprintf("internal error: %v", r),
				ReceivedAt: now(),
			})
		}
	}()
	return fn()
}

// isRetryable applies the shared transport classification: 429 and any 5xx are
// retryable, as is a deadline expiring. Everything else is terminal.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if code, ok := sheets.StatusCode(err); ok {
		return httpclient.IsTransientStatus(code)
	}
	return false
}

// terminalError marks a validation failure found mid-submit. It is never retried.
type terminalError struct {
	msg string
}

func (e *terminalError) Error() string { return e.msg }

func terminal(format string, args ...interface{}) error {
	return &terminalError{msg: fmt.Sprintf(format, args...)}
}

func classify(err error) bool {
	var te *terminalError
	if errors.As(err, &te) {
		return false
	}
	return isRetryable(err)
}
