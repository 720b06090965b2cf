// internal/submission/partner_api.go
package submission

import (
	"context"
	"encoding/json"

	"lender-submission-workers/internal/common/logger"
)

const timeoutLenderID = "timeout"

// PartnerAPIAdapter stands in for a lender's HTTP integration. Its behavior is
// deterministic: the "timeout" lender and payloads flagged with
// application.metadata.forceFailure fail on the first attempt and succeed on
// any later one.
type PartnerAPIAdapter struct {
	lenderID string
	attempt  int
	logger   logger.Logger
}

func NewPartnerAPIAdapter(lenderID string, attempt int, log logger.Logger) *PartnerAPIAdapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PartnerAPIAdapter{lenderID: lenderID, attempt: attempt, logger: log}
}

func (a *PartnerAPIAdapter) Submit(_ context.Context, payload *SubmissionPayload) SubmissionResult {
	return guard(ReasonLenderError, func() SubmissionResult {
		if a.lenderID == timeoutLenderID && a.attempt == 0 {
			a.logger.Warn("Lender did not respond", map[string]interface{}{
				"applicationId": payload.Application.ID,
				"lenderId":      a.lenderID,
				"attempt":       a.attempt,
			})
			return failed(ReasonLenderTimeout, true, Response{
				Status:     StatusTimeout,
				Detail:     "Lender did not respond.",
				ReceivedAt: now(),
			})
		}

		if a.attempt == 0 && truthy(payload.Application.Metadata["forceFailure"]) {
			a.logger.Warn("Forced lender error", map[string]interface{}{
				"applicationId": payload.Application.ID,
				"lenderId":      a.lenderID,
			})
			return failed(ReasonLenderError, true, Response{
				Status:     StatusError,
				Detail:     "Forced lender error.",
				ReceivedAt: now(),
			})
		}

		return succeeded(Response{
			Status:     StatusAccepted,
			ReceivedAt: now(),
		})
	})
}

// truthy follows JavaScript truthiness over decoded JSON values.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && t == t
	case float32:
		return t != 0 && t == t
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}
