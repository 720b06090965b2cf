// internal/workers/submission/lender-submit/models.go
package lendersubmit

import (
	"time"

	"lender-submission-workers/internal/submission"
)

type Input struct {
	LenderID string                       `json:"lenderId"`
	Attempt  *int                         `json:"attempt,omitempty"`
	Payload  submission.SubmissionPayload `json:"payload"`
}

type Output struct {
	SubmissionID  string              `json:"submissionId"`
	Success       bool                `json:"success"`
	Response      submission.Response `json:"response"`
	FailureReason *string             `json:"failureReason"`
	Retryable     bool                `json:"retryable"`
	Method        string              `json:"method"`
}

// OutcomeEvent is published once per delivery attempt.
type OutcomeEvent struct {
	EventType          string    `json:"eventType"`
	SubmissionID       string    `json:"submissionId"`
	LenderID           string    `json:"lenderId"`
	ApplicationID      string    `json:"applicationId"`
	Method             string    `json:"method"`
	Attempt            int       `json:"attempt"`
	Success            bool      `json:"success"`
	Status             string    `json:"status"`
	FailureReason      *string   `json:"failureReason"`
	Retryable          bool      `json:"retryable"`
	ExternalReference  string    `json:"externalReference,omitempty"`
	ProcessInstanceKey int64     `json:"processInstanceKey,omitempty"`
	OccurredAt         time.Time `json:"occurredAt"`
}

const outcomeEventType = "lender.submission.outcome"
