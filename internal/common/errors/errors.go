// internal/common/errors/errors.go

// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Lender configuration errors. These are never retried: the lender record has to be fixed first.
const (
	ErrCodeLenderNotFound              ErrorCode = "LENDER_NOT_FOUND"
	ErrCodeSubmissionEmailRequired     ErrorCode = "SUBMISSION_EMAIL_REQUIRED"
	ErrCodeSubmissionConfigRequired    ErrorCode = "SUBMISSION_CONFIG_REQUIRED"
	ErrCodeSpreadsheetConfigInvalid    ErrorCode = "SPREADSHEET_CONFIG_INVALID"
	ErrCodeUnsupportedSubmissionMethod ErrorCode = "UNSUPPORTED_SUBMISSION_METHOD"
	ErrCodeInvalidSubmissionInput      ErrorCode = "INVALID_SUBMISSION_INPUT"
)

// Transport errors.
const (
	ErrCodeLenderLookupFailed  ErrorCode = "LENDER_LOOKUP_FAILED"
	ErrCodeSubmissionRetryable ErrorCode = "SUBMISSION_RETRYABLE"
	ErrCodeSubmissionRejected  ErrorCode = "SUBMISSION_REJECTED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// HasCode reports whether err is (or wraps) a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newConfigError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLenderNotFoundError is returned when the lender has no configuration row.
func NewLenderNotFoundError(lenderID string) *StandardError {
	return newConfigError(ErrCodeLenderNotFound, "lender not found", fmt.Sprintf("lenderId: %s", lenderID))
}

func NewSubmissionEmailRequiredError(lenderID string) *StandardError {
	return newConfigError(ErrCodeSubmissionEmailRequired, "submission email is required", fmt.Sprintf("lenderId: %s", lenderID))
}

func NewSubmissionConfigRequiredError(lenderID string) *StandardError {
	return newConfigError(ErrCodeSubmissionConfigRequired, "submission config is required", fmt.Sprintf("lenderId: %s", lenderID))
}

// NewSpreadsheetConfigInvalidError wraps a spreadsheet config parse failure.
func NewSpreadsheetConfigInvalidError(lenderID string, err error) *StandardError {
	return newConfigError(ErrCodeSpreadsheetConfigInvalid, "invalid google sheet submission config",
		fmt.Sprintf("lenderId: %s, error: %s", lenderID, err.Error()))
}

func NewUnsupportedSubmissionMethodError(method string) *StandardError {
	return newConfigError(ErrCodeUnsupportedSubmissionMethod, "unsupported submission method", fmt.Sprintf("method: %s", method))
}

func NewInvalidSubmissionInputError(details string) *StandardError {
	return newConfigError(ErrCodeInvalidSubmissionInput, "invalid submission job input", details)
}

// NewLenderLookupFailedError is a retryable failure talking to the lender configuration store.
func NewLenderLookupFailedError(lenderID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLenderLookupFailed,
		Message:   "lender configuration lookup failed",
		Details:   fmt.Sprintf("lenderId: %s, error: %s", lenderID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError converts a failed delivery result into a job error. The
// retryable flag comes straight from the channel's classification.
func NewSubmissionFailedError(failureReason, detail string, retryable bool) *StandardError {
	code := ErrCodeSubmissionRejected
	if retryable {
		code = ErrCodeSubmissionRetryable
	}
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("lender submission failed: %s", failureReason),
		Details:   detail,
		Retryable: retryable,
		Metadata:  map[string]interface{}{"failureReason": failureReason},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes modelled in the process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeLenderNotFound:              "LENDER_NOT_FOUND",
	ErrCodeSubmissionEmailRequired:     "LENDER_MISCONFIGURED",
	ErrCodeSubmissionConfigRequired:    "LENDER_MISCONFIGURED",
	ErrCodeSpreadsheetConfigInvalid:    "LENDER_MISCONFIGURED",
	ErrCodeUnsupportedSubmissionMethod: "LENDER_MISCONFIGURED",
	ErrCodeInvalidSubmissionInput:      "INVALID_SUBMISSION_INPUT",
	ErrCodeLenderLookupFailed:          "LENDER_LOOKUP_FAILED",
	ErrCodeSubmissionRetryable:         "SUBMISSION_FAILED",
	ErrCodeSubmissionRejected:          "SUBMISSION_REJECTED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLenderLookupFailed:
		return 3
	case ErrCodeSubmissionRetryable:
		return 5
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeLenderNotFound, ErrCodeLenderLookupFailed:
		return "LENDER"
	case ErrCodeSubmissionRetryable, ErrCodeSubmissionRejected:
		return "DELIVERY"
	case ErrCodeInvalidSubmissionInput:
		return "VALIDATION"
	}
	if strings.Contains(string(code), "CONFIG") || strings.Contains(string(code), "REQUIRED") || strings.Contains(string(code), "METHOD") {
		return "CONFIGURATION"
	}
	return "OTHER"
}
