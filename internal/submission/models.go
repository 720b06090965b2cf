// internal/submission/models.go

// Package submission delivers a finalized loan-application snapshot to a lender
// over one of three channels (email, partner API, spreadsheet ledger) and
// normalizes every outcome into a SubmissionResult.
package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Method is the delivery channel configured for a lender.
type Method string

const (
	MethodEmail       Method = "email"
	MethodAPI         Method = "api"
	MethodGoogleSheet Method = "google_sheet"

	legacyGoogleSheets = "google_sheets"
)

// NormalizeMethod canonicalizes stored method text. Unknown or empty values fall
// back to email so lenders with unset legacy data still resolve.
func NormalizeMethod(raw string) Method {
	switch m := strings.ToLower(strings.TrimSpace(raw)); m {
	case legacyGoogleSheets, string(MethodGoogleSheet):
		return MethodGoogleSheet
	case string(MethodAPI):
		return MethodAPI
	default:
		return MethodEmail
	}
}

// SubmissionProfile is a resolved, validated, submit-ready lender configuration.
type SubmissionProfile struct {
	LenderID         string          `json:"lenderId"`
	LenderName       string          `json:"lenderName"`
	Method           Method          `json:"method"`
	SubmissionEmail  string          `json:"submissionEmail,omitempty"`
	SubmissionConfig json.RawMessage `json:"submissionConfig,omitempty"`
}

// SpreadsheetConfig is the google_sheet flavour of SubmissionConfig.
type SpreadsheetConfig struct {
	SpreadsheetID    string `json:"spreadsheetId"`
	SheetName        string `json:"sheetName,omitempty"`
	ColumnMapVersion string `json:"columnMapVersion"`
}

var (
	ErrSpreadsheetIDRequired      = errors.New("spreadsheetId is required")
	ErrColumnMapVersionRequired   = errors.New("columnMapVersion is required")
	ErrSubmissionConfigNotObject  = errors.New("submission config must be a JSON object")
	ErrSubmissionConfigIsRequired = errors.New("submission config is required")
)

// ParseSpreadsheetConfig decodes and validates a google_sheet submission config.
func ParseSpreadsheetConfig(raw json.RawMessage) (SpreadsheetConfig, error) {
	if isNullJSON(raw) {
		return SpreadsheetConfig{}, ErrSubmissionConfigIsRequired
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return SpreadsheetConfig{}, ErrSubmissionConfigNotObject
	}

	cfg := SpreadsheetConfig{
		SpreadsheetID:    stringField(fields, "spreadsheetId"),
		SheetName:        stringField(fields, "sheetName"),
		ColumnMapVersion: stringField(fields, "columnMapVersion"),
	}
	if cfg.SpreadsheetID == "" {
		return SpreadsheetConfig{}, ErrSpreadsheetIDRequired
	}
	if cfg.ColumnMapVersion == "" {
		return SpreadsheetConfig{}, ErrColumnMapVersionRequired
	}
	return cfg, nil
}

// PartnerConfig is the api flavour of SubmissionConfig. An empty Endpoint means
// the lender has no live integration yet.
type PartnerConfig struct {
	Endpoint string            `json:"endpoint,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// ParsePartnerConfig decodes an api submission config. Unknown fields are ignored.
func ParsePartnerConfig(raw json.RawMessage) (PartnerConfig, error) {
	var cfg PartnerConfig
	if isNullJSON(raw) {
		return cfg, ErrSubmissionConfigIsRequired
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return PartnerConfig{}, fmt.Errorf("decode partner config: %w", err)
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	return cfg, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func stringField(fields map[string]interface{}, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// Application is the application snapshot carried by a payload.
type Application struct {
	ID              string                 `json:"id"`
	OwnerID         string                 `json:"ownerId"`
	Name            string                 `json:"name"`
	Metadata        map[string]interface{} `json:"metadata"`
	ProductType     string                 `json:"productType"`
	LenderID        string                 `json:"lenderId"`
	LenderProductID string                 `json:"lenderProductId"`
	RequestedAmount *float64               `json:"requestedAmount"`
}

// Document is one versioned document attached to the submission.
type Document struct {
	DocumentID   string                 `json:"documentId"`
	DocumentType string                 `json:"documentType"`
	Title        string                 `json:"title"`
	VersionID    string                 `json:"versionId"`
	Version      int                    `json:"version"`
	Metadata     map[string]interface{} `json:"metadata"`
	Content      string                 `json:"content,omitempty"`
}

// SubmissionPayload is an immutable snapshot assembled by the caller. Adapters
// only read it.
type SubmissionPayload struct {
	Application Application `json:"application"`
	Documents   []Document  `json:"documents"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// AsMap returns the payload as a decoded JSON tree, addressable by the JSON
// field names.
func (p *SubmissionPayload) AsMap() (map[string]interface{}, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

// Response statuses.
const (
	StatusAccepted  = "accepted"
	StatusTimeout   = "timeout"
	StatusError     = "error"
	StatusDuplicate = "duplicate"
	StatusAppended  = "appended"
	StatusFailed    = "failed"
)

// Failure reasons. These are taxonomy codes, not error messages.
const (
	ReasonLenderTimeout    = "lender_timeout"
	ReasonLenderError      = "lender_error"
	ReasonGoogleSheetError = "google_sheet_error"
	ReasonEmailRelayError  = "email_relay_error"
	ReasonPartnerAPIError  = "partner_api_error"
)

// Response is the channel-independent echo of what happened.
type Response struct {
	Status            string    `json:"status"`
	Detail            string    `json:"detail,omitempty"`
	ReceivedAt        time.Time `json:"receivedAt"`
	ExternalReference string    `json:"externalReference,omitempty"`
}

// SubmissionResult is returned by every adapter. Retryable is only meaningful
// when Success is false.
type SubmissionResult struct {
	Success       bool     `json:"success"`
	Response      Response `json:"response"`
	FailureReason *string  `json:"failureReason"`
	Retryable     bool     `json:"retryable"`
}

// Reason returns the failure reason or "" on success.
func (r SubmissionResult) Reason() string {
	if r.FailureReason == nil {
		return ""
	}
	return *r.FailureReason
}

func succeeded(resp Response) SubmissionResult {
	return SubmissionResult{Success: true, Response: resp}
}

func failed(reason string, retryable bool, resp Response) SubmissionResult {
	return SubmissionResult{
		Success:       false,
		Response:      resp,
		FailureReason: &reason,
		Retryable:     retryable,
	}
}
