// internal/submission/profile/resolver_test.go
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "lender-submission-workers/internal/common/errors"
	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/submission"
	"lender-submission-workers/internal/submission/columnmap"
)

func newTestResolver(t *testing.T, records map[string]*LenderRecord) *Resolver {
	t.Helper()
	return NewResolver(&countingStore{records: records}, columnmap.NewDefaultRegistry(), logger.NewTestLogger(t))
}

func TestResolver_Resolve_Success(t *testing.T) {
	records := map[string]*LenderRecord{
		"email-lender": {Name: "Email Bank", SubmissionMethod: "EMAIL", SubmissionEmail: " deals@bank.test "},
		"api-lender":   {Name: "API Bank", SubmissionMethod: "api", SubmissionConfig: json.RawMessage(`{"endpoint":"https://p.test"}`)},
		"sheet-lender": {Name: "Sheet Bank", SubmissionMethod: "google_sheets", SubmissionConfig: json.RawMessage(`{"spreadsheetId":"abc","columnMapVersion":"v1"}`)},
		"legacy":       {Name: "Legacy Bank", SubmissionMethod: "", SubmissionEmail: "old@bank.test"},
	}
	resolver := newTestResolver(t, records)

	tests := []struct {
		lenderID   string
		wantMethod submission.Method
		check      func(t *testing.T, p *submission.SubmissionProfile)
	}{
		{
			lenderID:   "email-lender",
			wantMethod: submission.MethodEmail,
			check: func(t *testing.T, p *submission.SubmissionProfile) {
				assert.Equal(t, "deals@bank.test", p.SubmissionEmail)
			},
		},
		{
			lenderID:   "api-lender",
			wantMethod: submission.MethodAPI,
			check: func(t *testing.T, p *submission.SubmissionProfile) {
				assert.JSONEq(t, `{"endpoint":"https://p.test"}`, string(p.SubmissionConfig))
			},
		},
		{
			lenderID:   "sheet-lender",
			wantMethod: submission.MethodGoogleSheet,
			check: func(t *testing.T, p *submission.SubmissionProfile) {
				assert.Equal(t, "Sheet Bank", p.LenderName)
			},
		},
		{
			lenderID:   "legacy",
			wantMethod: submission.MethodEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.lenderID, func(t *testing.T) {
			p, err := resolver.Resolve(context.Background(), tt.lenderID)

			require.NoError(t, err)
			assert.Equal(t, tt.lenderID, p.LenderID)
			assert.Equal(t, tt.wantMethod, p.Method)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestResolver_Resolve_ConfigurationErrors(t *testing.T) {
	records := map[string]*LenderRecord{
		"no-email":       {SubmissionMethod: "email", SubmissionEmail: "   "},
		"api-no-config":  {SubmissionMethod: "api", SubmissionConfig: json.RawMessage(`null`)},
		"sheet-no-id":    {SubmissionMethod: "google_sheet", SubmissionConfig: json.RawMessage(`{"columnMapVersion":"v1"}`)},
		"sheet-no-map":   {SubmissionMethod: "google_sheet", SubmissionConfig: json.RawMessage(`{"spreadsheetId":"abc"}`)},
		"sheet-bad-map":  {SubmissionMethod: "google_sheet", SubmissionConfig: json.RawMessage(`{"spreadsheetId":"abc","columnMapVersion":"v404"}`)},
		"sheet-nil-conf": {SubmissionMethod: "google_sheet"},
	}
	resolver := newTestResolver(t, records)

	tests := []struct {
		lenderID string
		wantCode errs.ErrorCode
		wantMsg  string
	}{
		{lenderID: "missing", wantCode: errs.ErrCodeLenderNotFound, wantMsg: "lender not found"},
		{lenderID: "no-email", wantCode: errs.ErrCodeSubmissionEmailRequired, wantMsg: "submission email is required"},
		{lenderID: "api-no-config", wantCode: errs.ErrCodeSubmissionConfigRequired, wantMsg: "submission config is required"},
		{lenderID: "sheet-no-id", wantCode: errs.ErrCodeSpreadsheetConfigInvalid, wantMsg: "spreadsheetId is required"},
		{lenderID: "sheet-no-map", wantCode: errs.ErrCodeSpreadsheetConfigInvalid, wantMsg: "columnMapVersion is required"},
		{lenderID: "sheet-bad-map", wantCode: errs.ErrCodeSpreadsheetConfigInvalid, wantMsg: "unknown column map version"},
		{lenderID: "sheet-nil-conf", wantCode: errs.ErrCodeSubmissionConfigRequired, wantMsg: "submission config is required"},
		{lenderID: " ", wantCode: errs.ErrCodeInvalidSubmissionInput, wantMsg: "lenderId is required"},
	}

	for _, tt := range tests {
		t.Run(tt.lenderID, func(t *testing.T) {
			p, err := resolver.Resolve(context.Background(), tt.lenderID)

			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, tt.wantCode), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var stdErr *errs.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestResolver_Resolve_LookupFailureIsRetryable(t *testing.T) {
	resolver := NewResolver(&countingStore{err: errors.New("connection reset")}, nil, nil)

	_, err := resolver.Resolve(context.Background(), "lender-1")

	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.ErrCodeLenderLookupFailed))
	var stdErr *errs.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.True(t, stdErr.Retryable)
}

func TestResolver_Resolve_ThroughPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(lenderQueryPattern).
		WithArgs("lender-7").
		WillReturnRows(sqlmock.NewRows(lenderColumns).
			AddRow("Sheet Bank", "google_sheet", nil, []byte(`{"columnMapVersion":"v1"}`)))

	resolver := NewResolver(NewPostgresStore(db), columnmap.NewDefaultRegistry(), logger.NewTestLogger(t))
	_, err = resolver.Resolve(context.Background(), "lender-7")

	assert.True(t, errs.HasCode(err, errs.ErrCodeSpreadsheetConfigInvalid))
	assert.Contains(t, err.Error(), "spreadsheetId is required")
	assert.NoError(t, mock.ExpectationsWereMet())
}
