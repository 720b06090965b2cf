// internal/workers/submission/lender-submit/handler_test.go
package lendersubmit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	awsclient "lender-submission-workers/internal/common/aws"
	"lender-submission-workers/internal/common/config"
	errs "lender-submission-workers/internal/common/errors"
	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/common/validation"
	"lender-submission-workers/internal/submission"
	"lender-submission-workers/internal/submission/columnmap"
	"lender-submission-workers/internal/submission/profile"
)

// ==========================
// Mock Implementations
// ==========================

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, lenderID string) (*submission.SubmissionProfile, error) {
	args := m.Called(ctx, lenderID)
	profile, _ := args.Get(0).(*submission.SubmissionProfile)
	return profile, args.Error(1)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxRetries: 3}
}

func createTestInput(lenderID string, attempt int) *Input {
	amount := 50000.0
	return &Input{
		LenderID: lenderID,
		Attempt:  &attempt,
		Payload: submission.SubmissionPayload{
			Application: submission.Application{
				ID:              "app-100",
				OwnerID:         "owner-1",
				Name:            "Corner Cafe",
				Metadata:        map[string]interface{}{},
				ProductType:     "line_of_credit",
				LenderID:        lenderID,
				LenderProductID: "prod-9",
				RequestedAmount: &amount,
			},
			Documents:   []submission.Document{{DocumentID: "d1", DocumentType: "tax_return", Title: "2023 Return", VersionID: "v1", Version: 1}},
			SubmittedAt: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func staticResolver(p *submission.SubmissionProfile) *MockResolver {
	m := &MockResolver{}
	m.On("Resolve", mock.Anything, mock.Anything).Return(p, nil)
	return m
}

func createTestHandler(t *testing.T, resolver ProfileResolver, publisher OutcomePublisher) *Handler {
	t.Helper()
	h := NewHandler(createTestConfig(), resolver, submission.Dependencies{ColumnMaps: columnmap.NewDefaultRegistry()}, publisher, nil, logger.NewTestLogger(t))
	h.newID = func() string { return "sub-fixed" }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EmailAccepted(t *testing.T) {
	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID:        "lender-1",
		Method:          submission.MethodEmail,
		SubmissionEmail: "intake@lender.test",
	}), nil)

	output, err := h.Execute(context.Background(), createTestInput("lender-1", 0))

	require.NoError(t, err)
	assert.Equal(t, "sub-fixed", output.SubmissionID)
	assert.True(t, output.Success)
	assert.Equal(t, "email", output.Method)
	assert.Equal(t, submission.StatusAccepted, output.Response.Status)
	assert.Equal(t, "email_stub", output.Response.ExternalReference)
	assert.Nil(t, resultError(output))
}

func TestHandler_Execute_PartnerTimeoutThenSuccess(t *testing.T) {
	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID:         "timeout",
		Method:           submission.MethodAPI,
		SubmissionConfig: json.RawMessage(`{}`),
	}), nil)

	first, err := h.Execute(context.Background(), createTestInput("timeout", 0))
	require.NoError(t, err)
	assert.False(t, first.Success)
	assert.True(t, first.Retryable)
	require.NotNil(t, first.FailureReason)
	assert.Equal(t, submission.ReasonLenderTimeout, *first.FailureReason)

	failure := resultError(first)
	require.NotNil(t, failure)
	assert.Equal(t, errs.ErrCodeSubmissionRetryable, failure.Code)
	bpmnErr := errs.ConvertToBPMNError(failure)
	assert.Equal(t, "SUBMISSION_FAILED", bpmnErr.Code)
	assert.Greater(t, bpmnErr.Retries, 0)
	assert.Equal(t, "lender_timeout", bpmnErr.ToErrorVariables()["failureReason"])

	second, err := h.Execute(context.Background(), createTestInput("timeout", 1))
	require.NoError(t, err)
	assert.True(t, second.Success)
}

func TestHandler_Execute_TerminalFailureIsRejected(t *testing.T) {
	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID:         "lender-1",
		Method:           submission.MethodGoogleSheet,
		SubmissionConfig: json.RawMessage(`{"spreadsheetId":"abc","columnMapVersion":"v1"}`),
	}), nil)

	// No sheets connector is configured, so the ledger reports missing credentials.
	output, err := h.Execute(context.Background(), createTestInput("lender-1", 0))

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.False(t, output.Retryable)
	assert.Equal(t, "google_sheet", output.Method)

	failure := resultError(output)
	require.NotNil(t, failure)
	bpmnErr := errs.ConvertToBPMNError(failure)
	assert.Equal(t, "SUBMISSION_REJECTED", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.Equal(t, "sub-fixed", bpmnErr.ToErrorVariables()["submissionId"])
}

func TestHandler_Execute_ResolverErrorsPropagate(t *testing.T) {
	resolver := &MockResolver{}
	resolver.On("Resolve", mock.Anything, "ghost").Return(nil, errs.NewLenderNotFoundError("ghost"))
	h := createTestHandler(t, resolver, nil)

	output, err := h.Execute(context.Background(), createTestInput("ghost", 0))

	assert.Nil(t, output)
	assert.True(t, errs.HasCode(err, errs.ErrCodeLenderNotFound))
	resolver.AssertExpectations(t)
}

func TestHandler_Execute_UnsupportedMethod(t *testing.T) {
	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID: "lender-1",
		Method:   submission.Method("fax"),
	}), nil)

	_, err := h.Execute(context.Background(), createTestInput("lender-1", 0))

	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.ErrCodeUnsupportedSubmissionMethod))
	bpmnErr := errs.ConvertToBPMNError(err.(*errs.StandardError))
	assert.Equal(t, "LENDER_MISCONFIGURED", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
}

func TestHandler_Execute_PublishesOutcome(t *testing.T) {
	var published *sns.PublishInput
	mockSNS := &MockSNSService{PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		published = params
		id := "sns-1"
		return &sns.PublishOutput{MessageId: &id}, nil
	}}
	publisher := awsclient.NewSNSClientWithAPI(mockSNS, "arn:aws:sns:us-east-1:123456789012:lender-submissions")

	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID:         "lender-1",
		Method:           submission.MethodAPI,
		SubmissionConfig: json.RawMessage(`{}`),
	}), publisher)

	input := createTestInput("lender-1", 0)
	input.Payload.Application.Metadata["forceFailure"] = true
	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, output.Success)

	require.NotNil(t, published)
	var event OutcomeEvent
	require.NoError(t, json.Unmarshal([]byte(*published.Message), &event))
	assert.Equal(t, "lender.submission.outcome", event.EventType)
	assert.Equal(t, "sub-fixed", event.SubmissionID)
	assert.Equal(t, "app-100", event.ApplicationID)
	assert.Equal(t, "api", event.Method)
	assert.Equal(t, submission.StatusError, event.Status)
	require.NotNil(t, event.FailureReason)
	assert.Equal(t, "lender_error", *event.FailureReason)
	assert.True(t, event.Retryable)
	assert.Equal(t, "error", *published.MessageAttributes["status"].StringValue)
}

func TestHandler_Execute_PublishFailureDoesNotFailSubmission(t *testing.T) {
	mockSNS := &MockSNSService{PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
		return nil, errors.New("sns unavailable")
	}}
	h := createTestHandler(t, staticResolver(&submission.SubmissionProfile{
		LenderID:        "lender-1",
		Method:          submission.MethodEmail,
		SubmissionEmail: "intake@lender.test",
	}), awsclient.NewSNSClientWithAPI(mockSNS, "arn:topic"))

	output, err := h.Execute(context.Background(), createTestInput("lender-1", 0))

	require.NoError(t, err)
	assert.True(t, output.Success)
}

func TestHandler_Execute_WithPostgresResolver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT name, submission_method, submission_email, submission_config FROM lenders WHERE id = \$1`).
		WithArgs("lender-5").
		WillReturnRows(sqlmock.NewRows([]string{"name", "submission_method", "submission_email", "submission_config"}).
			AddRow("Mail Lender", "email", "apps@mail-lender.test", nil))

	resolver := profile.NewResolver(profile.NewPostgresStore(db), columnmap.NewDefaultRegistry(), logger.NewTestLogger(t))
	h := createTestHandler(t, resolver, nil)

	output, err := h.Execute(context.Background(), createTestInput("lender-5", 0))

	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Equal(t, "accepted for delivery to apps@mail-lender.test", output.Response.Detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Input Handling Tests
// ==========================

func TestInputSchemaRegistered(t *testing.T) {
	schema, ok := validation.ForTask(TaskType)
	require.True(t, ok)

	res, err := schema.ValidateJSON(`{"lenderId":"lender-1"}`)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestValidateVariables(t *testing.T) {
	valid := `{"lenderId":"lender-1","payload":{"application":{"id":"app-1","requestedAmount":1000},"documents":[],"submittedAt":"2024-05-02T09:30:00Z"}}`
	assert.NoError(t, validateVariables(valid))

	tests := []struct {
		name      string
		variables string
	}{
		{name: "missing lender", variables: `{"payload":{"application":{"id":"a"},"documents":[],"submittedAt":"2024-05-02T09:30:00Z"}}`},
		{name: "negative attempt", variables: `{"lenderId":"l","attempt":-1,"payload":{"application":{"id":"a"},"documents":[],"submittedAt":"2024-05-02T09:30:00Z"}}`},
		{name: "missing application id", variables: `{"lenderId":"l","payload":{"application":{},"documents":[],"submittedAt":"2024-05-02T09:30:00Z"}}`},
		{name: "amount as string", variables: `{"lenderId":"l","payload":{"application":{"id":"a","requestedAmount":"10"},"documents":[],"submittedAt":"2024-05-02T09:30:00Z"}}`},
		{name: "not json", variables: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVariables(tt.variables)
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, errs.ErrCodeInvalidSubmissionInput))
		})
	}
}

func TestAttemptFromRetries(t *testing.T) {
	assert.Equal(t, 0, attemptFromRetries(3, 3))
	assert.Equal(t, 1, attemptFromRetries(3, 2))
	assert.Equal(t, 2, attemptFromRetries(3, 1))
	assert.Equal(t, 0, attemptFromRetries(3, 5))
}

func TestRouterError(t *testing.T) {
	p := &submission.SubmissionProfile{LenderID: "l-1", Method: submission.MethodGoogleSheet}
	err := routerError(p, errors.New("spreadsheetId is required"))
	assert.True(t, errs.HasCode(err, errs.ErrCodeSpreadsheetConfigInvalid))

	p.Method = submission.MethodEmail
	assert.True(t, errs.HasCode(routerError(p, errors.New("x")), errs.ErrCodeSubmissionEmailRequired))
}

func TestFromWorkerConfig(t *testing.T) {
	cfg := FromWorkerConfig(config.WorkerConfig{Timeout: 1500, MaxRetries: 5})

	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRetries)
}
