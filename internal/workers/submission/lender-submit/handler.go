// internal/workers/submission/lender-submit/handler.go
package lendersubmit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	errs "lender-submission-workers/internal/common/errors"
	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/common/metrics"
	"lender-submission-workers/internal/common/observability"
	"lender-submission-workers/internal/submission"
)

const (
	TaskType = "lender-submit"
)

// ProfileResolver resolves a lender id into a submit-ready profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, lenderID string) (*submission.SubmissionProfile, error)
}

// OutcomePublisher receives one event per delivery attempt.
type OutcomePublisher interface {
	PublishJSON(ctx context.Context, body string, attributes map[string]string) (string, error)
}

type Handler struct {
	config     *Config
	resolver   ProfileResolver
	deps       submission.Dependencies
	publisher  OutcomePublisher
	obs        *observability.Observability
	errHandler *errs.ErrorHandler
	logger     logger.Logger
	newID      func() string
}

// NewHandler wires the worker. publisher and obs may be nil.
func NewHandler(config *Config, resolver ProfileResolver, deps submission.Dependencies, publisher OutcomePublisher, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = &observability.Observability{}
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if deps.Logger == nil {
		deps.Logger = log
	}
	return &Handler{
		config:     config,
		resolver:   resolver,
		deps:       deps,
		publisher:  publisher,
		obs:        obs,
		errHandler: errs.NewErrorHandler(log),
		logger:     log,
		newID:      func() string { return uuid.NewString() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)
	start := time.Now()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := validateVariables(job.Variables); err != nil {
		h.fail(ctx, client, job, err, done, start)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errs.NewInvalidSubmissionInputError(fmt.Sprintf("parse input: %v", err)), done, start)
		return
	}
	if input.Attempt == nil {
		attempt := attemptFromRetries(h.config.MaxRetries, job.Retries)
		input.Attempt = &attempt
	}

	output, err := h.execute(ctx, &input, job.ProcessInstanceKey)
	if err != nil {
		h.fail(ctx, client, job, err, done, start)
		return
	}

	if failure := resultError(output); failure != nil {
		h.fail(ctx, client, job, failure, done, start)
		return
	}

	h.completeJob(context.Background(), client, job, output)
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
	done("")
}

// Execute runs one delivery attempt without touching the job. Tests and tools
// call it directly.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input, 0)
}

func (h *Handler) execute(ctx context.Context, input *Input, processInstanceKey int64) (*Output, error) {
	attempt := 0
	if input.Attempt != nil {
		attempt = *input.Attempt
	}

	ctx, span := h.obs.StartSpan(ctx, "lender-submit",
		attribute.String("lenderId", input.LenderID),
		attribute.String("applicationId", input.Payload.Application.ID),
		attribute.Int("attempt", attempt),
	)
	defer span.End()

	profile, err := h.resolver.Resolve(ctx, input.LenderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile resolution failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("method", string(profile.Method)))

	router, err := submission.NewRouter(submission.RouterParams{
		Profile: *profile,
		Payload: &input.Payload,
		Attempt: attempt,
	}, h.deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "router construction failed")
		return nil, routerError(profile, err)
	}

	started := time.Now()
	result := router.Submit(ctx)
	elapsed := time.Since(started)

	method := string(router.Method())
	metrics.RecordSubmission(method, result.Response.Status, result.Reason(), result.Retryable, elapsed)
	h.obs.RecordSubmission(ctx, method, result.Response.Status, result.Success)
	if !result.Success {
		span.SetStatus(codes.Error, result.Reason())
	}

	output := &Output{
		SubmissionID:  h.newID(),
		Success:       result.Success,
		Response:      result.Response,
		FailureReason: result.FailureReason,
		Retryable:     result.Retryable,
		Method:        method,
	}

	h.logger.Info("submission attempt finished", map[string]interface{}{
		"submissionId":  output.SubmissionID,
		"lenderId":      input.LenderID,
		"applicationId": input.Payload.Application.ID,
		"method":        method,
		"attempt":       attempt,
		"success":       result.Success,
		"status":        result.Response.Status,
		"failureReason": result.Reason(),
		"retryable":     result.Retryable,
		"durationMs":    elapsed.Milliseconds(),
	})

	h.publishOutcome(ctx, input, attempt, processInstanceKey, output)
	return output, nil
}

// routerError maps a construction failure to the matching configuration code.
func routerError(profile *submission.SubmissionProfile, err error) error {
	switch {
	case errors.Is(err, submission.ErrUnsupportedMethod):
		return errs.NewUnsupportedSubmissionMethodError(string(profile.Method))
	case profile.Method == submission.MethodEmail:
		return errs.NewSubmissionEmailRequiredError(profile.LenderID)
	case profile.Method == submission.MethodGoogleSheet:
		return errs.NewSpreadsheetConfigInvalidError(profile.LenderID, err)
	default:
		return errs.NewInvalidSubmissionInputError(err.Error())
	}
}

// resultError turns a failed result into the job error the process expects:
// retryable failures are failed back to the broker, the rest are thrown as
// SUBMISSION_REJECTED. The result travels with the error as variables.
func resultError(output *Output) *errs.StandardError {
	if output.Success {
		return nil
	}

	reason := ""
	if output.FailureReason != nil {
		reason = *output.FailureReason
	}
	stdErr := errs.NewSubmissionFailedError(reason, output.Response.Detail, output.Retryable)
	stdErr.Metadata["submissionId"] = output.SubmissionID
	stdErr.Metadata["method"] = output.Method
	stdErr.Metadata["success"] = false
	stdErr.Metadata["response"] = output.Response
	return stdErr
}

// attemptFromRetries derives a zero-based attempt from the retries the broker
// still grants the job.
func attemptFromRetries(maxRetries int, remaining int32) int {
	attempt := maxRetries - int(remaining)
	if attempt < 0 {
		return 0
	}
	return attempt
}

func (h *Handler) publishOutcome(ctx context.Context, input *Input, attempt int, processInstanceKey int64, output *Output) {
	if h.publisher == nil {
		return
	}

	event := OutcomeEvent{
		EventType:          outcomeEventType,
		SubmissionID:       output.SubmissionID,
		LenderID:           input.LenderID,
		ApplicationID:      input.Payload.Application.ID,
		Method:             output.Method,
		Attempt:            attempt,
		Success:            output.Success,
		Status:             output.Response.Status,
		FailureReason:      output.FailureReason,
		Retryable:          output.Retryable,
		ExternalReference:  output.Response.ExternalReference,
		ProcessInstanceKey: processInstanceKey,
		OccurredAt:         time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode outcome event", map[string]interface{}{"error": err.Error()})
		return
	}

	messageID, err := h.publisher.PublishJSON(ctx, string(body), map[string]string{
		"eventType": outcomeEventType,
		"method":    output.Method,
		"status":    output.Response.Status,
	})
	if err != nil {
		h.logger.Warn("failed to publish outcome event", map[string]interface{}{
			"submissionId": output.SubmissionID,
			"error":        err.Error(),
		})
		return
	}
	h.logger.Debug("outcome event published", map[string]interface{}{
		"submissionId": output.SubmissionID,
		"messageId":    messageID,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, done func(string), start time.Time) {
	code := "INTERNAL_ERROR"
	var stdErr *errs.StandardError
	if errors.As(err, &stdErr) {
		code = string(stdErr.Code)
	}

	// Commands use a fresh context so a job that hit its own deadline can still
	// be failed back to the broker.
	h.errHandler.HandleJobError(context.Background(), client, job, err)
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "failed")
	done(code)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
