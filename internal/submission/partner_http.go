// internal/submission/partner_http.go
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	httpclient "lender-submission-workers/internal/common/http"
	"lender-submission-workers/internal/common/logger"
)

// HTTPPartnerAdapter posts the payload to a lender's live endpoint. The
// application id is sent as the idempotency key so a replayed attempt can be
// recognized on the partner side.
type HTTPPartnerAdapter struct {
	client   *resty.Client
	lenderID string
	attempt  int
	config   PartnerConfig
	logger   logger.Logger
}

type partnerReply struct {
	Reference string `json:"reference"`
}

func NewHTTPPartnerAdapter(client *resty.Client, lenderID string, attempt int, cfg PartnerConfig, log logger.Logger) (*HTTPPartnerAdapter, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("partner endpoint is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &HTTPPartnerAdapter{
		client:   client,
		lenderID: lenderID,
		attempt:  attempt,
		config:   cfg,
		logger:   log,
	}, nil
}

func (a *HTTPPartnerAdapter) Submit(ctx context.Context, payload *SubmissionPayload) SubmissionResult {
	return guard(ReasonPartnerAPIError, func() SubmissionResult {
		return a.post(ctx, payload)
	})
}

func (a *HTTPPartnerAdapter) post(ctx context.Context, payload *SubmissionPayload) SubmissionResult {
	log := a.logger.WithFields(map[string]interface{}{
		"applicationId": payload.Application.ID,
		"lenderId":      a.lenderID,
		"attempt":       a.attempt,
	})

	req := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", payload.Application.ID).
		SetHeader("X-Submission-Attempt", strconv.Itoa(a.attempt)).
		SetBody(payload)
	for k, v := range a.config.Headers {
		req.SetHeader(k, v)
	}

	resp, err := req.Post(a.config.Endpoint)
	if err != nil {
		retryable := !errors.Is(err, context.Canceled)
		log.WithError(err).Error("Partner request failed", map[string]interface{}{
			"retryable": retryable,
		})
		return failed(ReasonPartnerAPIError, retryable, Response{
			Status:     StatusError,
			Detail:     err.Error(),
			ReceivedAt: now(),
		})
	}

	status := resp.StatusCode()
	body := strings.TrimSpace(resp.String())

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		ref := partnerReference(resp)
		log.Info("Partner accepted submission", map[string]interface{}{
			"statusCode": status,
			"reference":  ref,
		})
		return succeeded(Response{
			Status:            StatusAccepted,
			ReceivedAt:        now(),
			ExternalReference: ref,
		})
	}

	retryable := httpclient.IsTransientStatus(status)
	detail := fmt.Sprintf("partner returned status %d", status)
	if body != "" {
		detail = fmt.Sprintf("%s: %s", detail, body)
	}
	log.Error("Partner rejected submission", map[string]interface{}{
		"statusCode": status,
		"retryable":  retryable,
	})
	return failed(ReasonPartnerAPIError, retryable, Response{
		Status:     StatusError,
		Detail:     detail,
		ReceivedAt: now(),
	})
}

func partnerReference(resp *resty.Response) string {
	for _, key := range []string{"X-Request-ID", "X-Correlation-ID"} {
		if v := strings.TrimSpace(resp.Header().Get(key)); v != "" {
			return v
		}
	}

	var reply partnerReply
	if err := json.Unmarshal(resp.Body(), &reply); err == nil {
		return strings.TrimSpace(reply.Reference)
	}
	return ""
}
