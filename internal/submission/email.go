// internal/submission/email.go
package submission

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lender-submission-workers/internal/common/logger"
)

const emailStubReference = "email_stub"

// MailRelay sends a plain-text message and returns the relay's message id.
type MailRelay interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// EmailAdapter hands the submission to a mail relay. Without a relay it only
// acknowledges the target, which is the behavior callers rely on in tests and
// in environments where dispatch happens elsewhere.
type EmailAdapter struct {
	to     string
	relay  MailRelay
	logger logger.Logger
}

func NewEmailAdapter(to string, relay MailRelay, log logger.Logger) *EmailAdapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &EmailAdapter{to: to, relay: relay, logger: log}
}

func (a *EmailAdapter) Submit(ctx context.Context, payload *SubmissionPayload) SubmissionResult {
	return guard(ReasonEmailRelayError, func() SubmissionResult {
		if a.relay == nil {
			return succeeded(Response{
				Status:            StatusAccepted,
				Detail:            "accepted for delivery to " + a.to,
				ReceivedAt:        now(),
				ExternalReference: emailStubReference,
			})
		}
		return a.deliver(ctx, payload)
	})
}

func (a *EmailAdapter) deliver(ctx context.Context, payload *SubmissionPayload) SubmissionResult {
	subject := fmt.Sprintf("Loan application %s", payload.Application.ID)
	messageID, err := a.relay.Send(ctx, a.to, subject, renderEmailBody(payload))
	if err != nil {
		retryable := classify(err)
		a.logger.WithError(err).Error("Email relay failed", map[string]interface{}{
			"applicationId": payload.Application.ID,
			"to":            a.to,
			"retryable":     retryable,
		})
		return failed(ReasonEmailRelayError, retryable, Response{
			Status:     StatusFailed,
			Detail:     err.Error(),
			ReceivedAt: now(),
		})
	}

	a.logger.Info("Submission emailed", map[string]interface{}{
		"applicationId": payload.Application.ID,
		"to":            a.to,
		"messageId":     messageID,
	})
	return succeeded(Response{
		Status:            StatusAccepted,
		Detail:            "accepted for delivery to " + a.to,
		ReceivedAt:        now(),
		ExternalReference: messageID,
	})
}

func renderEmailBody(payload *SubmissionPayload) string {
	app := payload.Application

	var b strings.Builder
	fmt.Fprintf(&b, "Application: %s\n", app.ID)
	fmt.Fprintf(&b, "Applicant: %s\n", app.Name)
	if app.ProductType != "" {
		fmt.Fprintf(&b, "Product type: %s\n", app.ProductType)
	}
	if app.LenderProductID != "" {
		fmt.Fprintf(&b, "Lender product: %s\n", app.LenderProductID)
	}
	if app.RequestedAmount != nil {
		fmt.Fprintf(&b, "Requested amount: %s\n", strconv.FormatFloat(*app.RequestedAmount, 'f', 2, 64))
	}
	if !payload.SubmittedAt.IsZero() {
		fmt.Fprintf(&b, "Submitted at: %s\n", payload.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	if len(payload.Documents) > 0 {
		b.WriteString("\nDocuments:\n")
		for _, doc := range payload.Documents {
			fmt.Fprintf(&b, "- %s (%s, v%d)\n", doc.Title, doc.DocumentType, doc.Version)
		}
	}
	return b.String()
}
