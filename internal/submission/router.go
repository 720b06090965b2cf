// internal/submission/router.go
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/common/sheets"
	"lender-submission-workers/internal/submission/columnmap"
)

// ErrUnsupportedMethod is returned by NewRouter for a method outside the three
// known channels.
var ErrUnsupportedMethod = errors.New("unsupported submission method")

// RouterParams binds one delivery attempt.
type RouterParams struct {
	Profile SubmissionProfile
	Payload *SubmissionPayload
	// Attempt is zero-based.
	Attempt int
}

// Dependencies are the process-wide collaborators adapters draw from. Nil
// members disable the matching integration.
type Dependencies struct {
	Sheets     sheets.Connector
	ColumnMaps *columnmap.Registry
	MailRelay  MailRelay
	HTTPClient *resty.Client
	Logger     logger.Logger
}

// Router picks the adapter once, at construction, and delegates to it.
type Router struct {
	method  Method
	payload *SubmissionPayload
	adapter Adapter
}

func NewRouter(params RouterParams, deps Dependencies) (*Router, error) {
	if params.Payload == nil {
		return nil, fmt.Errorf("submission payload is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	profile := params.Profile
	log = log.WithFields(map[string]interface{}{
		"lenderId": profile.LenderID,
		"method":   string(profile.Method),
	})

	var adapter Adapter
	switch profile.Method {
	case MethodGoogleSheet:
		cfg, err := ParseSpreadsheetConfig(profile.SubmissionConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid google sheet submission config: %w", err)
		}
		adapter = NewLedgerAdapter(deps.Sheets, deps.ColumnMaps, cfg, log)

	case MethodEmail:
		to := strings.TrimSpace(profile.SubmissionEmail)
		if to == "" {
			return nil, fmt.Errorf("submission email is required")
		}
		adapter = NewEmailAdapter(to, deps.MailRelay, log)

	case MethodAPI:
		adapter = partnerAdapter(profile, params.Attempt, deps.HTTPClient, log)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, profile.Method)
	}

	return &Router{method: profile.Method, payload: params.Payload, adapter: adapter}, nil
}

// partnerAdapter uses the live HTTP integration when the lender config names an
// endpoint and a client is available, and the simulated adapter otherwise.
func partnerAdapter(profile SubmissionProfile, attempt int, client *resty.Client, log logger.Logger) Adapter {
	if client != nil {
		if cfg, err := ParsePartnerConfig(profile.SubmissionConfig); err == nil && cfg.Endpoint != "" {
			if a, err := NewHTTPPartnerAdapter(client, profile.LenderID, attempt, cfg, log); err == nil {
				return a
			}
		}
	}
	return NewPartnerAPIAdapter(profile.LenderID, attempt, log)
}

func (r *Router) Method() Method { return r.method }

func (r *Router) Submit(ctx context.Context) SubmissionResult {
	return r.adapter.Submit(ctx, r.payload)
}
