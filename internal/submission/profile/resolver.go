// internal/submission/profile/resolver.go
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	errs "lender-submission-workers/internal/common/errors"
	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/submission"
	"lender-submission-workers/internal/submission/columnmap"
)

// Resolver turns a lender id into a submit-ready profile, failing fast on any
// configuration problem. It never returns a partial profile.
type Resolver struct {
	store      Store
	columnMaps *columnmap.Registry
	logger     logger.Logger
}

// NewResolver builds a Resolver. A nil columnMaps skips the registered-version
// check for spreadsheet lenders.
func NewResolver(store Store, columnMaps *columnmap.Registry, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Resolver{store: store, columnMaps: columnMaps, logger: log}
}

// Resolve returns a *errs.StandardError on every failure. Only lookup failures
// are retryable.
func (r *Resolver) Resolve(ctx context.Context, lenderID string) (*submission.SubmissionProfile, error) {
	lenderID = strings.TrimSpace(lenderID)
	if lenderID == "" {
		return nil, errs.NewInvalidSubmissionInputError("lenderId is required")
	}

	rec, err := r.store.GetLender(ctx, lenderID)
	if err != nil {
		if errors.Is(err, ErrLenderNotFound) {
			return nil, errs.NewLenderNotFoundError(lenderID)
		}
		r.logger.WithError(err).Error("Lender lookup failed", map[string]interface{}{
			"lenderId": lenderID,
		})
		return nil, errs.NewLenderLookupFailedError(lenderID, err)
	}

	profile := &submission.SubmissionProfile{
		LenderID:   lenderID,
		LenderName: rec.Name,
		Method:     submission.NormalizeMethod(rec.SubmissionMethod),
	}

	switch profile.Method {
	case submission.MethodEmail:
		email := strings.TrimSpace(rec.SubmissionEmail)
		if email == "" {
			return nil, errs.NewSubmissionEmailRequiredError(lenderID)
		}
		profile.SubmissionEmail = email

	case submission.MethodAPI:
		if !rec.HasConfig() {
			return nil, errs.NewSubmissionConfigRequiredError(lenderID)
		}
		profile.SubmissionConfig = rec.SubmissionConfig

	case submission.MethodGoogleSheet:
		if err := r.validateSpreadsheet(lenderID, rec); err != nil {
			return nil, err
		}
		profile.SubmissionConfig = rec.SubmissionConfig
	}

	r.logger.Debug("Resolved submission profile", map[string]interface{}{
		"lenderId": lenderID,
		"method":   string(profile.Method),
	})
	return profile, nil
}

func (r *Resolver) validateSpreadsheet(lenderID string, rec *LenderRecord) error {
	if !rec.HasConfig() {
		return errs.NewSubmissionConfigRequiredError(lenderID)
	}

	cfg, err := submission.ParseSpreadsheetConfig(rec.SubmissionConfig)
	if err != nil {
		return errs.NewSpreadsheetConfigInvalidError(lenderID, err)
	}

	if r.columnMaps != nil {
		if _, ok := r.columnMaps.Get(cfg.ColumnMapVersion); !ok {
			return errs.NewSpreadsheetConfigInvalidError(lenderID,
				fmt.Errorf("unknown column map version %q", cfg.ColumnMapVersion))
		}
	}
	return nil
}
