// internal/submission/ledger.go
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/common/sheets"
	"lender-submission-workers/internal/submission/columnmap"
	"lender-submission-workers/internal/submission/fieldpath"
)

// LedgerAdapter appends one row per application to a lender-owned spreadsheet.
//
// Duplicate detection is best effort. The identifier scan and the append are
// separate round-trips, so two concurrent submissions of the same application
// can both pass the scan and append two rows. Callers that need strict
// exactly-once delivery must serialize submissions per application id.
type LedgerAdapter struct {
	connector  sheets.Connector
	columnMaps *columnmap.Registry
	config     SpreadsheetConfig
	logger     logger.Logger
}

func NewLedgerAdapter(connector sheets.Connector, columnMaps *columnmap.Registry, cfg SpreadsheetConfig, log logger.Logger) *LedgerAdapter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &LedgerAdapter{
		connector:  connector,
		columnMaps: columnMaps,
		config:     cfg,
		logger:     log,
	}
}

func (a *LedgerAdapter) Submit(ctx context.Context, payload *SubmissionPayload) SubmissionResult {
	return guard(ReasonGoogleSheetError, func() SubmissionResult {
		resp, err := a.submit(ctx, payload)
		if err != nil {
			return a.failure(payload, err)
		}
		return succeeded(resp)
	})
}

func (a *LedgerAdapter) failure(payload *SubmissionPayload, err error) SubmissionResult {
	retryable := classify(err)
	a.logger.WithError(err).Error("Spreadsheet submission failed", map[string]interface{}{
		"applicationId": payload.Application.ID,
		"spreadsheetId": a.config.SpreadsheetID,
		"sheetName":     a.config.SheetName,
		"retryable":     retryable,
	})
	return failed(ReasonGoogleSheetError, retryable, Response{
		Status:     StatusFailed,
		Detail:     err.Error(),
		ReceivedAt: now(),
	})
}

func (a *LedgerAdapter) submit(ctx context.Context, payload *SubmissionPayload) (Response, error) {
	applicationID := strings.TrimSpace(payload.Application.ID)
	if applicationID == "" {
		return Response{}, terminal("application id is required")
	}

	cm, ok := a.lookupColumnMap()
	if !ok {
		return Response{}, terminal("unknown column map version %q", a.config.ColumnMapVersion)
	}

	if a.connector == nil {
		return Response{}, terminal("%s", sheets.ErrMissingCredentials)
	}
	svc, err := a.connector.Connect(ctx)
	if err != nil {
		if errors.Is(err, sheets.ErrMissingCredentials) {
			return Response{}, terminal("%s", err)
		}
		return Response{}, fmt.Errorf("connect: %w", err)
	}

	tab, err := a.resolveTab(ctx, svc)
	if err != nil {
		return Response{}, err
	}
	quoted := sheets.QuoteSheetName(tab)

	headers, err := a.headerRow(ctx, svc, quoted)
	if err != nil {
		return Response{}, err
	}
	if err := checkHeaders(cm, headers); err != nil {
		return Response{}, err
	}

	idColumn, ok := cm.IdentifierColumn()
	if !ok {
		return Response{}, terminal("column map %s has no %s column", cm.Version, columnmap.IdentifierPath)
	}
	idIndex := indexOf(headers, idColumn.Header)
	if idIndex < 0 {
		return Response{}, terminal("identifier header %q not found in sheet", idColumn.Header)
	}

	existing, err := a.findRow(ctx, svc, quoted, idIndex, applicationID)
	if err != nil {
		return Response{}, err
	}
	if existing > 0 {
		a.logger.Info("Application already in sheet", map[string]interface{}{
			"applicationId": applicationID,
			"spreadsheetId": a.config.SpreadsheetID,
			"sheetName":     tab,
			"row":           existing,
		})
		return Response{
			Status:            StatusDuplicate,
			Detail:            "Application already exists in sheet.",
			ReceivedAt:        now(),
			ExternalReference: strconv.Itoa(existing),
		}, nil
	}

	row, err := buildRow(cm, headers, payload)
	if err != nil {
		return Response{}, terminal("%s", err)
	}

	target := fmt.Sprintf("%s!A1:%s1", quoted, sheets.ColumnLetter(len(headers)))
	updatedRange, err := svc.AppendRow(ctx, a.config.SpreadsheetID, target, row)
	if err != nil {
		return Response{}, fmt.Errorf("append row: %w", err)
	}

	ref := updatedRange
	if n, ok := sheets.RowFromUpdatedRange(updatedRange); ok {
		ref = strconv.Itoa(n)
	}

	a.logger.Info("Application appended to sheet", map[string]interface{}{
		"applicationId": applicationID,
		"spreadsheetId": a.config.SpreadsheetID,
		"sheetName":     tab,
		"updatedRange":  updatedRange,
	})
	return Response{
		Status:            StatusAppended,
		ReceivedAt:        now(),
		ExternalReference: ref,
	}, nil
}

func (a *LedgerAdapter) lookupColumnMap() (*columnmap.ColumnMap, bool) {
	if a.columnMaps == nil {
		return nil, false
	}
	return a.columnMaps.Get(a.config.ColumnMapVersion)
}

func (a *LedgerAdapter) resolveTab(ctx context.Context, svc sheets.Service) (string, error) {
	titles, err := svc.SheetTitles(ctx, a.config.SpreadsheetID)
	if err != nil {
		return "", fmt.Errorf("read spreadsheet metadata: %w", err)
	}

	if a.config.SheetName != "" {
		for _, t := range titles {
			if t == a.config.SheetName {
				return t, nil
			}
		}
		return "", terminal("sheet %q not found in spreadsheet", a.config.SheetName)
	}

	if len(titles) == 0 {
		return "", terminal("spreadsheet has no sheets")
	}
	return titles[0], nil
}

func (a *LedgerAdapter) headerRow(ctx context.Context, svc sheets.Service, quotedTab string) ([]string, error) {
	values, err := svc.GetValues(ctx, a.config.SpreadsheetID, quotedTab+"!1:1")
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, terminal("sheet has no header row")
	}

	headers := make([]string, len(values[0]))
	for i, cell := range values[0] {
		headers[i] = cellText(cell)
	}
	return headers, nil
}

// findRow returns the 1-based row holding applicationID in the identifier
// column, or 0 when there is none. Row 1 is the header and is skipped.
func (a *LedgerAdapter) findRow(ctx context.Context, svc sheets.Service, quotedTab string, idIndex int, applicationID string) (int, error) {
	col := sheets.ColumnLetter(idIndex + 1)
	values, err := svc.GetValues(ctx, a.config.SpreadsheetID, fmt.Sprintf("%s!%s:%s", quotedTab, col, col))
	if err != nil {
		return 0, fmt.Errorf("read identifier column: %w", err)
	}

	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if cellText(row[0]) == applicationID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func checkHeaders(cm *columnmap.ColumnMap, headers []string) error {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}

	var missing []string
	for _, h := range cm.Headers() {
		if _, ok := present[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return terminal("mapping does not match sheet headers: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// buildRow lays the payload out over the sheet's header order. Unmapped headers
// get an empty cell.
func buildRow(cm *columnmap.ColumnMap, headers []string, payload *SubmissionPayload) ([]interface{}, error) {
	root, err := payload.AsMap()
	if err != nil {
		return nil, err
	}

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		path, ok := cm.PathFor(h)
		if !ok {
			row[i] = ""
			continue
		}
		row[i] = fieldpath.CellValue(fieldpath.Resolve(root, path))
	}
	return row, nil
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}

// cellText renders a cell the way it reads in the sheet. Unformatted numeric
// cells arrive as float64 and must not print in exponent form.
func cellText(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
