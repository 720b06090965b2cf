// internal/common/sheets/sheets.go

// Package sheets wraps the Google Sheets API behind the three calls the ledger
// channel needs, so adapters can be tested against an in-memory fake.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrMissingCredentials is returned when no service account is configured.
var ErrMissingCredentials = errors.New("google sheets credentials are not configured")

// Service is the subset of spreadsheet operations used for ledger delivery.
type Service interface {
	// SheetTitles lists tab titles in spreadsheet order.
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	// GetValues reads an A1 range; missing trailing rows/cells are omitted.
	GetValues(ctx context.Context, spreadsheetID, a1Range string) ([][]interface{}, error)
	// AppendRow appends one row after the table found in a1Range and returns the
	// range the service reports as updated.
	AppendRow(ctx context.Context, spreadsheetID, a1Range string, row []interface{}) (string, error)
}

// Connector authenticates and returns a ready Service.
type Connector interface {
	Connect(ctx context.Context) (Service, error)
}

// Credentials is a service-account identity.
type Credentials struct {
	ClientEmail string
	PrivateKey  string
	TokenURI    string
}

// GoogleConnector builds API clients from a service account.
type GoogleConnector struct {
	creds Credentials
	opts  []option.ClientOption
}

func NewGoogleConnector(creds Credentials, opts ...option.ClientOption) *GoogleConnector {
	return &GoogleConnector{creds: creds, opts: opts}
}

func (c *GoogleConnector) Connect(ctx context.Context) (Service, error) {
	if strings.TrimSpace(c.creds.ClientEmail) == "" || strings.TrimSpace(c.creds.PrivateKey) == "" {
		return nil, ErrMissingCredentials
	}

	jwtCfg := &jwt.Config{
		Email:      c.creds.ClientEmail,
		PrivateKey: []byte(c.creds.PrivateKey),
		TokenURL:   c.creds.TokenURI,
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
	}
	if jwtCfg.TokenURL == "" {
		jwtCfg.TokenURL = "https://oauth2.googleapis.com/token"
	}

	opts := append([]option.ClientOption{option.WithTokenSource(jwtCfg.TokenSource(ctx))}, c.opts...)
	srv, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &googleService{srv: srv}, nil
}

type googleService struct {
	srv *sheetsapi.Service
}

func (g *googleService) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := g.srv.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet == nil || sheet.Properties == nil {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
	}
	return titles, nil
}

func (g *googleService) GetValues(ctx context.Context, spreadsheetID, a1Range string) ([][]interface{}, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(spreadsheetID, a1Range).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleService) AppendRow(ctx context.Context, spreadsheetID, a1Range string, row []interface{}) (string, error) {
	resp, err := g.srv.Spreadsheets.Values.Append(spreadsheetID, a1Range, &sheetsapi.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

// StatusCode extracts an HTTP status from errors returned by the Sheets API,
// the OAuth token endpoint, AWS SDK response errors, or anything exposing
// StatusCode() int.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return apiErr.Code, true
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return tokenErr.Response.StatusCode, true
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) && coded.StatusCode() > 0 {
		return coded.StatusCode(), true
	}

	// AWS SDK response errors.
	var awsCoded interface{ HTTPStatusCode() int }
	if errors.As(err, &awsCoded) && awsCoded.HTTPStatusCode() > 0 {
		return awsCoded.HTTPStatusCode(), true
	}

	return 0, false
}

// ColumnLetter converts a 1-based column number to A1 letters (1 -> A, 27 -> AA).
func ColumnLetter(n int) string {
	if n <= 0 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// QuoteSheetName quotes a tab title for use in A1 notation.
func QuoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// RowFromUpdatedRange extracts the first row number of an A1 range such as
// "'Ledger'!A7:J7".
func RowFromUpdatedRange(updatedRange string) (int, bool) {
	ref := updatedRange
	if idx := strings.LastIndex(ref, "!"); idx >= 0 {
		ref = ref[idx+1:]
	}
	if idx := strings.Index(ref, ":"); idx >= 0 {
		ref = ref[:idx]
	}

	digits := strings.TrimLeftFunc(ref, func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '$'
	})
	if digits == "" {
		return 0, false
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
