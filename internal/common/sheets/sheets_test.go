// internal/common/sheets/sheets_test.go
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

type codedError struct{ code int }

func (e codedError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e codedError) StatusCode() int { return e.code }

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: fmt.Errorf("boom")},
		{name: "googleapi error", err: &googleapi.Error{Code: http.StatusTooManyRequests}, wantCode: 429, wantOK: true},
		{name: "wrapped googleapi error", err: fmt.Errorf("append: %w", &googleapi.Error{Code: 503}), wantCode: 503, wantOK: true},
		{name: "token endpoint error", err: &oauth2.RetrieveError{Response: &http.Response{StatusCode: 401}}, wantCode: 401, wantOK: true},
		{name: "status code method", err: codedError{code: 502}, wantCode: 502, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := StatusCode(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "", 1: "A", 2: "B", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range cases {
		assert.Equal(t, want, ColumnLetter(n), "column %d", n)
	}
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "'Ledger'", QuoteSheetName("Ledger"))
	assert.Equal(t, "'Bob''s Sheet'", QuoteSheetName("Bob's Sheet"))
}

func TestRowFromUpdatedRange(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"'Ledger'!A7:J7", 7, true},
		{"Sheet1!A12", 12, true},
		{"'Tab!Odd'!$A$3:$C$3", 3, true},
		{"A1:B1", 1, true},
		{"", 0, false},
		{"'Ledger'!A:J", 0, false},
	}

	for _, tt := range tests {
		row, ok := RowFromUpdatedRange(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, row, tt.in)
	}
}

func TestGoogleConnector_MissingCredentials(t *testing.T) {
	_, err := NewGoogleConnector(Credentials{ClientEmail: "svc@example.iam.gserviceaccount.com"}).Connect(context.Background())
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewGoogleConnector(Credentials{PrivateKey: "key"}).Connect(context.Background())
	require.ErrorIs(t, err, ErrMissingCredentials)
}
