// internal/submission/fake_sheets_test.go
package submission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"lender-submission-workers/internal/common/sheets"
)

// fakeSheets is an in-memory spreadsheet: one grid per tab, addressed with the
// handful of A1 shapes the ledger adapter issues.
type fakeSheets struct {
	mu         sync.Mutex
	tabs       []string
	grids      map[string][][]interface{}
	appends    int
	connectErr error
	titlesErr  error
	getErr     error
	appendErr  error
}

func newFakeSheets(tab string, rows ...[]interface{}) *fakeSheets {
	return &fakeSheets{
		tabs:  []string{tab},
		grids: map[string][][]interface{}{tab: rows},
	}
}

func (f *fakeSheets) Connect(context.Context) (sheets.Service, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f, nil
}

func (f *fakeSheets) SheetTitles(context.Context, string) ([]string, error) {
	if f.titlesErr != nil {
		return nil, f.titlesErr
	}
	return append([]string(nil), f.tabs...), nil
}

func (f *fakeSheets) GetValues(_ context.Context, _ string, a1Range string) ([][]interface{}, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tab, ref := splitRange(a1Range)
	grid := f.grids[tab]

	if ref == "1:1" {
		if len(grid) == 0 {
			return nil, nil
		}
		return [][]interface{}{grid[0]}, nil
	}

	// Single column, e.g. "A:A".
	col := columnIndex(strings.SplitN(ref, ":", 2)[0])
	out := make([][]interface{}, len(grid))
	for i, row := range grid {
		if col < len(row) {
			out[i] = []interface{}{row[col]}
		} else {
			out[i] = []interface{}{}
		}
	}
	return out, nil
}

func (f *fakeSheets) AppendRow(_ context.Context, _ string, a1Range string, row []interface{}) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tab, _ := splitRange(a1Range)
	f.grids[tab] = append(f.grids[tab], row)
	f.appends++
	n := len(f.grids[tab])
	last := sheets.ColumnLetter(len(row))
	return fmt.Sprintf("%s!A%d:%s%d", sheets.QuoteSheetName(tab), n, last, n), nil
}

func (f *fakeSheets) rowCount(tab string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grids[tab])
}

func splitRange(a1Range string) (string, string) {
	idx := strings.LastIndex(a1Range, "!")
	tab := strings.Trim(a1Range[:idx], "'")
	return strings.ReplaceAll(tab, "''", "'"), a1Range[idx+1:]
}

func columnIndex(letters string) int {
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			break
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// statusError mimics an HTTP-coded API error.
type statusError struct {
	code int
}

func (e statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusError) StatusCode() int { return e.code }
