// internal/submission/fieldpath/fieldpath_test.go
package fieldpath

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTree() map[string]interface{} {
	return map[string]interface{}{
		"application": map[string]interface{}{
			"id":              "app-123",
			"requestedAmount": 250000.0,
			"metadata": map[string]interface{}{
				"forceFailure": true,
				"tags":         []interface{}{"sba", "rush"},
			},
			"lenderProductId": nil,
		},
		"documents": []interface{}{
			map[string]interface{}{"title": "Bank Statement"},
			map[string]interface{}{"title": "Tax Return", "version": 2.0},
		},
	}
}

func TestResolve(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		name   string
		path   string
		want   interface{}
		wantOK bool
	}{
		{name: "top level map", path: "application.id", want: "app-123", wantOK: true},
		{name: "number", path: "application.requestedAmount", want: 250000.0, wantOK: true},
		{name: "nested map", path: "application.metadata.forceFailure", want: true, wantOK: true},
		{name: "array index", path: "documents.1.title", want: "Tax Return", wantOK: true},
		{name: "nested array index", path: "application.metadata.tags.0", want: "sba", wantOK: true},
		{name: "explicit null", path: "application.lenderProductId", want: nil, wantOK: true},
		{name: "missing key", path: "application.ownerId", wantOK: false},
		{name: "index out of range", path: "documents.5.title", wantOK: false},
		{name: "negative index", path: "documents.-1.title", wantOK: false},
		{name: "non numeric index", path: "documents.first.title", wantOK: false},
		{name: "through scalar", path: "application.id.length", wantOK: false},
		{name: "empty segment", path: "application..id", wantOK: false},
		{name: "empty path", path: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tree, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		ok   bool
		want interface{}
	}{
		{name: "unresolved", v: "ignored", ok: false, want: ""},
		{name: "nil", v: nil, ok: true, want: ""},
		{name: "string", v: "Acme LLC", ok: true, want: "Acme LLC"},
		{name: "finite float", v: 1250.5, ok: true, want: 1250.5},
		{name: "int", v: 42, ok: true, want: 42},
		{name: "json number", v: json.Number("99.5"), ok: true, want: 99.5},
		{name: "nan", v: math.NaN(), ok: true, want: "NaN"},
		{name: "inf", v: math.Inf(1), ok: true, want: "+Inf"},
		{name: "bool", v: true, ok: true, want: "true"},
		{name: "map", v: map[string]interface{}{"a": 1.0}, ok: true, want: `{"a":1}`},
		{name: "slice", v: []interface{}{"x", "y"}, ok: true, want: `["x","y"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellValue(tt.v, tt.ok))
		})
	}
}
