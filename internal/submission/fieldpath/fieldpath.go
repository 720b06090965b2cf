// internal/submission/fieldpath/fieldpath.go

// Package fieldpath resolves dotted paths ("documents.0.title") against a
// decoded JSON tree. Only maps and slices are traversed.
package fieldpath

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Resolve walks root along path. It reports false for an empty path, an empty
// segment, a missing key, an out-of-range or non-numeric index, or a scalar
// intermediate value.
func Resolve(root interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, false
		}

		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// CellValue converts a resolved value into a spreadsheet cell: unresolved or nil
// values become "", finite numbers stay numeric, everything else is text.
func CellValue(v interface{}, ok bool) interface{} {
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return val
	case float32:
		return CellValue(float64(val), true)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil && !math.IsInf(f, 0) {
			return f
		}
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
