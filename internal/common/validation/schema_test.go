// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["lenderId", "payload"],
  "properties": {
    "lenderId": {"type": "string", "minLength": 1},
    "attempt": {"type": "integer", "minimum": 0},
    "payload": {
      "type": "object",
      "required": ["application"],
      "properties": {
        "application": {"type": "object", "required": ["id"]}
      }
    }
  }
}`

func TestSchema_ValidateJSON(t *testing.T) {
	s := MustCompile(testSchema)

	res, err := s.ValidateJSON(`{"lenderId":"l-1","attempt":0,"payload":{"application":{"id":"a"}}}`)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)

	res, err = s.ValidateJSON(`{"lenderId":"","attempt":-1,"payload":{"application":{}}}`)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	fields := map[string]bool{}
	for _, e := range res.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["lenderId"])
	assert.True(t, fields["attempt"])
	assert.Len(t, res.GetErrorMessages(), len(res.Errors))
}

func TestSchema_RequiredCode(t *testing.T) {
	res, err := MustCompile(testSchema).ValidateJSON(`{"lenderId":"l-1"}`)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "REQUIRED", res.Errors[0].Code)
}

func TestSchema_MalformedDocument(t *testing.T) {
	_, err := MustCompile(testSchema).ValidateJSON(`{not json`)
	assert.Error(t, err)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 5}`)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	s := MustCompile(testSchema)
	Register("test-task", s)

	got, ok := ForTask("test-task")
	assert.True(t, ok)
	assert.Same(t, s, got)

	_, ok = ForTask("unknown")
	assert.False(t, ok)
}
