// internal/workers/submission/lender-submit/validation.go
package lendersubmit

import (
	"strings"

	errs "lender-submission-workers/internal/common/errors"
	"lender-submission-workers/internal/common/validation"
)

const inputSchema = `{
  "type": "object",
  "required": ["lenderId", "payload"],
  "properties": {
    "lenderId": {"type": "string", "minLength": 1},
    "attempt": {"type": "integer", "minimum": 0},
    "payload": {
      "type": "object",
      "required": ["application", "documents", "submittedAt"],
      "properties": {
        "application": {
          "type": "object",
          "required": ["id"],
          "properties": {
            "id": {"type": "string", "minLength": 1},
            "ownerId": {"type": ["string", "null"]},
            "name": {"type": ["string", "null"]},
            "metadata": {"type": ["object", "null"]},
            "productType": {"type": ["string", "null"]},
            "lenderId": {"type": ["string", "null"]},
            "lenderProductId": {"type": ["string", "null"]},
            "requestedAmount": {"type": ["number", "null"]}
          }
        },
        "documents": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "documentId": {"type": "string"},
              "documentType": {"type": "string"},
              "title": {"type": "string"},
              "versionId": {"type": "string"},
              "version": {"type": "integer"},
              "metadata": {"type": ["object", "null"]},
              "content": {"type": ["string", "null"]}
            }
          }
        },
        "submittedAt": {"type": "string", "format": "date-time"}
      }
    }
  }
}`

func init() {
	validation.Register(TaskType, validation.MustCompile(inputSchema))
}

// validateVariables checks raw job variables against the schema registered
// for this task type.
func validateVariables(variables string) error {
	schema, ok := validation.ForTask(TaskType)
	if !ok {
		return errs.NewInvalidSubmissionInputError("no input schema registered for " + TaskType)
	}
	res, err := schema.ValidateJSON(variables)
	if err != nil {
		return errs.NewInvalidSubmissionInputError(err.Error())
	}
	if !res.Valid {
		return errs.NewInvalidSubmissionInputError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}
