// internal/market/schema.go
package market

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// proposalsSchema validates the proposal list payload before decoding. A
// payload that fails validation is treated as a fetch failure, which aborts
// the whole polling cycle.
const proposalsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"instance_id": {"type": "string"},
			"status": {"type": "string"},
			"creation_date": {"type": "string"}
		},
		"required": ["instance_id", "status", "creation_date"]
	}
}`

var proposalsSchemaLoader = gojsonschema.NewStringLoader(proposalsSchema)

func validateProposalsPayload(body []byte) error {
	result, err := gojsonschema.Validate(proposalsSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("proposals schema validation: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("proposals payload invalid: %v", result.Errors())
	}
	return nil
}
