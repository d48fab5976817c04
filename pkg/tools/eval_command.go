package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/geometry"
	"mcp-geogebra-service/pkg/validation"
)

// EvalCommandTool passes a single command line to the engine
type EvalCommandTool struct{}

func NewEvalCommandTool() *EvalCommandTool {
	return &EvalCommandTool{}
}

func (t *EvalCommandTool) Name() string {
	return "geogebra_eval_command"
}

func (t *EvalCommandTool) Description() string {
	return "Evaluate one GeoGebra command as written, e.g. 'M = Midpoint(A, B)' or 'Delete(c1)'"
}

func (t *EvalCommandTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"command"}, map[string]*jsonschema.Schema{
		"command": {
			Type:        "string",
			Description: "A single-line GeoGebra command",
			MinLength:   ptr(1),
			MaxLength:   ptr(validation.MaxCommandLength),
		},
	})
}

func (t *EvalCommandTool) Parse(arguments map[string]interface{}) (geometry.Construction, error) {
	raw, err := geometry.ParseRaw(arguments)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
