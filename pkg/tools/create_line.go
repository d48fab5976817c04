package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/geometry"
)

// CreateLineTool creates a line through two points or from an equation.
// Points take precedence over an equation.
type CreateLineTool struct{}

func NewCreateLineTool() *CreateLineTool {
	return &CreateLineTool{}
}

func (t *CreateLineTool) Name() string {
	return "geogebra_create_line"
}

func (t *CreateLineTool) Description() string {
	return "Create a line through two existing points, or from an equation such as 'y = 2x + 3'. " +
		"If point1 or point2 is given, both are required and the equation is ignored."
}

func (t *CreateLineTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name"}, map[string]*jsonschema.Schema{
		"name":   nameProperty("Name of the line"),
		"point1": referenceProperty("First point on the line"),
		"point2": referenceProperty("Second point on the line"),
		"equation": {
			Type:        "string",
			Description: "Equation of the line, e.g. 'y = 2x + 3' or '2x + 3y = 6'",
		},
	})
}

func (t *CreateLineTool) Parse(arguments map[string]interface{}) (geometry.Construction, error) {
	return geometry.ParseLine(arguments)
}
