package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/geometry"
)

// CreateCircleTool creates a circle from a center and radius or through
// three points. Center and radius take precedence when both forms are given.
type CreateCircleTool struct{}

func NewCreateCircleTool() *CreateCircleTool {
	return &CreateCircleTool{}
}

func (t *CreateCircleTool) Name() string {
	return "geogebra_create_circle"
}

func (t *CreateCircleTool) Description() string {
	return "Create a circle either from a center point and radius, or through three existing points. " +
		"If center or radius is given, the center-radius form is used with both required, and point1 to point3 are ignored."
}

func (t *CreateCircleTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name"}, map[string]*jsonschema.Schema{
		"name":   nameProperty("Name of the circle"),
		"center": referenceProperty("Name of an existing center point"),
		"radius": {
			Type:             "number",
			Description:      "Radius, greater than zero",
			ExclusiveMinimum: ptr(0.0),
		},
		"point1": referenceProperty("First point on the circle"),
		"point2": referenceProperty("Second point on the circle"),
		"point3": referenceProperty("Third point on the circle"),
	})
}

func (t *CreateCircleTool) Parse(arguments map[string]interface{}) (geometry.Construction, error) {
	return geometry.ParseCircle(arguments)
}
