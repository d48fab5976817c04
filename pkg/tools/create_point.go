package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/geometry"
)

// CreatePointTool creates a free point
type CreatePointTool struct{}

func NewCreatePointTool() *CreatePointTool {
	return &CreatePointTool{}
}

func (t *CreatePointTool) Name() string {
	return "geogebra_create_point"
}

func (t *CreatePointTool) Description() string {
	return "Create a point at the given coordinates, e.g. A = (1, 2)"
}

func (t *CreatePointTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name", "x", "y"}, map[string]*jsonschema.Schema{
		"name": nameProperty("Name of the point, starting with a letter (e.g. 'A')"),
		"x":    numberProperty("X coordinate"),
		"y":    numberProperty("Y coordinate"),
	})
}

func (t *CreatePointTool) Parse(arguments map[string]interface{}) (geometry.Construction, error) {
	point, err := geometry.ParsePoint(arguments)
	if err != nil {
		return nil, err
	}
	return point, nil
}
