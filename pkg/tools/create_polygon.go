package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/geometry"
	"mcp-geogebra-service/pkg/validation"
)

// CreatePolygonTool joins existing points into a polygon
type CreatePolygonTool struct{}

func NewCreatePolygonTool() *CreatePolygonTool {
	return &CreatePolygonTool{}
}

func (t *CreatePolygonTool) Name() string {
	return "geogebra_create_polygon"
}

func (t *CreatePolygonTool) Description() string {
	return "Create a polygon from at least 3 existing points, in order"
}

func (t *CreatePolygonTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"name", "vertices"}, map[string]*jsonschema.Schema{
		"name": nameProperty("Name of the polygon"),
		"vertices": {
			Type:        "array",
			Description: "Names of the vertex points in order",
			Items:       nameProperty("Vertex point name"),
			MinItems:    ptr(validation.MinVertices),
		},
	})
}

func (t *CreatePolygonTool) Parse(arguments map[string]interface{}) (geometry.Construction, error) {
	polygon, err := geometry.ParsePolygon(arguments)
	if err != nil {
		return nil, err
	}
	return polygon, nil
}
