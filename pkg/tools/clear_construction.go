package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/engine"
)

// ClearConstructionTool starts a new, empty construction
type ClearConstructionTool struct {
	engine engine.Engine
}

func NewClearConstructionTool(eng engine.Engine) *ClearConstructionTool {
	return &ClearConstructionTool{engine: eng}
}

func (t *ClearConstructionTool) Name() string {
	return "geogebra_clear_construction"
}

func (t *ClearConstructionTool) Description() string {
	return "Delete all objects and reset the graphics view"
}

func (t *ClearConstructionTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{})
}

func (t *ClearConstructionTool) Validate(map[string]interface{}) error {
	return nil
}

func (t *ClearConstructionTool) Execute(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	if err := t.engine.NewConstruction(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"cleared": true}, nil
}
