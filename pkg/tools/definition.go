package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/geometry"
	"mcp-geogebra-service/pkg/validation"
)

// Tool represents an operation exposed via MCP
type Tool interface {
	// Name returns the unique identifier for the tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// InputSchema returns JSON schema for tool parameters
	InputSchema() *jsonschema.Schema
}

// ConstructionTool turns its arguments into exactly one engine command.
// Parse performs the semantic validation and returns the typed construction;
// the executor synthesizes and dispatches the command.
type ConstructionTool interface {
	Tool
	Parse(arguments map[string]interface{}) (geometry.Construction, error)
}

// EngineTool works against the wider engine surface rather than a single
// command
type EngineTool interface {
	Tool
	Validate(arguments map[string]interface{}) error
	Execute(ctx context.Context, arguments map[string]interface{}) (map[string]interface{}, error)
}

// NewToolDefinition creates the MCP definition of a tool
func NewToolDefinition(tool Tool) models.MCPTool {
	return models.MCPTool{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: tool.InputSchema(),
	}
}

func objectSchema(required []string, properties map[string]*jsonschema.Schema) *jsonschema.Schema {
	if required == nil {
		required = []string{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func nameProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
		Pattern:     validation.NamePattern,
	}
}

// referenceProperty names an existing object. The name syntax is checked by
// the semantic validators only for the fields of the selected mode.
func referenceProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
	}
}

func numberProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Description: description,
	}
}

func ptr[T any](v T) *T {
	return &v
}
