package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/validation"
)

// Export formats
const (
	ExportFormatPNG = "png"
	ExportFormatSVG = "svg"
)

// ExportConstructionTool renders the graphics view as PNG or SVG
type ExportConstructionTool struct {
	engine engine.Engine
}

func NewExportConstructionTool(eng engine.Engine) *ExportConstructionTool {
	return &ExportConstructionTool{engine: eng}
}

func (t *ExportConstructionTool) Name() string {
	return "geogebra_export_construction"
}

func (t *ExportConstructionTool) Description() string {
	return "Export the graphics view as a base64 PNG image or as SVG markup. Requires the browser bridge engine."
}

func (t *ExportConstructionTool) InputSchema() *jsonschema.Schema {
	return objectSchema([]string{"format"}, map[string]*jsonschema.Schema{
		"format": {
			Type:        "string",
			Description: "Output format",
			Enum:        []any{ExportFormatPNG, ExportFormatSVG},
		},
		"scale": {
			Type:             "number",
			Description:      "PNG scale factor (default 1)",
			ExclusiveMinimum: ptr(0.0),
		},
	})
}

func (t *ExportConstructionTool) Validate(arguments map[string]interface{}) error {
	_, _, err := t.parse(arguments)
	return err
}

func (t *ExportConstructionTool) Execute(ctx context.Context, arguments map[string]interface{}) (map[string]interface{}, error) {
	format, scale, err := t.parse(arguments)
	if err != nil {
		return nil, err
	}

	var data string
	switch format {
	case ExportFormatPNG:
		data, err = t.engine.ExportPNG(ctx, scale)
	default:
		data, err = t.engine.ExportSVG(ctx)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"format": format, "data": data}, nil
}

func (t *ExportConstructionTool) parse(arguments map[string]interface{}) (string, float64, error) {
	format, err := validation.String(arguments, "format")
	if err != nil {
		return "", 0, err
	}
	if format != ExportFormatPNG && format != ExportFormatSVG {
		return "", 0, &validation.Error{
			Category: validation.CategoryGeneric,
			Field:    "format",
			Message:  "argument format must be \"png\" or \"svg\"",
		}
	}

	scale := 1.0
	if validation.Present(arguments, "scale") {
		if scale, err = validation.Number(arguments, "scale"); err != nil {
			return "", 0, err
		}
		if !(scale > 0) {
			return "", 0, &validation.Error{
				Category: validation.CategoryGeneric,
				Field:    "scale",
				Message:  "argument scale must be greater than zero",
			}
		}
	}
	return format, scale, nil
}
