package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/validation"
)

// GetObjectsTool lists the objects of the live construction
type GetObjectsTool struct {
	engine engine.Engine
}

func NewGetObjectsTool(eng engine.Engine) *GetObjectsTool {
	return &GetObjectsTool{engine: eng}
}

func (t *GetObjectsTool) Name() string {
	return "geogebra_get_objects"
}

func (t *GetObjectsTool) Description() string {
	return "List the objects in the current construction with their type and definition. " +
		"Optionally restrict the result to the given names."
}

func (t *GetObjectsTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{
		"names": {
			Type:        "array",
			Description: "Only report these objects",
			Items:       nameProperty("Object name"),
		},
	})
}

func (t *GetObjectsTool) Validate(arguments map[string]interface{}) error {
	_, err := t.requestedNames(arguments)
	return err
}

func (t *GetObjectsTool) Execute(ctx context.Context, arguments map[string]interface{}) (map[string]interface{}, error) {
	names, err := t.requestedNames(arguments)
	if err != nil {
		return nil, err
	}
	if names == nil {
		if names, err = t.engine.GetAllObjectNames(ctx); err != nil {
			return nil, err
		}
	}

	objects := make([]*engine.ObjectInfo, 0, len(names))
	for _, name := range names {
		info, err := t.engine.GetObjectInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		objects = append(objects, info)
	}

	return map[string]interface{}{
		"count":   len(objects),
		"objects": objects,
	}, nil
}

func (t *GetObjectsTool) requestedNames(arguments map[string]interface{}) ([]string, error) {
	if !validation.Present(arguments, "names") {
		return nil, nil
	}
	list, ok := arguments["names"].([]interface{})
	if !ok {
		if strs, ok := arguments["names"].([]string); ok {
			list = make([]interface{}, len(strs))
			for i, s := range strs {
				list[i] = s
			}
		} else {
			return nil, &validation.Error{
				Category: validation.CategoryGeneric,
				Field:    "names",
				Message:  "argument names must be an array of object names",
			}
		}
	}

	names := make([]string, 0, len(list))
	for i := range list {
		name, err := validation.Name(map[string]interface{}{"names": list[i]}, "names")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
