package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/validation"
)

// SetViewTool adjusts the visible region, axes and grid of the graphics view
type SetViewTool struct {
	engine engine.Engine
}

func NewSetViewTool(eng engine.Engine) *SetViewTool {
	return &SetViewTool{engine: eng}
}

func (t *SetViewTool) Name() string {
	return "geogebra_set_view"
}

func (t *SetViewTool) Description() string {
	return "Set the visible coordinate range (xmin, xmax, ymin, ymax, all four together) " +
		"and toggle the axes and grid"
}

func (t *SetViewTool) InputSchema() *jsonschema.Schema {
	return objectSchema(nil, map[string]*jsonschema.Schema{
		"xmin": numberProperty("Left edge of the view"),
		"xmax": numberProperty("Right edge of the view"),
		"ymin": numberProperty("Bottom edge of the view"),
		"ymax": numberProperty("Top edge of the view"),
		"axes": {Type: "boolean", Description: "Show both axes"},
		"grid": {Type: "boolean", Description: "Show the grid"},
	})
}

type viewRequest struct {
	bounds     *[4]float64
	axes, grid *bool
}

func (t *SetViewTool) Validate(arguments map[string]interface{}) error {
	_, err := t.parse(arguments)
	return err
}

// Execute applies the requested changes. When one of them fails the view
// captured beforehand is put back, so a failed call leaves the view as it was.
func (t *SetViewTool) Execute(ctx context.Context, arguments map[string]interface{}) (map[string]interface{}, error) {
	req, err := t.parse(arguments)
	if err != nil {
		return nil, err
	}

	before, err := t.engine.GetState(ctx)
	if err != nil {
		return nil, err
	}

	if err := t.apply(ctx, req); err != nil {
		if restoreErr := t.restore(ctx, before.View); restoreErr != nil {
			return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable,
				"view change failed and the previous view could not be restored: "+restoreErr.Error(), err)
		}
		return nil, err
	}

	state, err := t.engine.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"view": state.View}, nil
}

func (t *SetViewTool) apply(ctx context.Context, req *viewRequest) error {
	if req.bounds != nil {
		b := req.bounds
		if err := t.engine.SetCoordSystem(ctx, b[0], b[1], b[2], b[3]); err != nil {
			return err
		}
	}
	if req.axes != nil {
		if err := t.engine.SetAxesVisible(ctx, *req.axes, *req.axes); err != nil {
			return err
		}
	}
	if req.grid != nil {
		if err := t.engine.SetGridVisible(ctx, *req.grid); err != nil {
			return err
		}
	}
	return nil
}

func (t *SetViewTool) restore(ctx context.Context, view engine.ViewSettings) error {
	if err := t.engine.SetCoordSystem(ctx, view.XMin, view.XMax, view.YMin, view.YMax); err != nil {
		return err
	}
	if err := t.engine.SetAxesVisible(ctx, view.AxesX, view.AxesY); err != nil {
		return err
	}
	return t.engine.SetGridVisible(ctx, view.Grid)
}

func (t *SetViewTool) parse(arguments map[string]interface{}) (*viewRequest, error) {
	req := &viewRequest{}
	fields := []string{"xmin", "xmax", "ymin", "ymax"}

	given := 0
	for _, f := range fields {
		if validation.Present(arguments, f) {
			given++
		}
	}
	if given > 0 {
		var bounds [4]float64
		for i, f := range fields {
			v, err := validation.Number(arguments, f)
			if err != nil {
				return nil, err
			}
			bounds[i] = v
		}
		if !(bounds[0] < bounds[1]) || !(bounds[2] < bounds[3]) {
			return nil, &validation.Error{
				Category: validation.CategoryCoordinates,
				Field:    "xmin,xmax,ymin,ymax",
				Message:  "Invalid coordinates: view bounds require xmin < xmax and ymin < ymax",
			}
		}
		req.bounds = &bounds
	}

	for _, f := range []struct {
		name string
		dst  **bool
	}{{"axes", &req.axes}, {"grid", &req.grid}} {
		if !validation.Present(arguments, f.name) {
			continue
		}
		v, ok := arguments[f.name].(bool)
		if !ok {
			return nil, &validation.Error{
				Category: validation.CategoryGeneric,
				Field:    f.name,
				Message:  "argument " + f.name + " must be a boolean",
			}
		}
		*f.dst = &v
	}

	if req.bounds == nil && req.axes == nil && req.grid == nil {
		return nil, &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  "nothing to change: give view bounds, axes or grid",
		}
	}
	return req, nil
}
