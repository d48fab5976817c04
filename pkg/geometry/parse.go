package geometry

import (
	"mcp-geogebra-service/pkg/validation"
)

// ParsePoint validates name, then coordinates
func ParsePoint(args map[string]interface{}) (Point, error) {
	name, err := validation.Name(args, "name")
	if err != nil {
		return Point{}, err
	}
	x, y, err := validation.Coordinates(args)
	if err != nil {
		return Point{}, err
	}
	return Point{Name: name, X: x, Y: y}, nil
}

// ParseCircle selects the construction mode and validates only that mode's
// fields. Supplying center or radius selects center-radius mode, which then
// requires both; three-points mode is used otherwise.
func ParseCircle(args map[string]interface{}) (Construction, error) {
	name, err := validation.Name(args, "name")
	if err != nil {
		return nil, err
	}

	if validation.Present(args, "center") || validation.Present(args, "radius") {
		center, err := validation.Name(args, "center")
		if err != nil {
			return nil, err
		}
		radius, err := validation.Radius(args)
		if err != nil {
			return nil, err
		}
		return CircleByCenterRadius{Name: name, Center: center, Radius: radius}, nil
	}

	if !anyPresent(args, "point1", "point2", "point3") {
		return nil, &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  "circle requires either center and radius or point1, point2 and point3",
		}
	}

	circle := CircleByThreePoints{Name: name}
	for i, field := range []string{"point1", "point2", "point3"} {
		if circle.Points[i], err = validation.Name(args, field); err != nil {
			return nil, err
		}
	}
	return circle, nil
}

// ParsePolygon validates name, then the vertex list
func ParsePolygon(args map[string]interface{}) (Polygon, error) {
	name, err := validation.Name(args, "name")
	if err != nil {
		return Polygon{}, err
	}
	vertices, err := validation.Vertices(args)
	if err != nil {
		return Polygon{}, err
	}
	return Polygon{Name: name, Vertices: vertices}, nil
}

// ParseLine selects two-point mode when point1 or point2 is supplied and
// equation mode otherwise
func ParseLine(args map[string]interface{}) (Construction, error) {
	name, err := validation.Name(args, "name")
	if err != nil {
		return nil, err
	}

	if anyPresent(args, "point1", "point2") {
		p1, err := validation.Name(args, "point1")
		if err != nil {
			return nil, err
		}
		p2, err := validation.Name(args, "point2")
		if err != nil {
			return nil, err
		}
		return LineByPoints{Name: name, Point1: p1, Point2: p2}, nil
	}

	if !validation.Present(args, "equation") {
		return nil, &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  "line requires either point1 and point2 or equation",
		}
	}
	equation, err := validation.Equation(args)
	if err != nil {
		return nil, err
	}
	return LineByEquation{Name: name, Equation: equation}, nil
}

func anyPresent(args map[string]interface{}, fields ...string) bool {
	for _, f := range fields {
		if validation.Present(args, f) {
			return true
		}
	}
	return false
}

// ParseRaw validates a pass-through engine command
func ParseRaw(args map[string]interface{}) (Raw, error) {
	text, err := validation.Command(args)
	if err != nil {
		return Raw{}, err
	}
	return Raw{Text: text}, nil
}
