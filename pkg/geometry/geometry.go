// Package geometry defines the typed constructions the tools build and the
// engine commands they synthesize.
package geometry

import (
	"math"
	"strconv"
	"strings"
)

// Construction methods reported in command metadata
const (
	MethodCenterRadius = "center-radius"
	MethodThreePoints  = "three-points"
	MethodTwoPoint     = "two-point"
	MethodEquation     = "equation"
)

// Command is a synthesized engine command plus the metadata returned to the
// caller on success
type Command struct {
	Text     string
	Metadata map[string]interface{}
}

// Construction is a validated, typed geometric object definition. Fields
// lists the argument keys the construction was built from; keys belonging to
// an unselected construction mode are not part of it.
type Construction interface {
	ObjectName() string
	Command() Command
	Fields() []string
}

// Point is a free point at fixed coordinates
type Point struct {
	Name string
	X, Y float64
}

func (p Point) ObjectName() string { return p.Name }
func (p Point) Fields() []string   { return []string{"name", "x", "y"} }

func (p Point) Command() Command {
	return Command{Text: p.Name + " = (" + FormatNumber(p.X) + ", " + FormatNumber(p.Y) + ")"}
}

// CircleByCenterRadius is a circle around an existing point
type CircleByCenterRadius struct {
	Name   string
	Center string
	Radius float64
}

func (c CircleByCenterRadius) ObjectName() string { return c.Name }
func (c CircleByCenterRadius) Fields() []string   { return []string{"name", "center", "radius"} }

func (c CircleByCenterRadius) Command() Command {
	return Command{
		Text:     c.Name + " = Circle(" + c.Center + ", " + FormatNumber(c.Radius) + ")",
		Metadata: map[string]interface{}{"method": MethodCenterRadius},
	}
}

// CircleByThreePoints is the circle through three existing points
type CircleByThreePoints struct {
	Name   string
	Points [3]string
}

func (c CircleByThreePoints) ObjectName() string { return c.Name }
func (c CircleByThreePoints) Fields() []string   { return []string{"name", "point1", "point2", "point3"} }

func (c CircleByThreePoints) Command() Command {
	return Command{
		Text:     c.Name + " = Circle(" + strings.Join(c.Points[:], ", ") + ")",
		Metadata: map[string]interface{}{"method": MethodThreePoints},
	}
}

// Polygon joins existing points in order
type Polygon struct {
	Name     string
	Vertices []string
}

func (p Polygon) ObjectName() string { return p.Name }
func (p Polygon) Fields() []string   { return []string{"name", "vertices"} }

func (p Polygon) Command() Command {
	return Command{
		Text:     p.Name + " = Polygon(" + strings.Join(p.Vertices, ", ") + ")",
		Metadata: map[string]interface{}{"vertexCount": len(p.Vertices)},
	}
}

// LineByPoints is the line through two existing points
type LineByPoints struct {
	Name           string
	Point1, Point2 string
}

func (l LineByPoints) ObjectName() string { return l.Name }
func (l LineByPoints) Fields() []string   { return []string{"name", "point1", "point2"} }

func (l LineByPoints) Command() Command {
	return Command{
		Text:     l.Name + " = Line(" + l.Point1 + ", " + l.Point2 + ")",
		Metadata: map[string]interface{}{"method": MethodTwoPoint},
	}
}

// LineByEquation is a line given by an equation. The engine uses the
// "name: equation" form for these.
type LineByEquation struct {
	Name     string
	Equation string
}

func (l LineByEquation) ObjectName() string { return l.Name }
func (l LineByEquation) Fields() []string   { return []string{"name", "equation"} }

func (l LineByEquation) Command() Command {
	return Command{
		Text:     l.Name + ": " + l.Equation,
		Metadata: map[string]interface{}{"method": MethodEquation},
	}
}

// Magnitudes outside [minPlainNumber, maxPlainNumber) are written in
// scientific notation
const (
	minPlainNumber = 1e-6
	maxPlainNumber = 1e21
)

// FormatNumber renders v in its shortest form: plain decimal for ordinary
// magnitudes, "1.5E-7" style otherwise
func FormatNumber(v float64) string {
	if v == 0 {
		// Drop the sign of negative zero
		return "0"
	}
	if abs := math.Abs(v); abs < minPlainNumber || abs >= maxPlainNumber {
		mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(v, 'E', -1, 64), "E")
		n, _ := strconv.Atoi(exponent)
		return mantissa + "E" + strconv.Itoa(n)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Raw is a command passed to the engine as written
type Raw struct {
	Text string
}

func (r Raw) ObjectName() string { return "" }
func (r Raw) Fields() []string   { return []string{"command"} }

func (r Raw) Command() Command {
	return Command{Text: r.Text}
}
