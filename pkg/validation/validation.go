// Package validation holds the semantic checks applied to tool arguments
// before any command is built. Each validator returns the typed value or an
// *Error carrying a category and a human-readable message.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"mcp-geogebra-service/pkg/errors"
)

// Category classifies a validation failure
type Category string

const (
	CategoryName        Category = "name"
	CategoryCoordinates Category = "coordinates"
	CategoryRadius      Category = "radius"
	CategoryVertices    Category = "vertices"
	CategoryEquation    Category = "equation"
	CategoryGeneric     Category = "generic"
)

// Limits
const (
	MinVertices       = 3
	MaxEquationLength = 256
	MaxCommandLength  = 1024
)

// NamePattern is the accepted object name syntax
const NamePattern = `^[A-Za-z][A-Za-z0-9_]*$`

var namePattern = regexp.MustCompile(NamePattern)

// Error is a failed validation
type Error struct {
	Category Category
	Field    string
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

// Code maps the category onto a structured error code
func (e *Error) Code() string {
	switch e.Category {
	case CategoryName:
		return errors.ErrCodeInvalidName
	case CategoryCoordinates:
		return errors.ErrCodeInvalidCoordinates
	case CategoryRadius:
		return errors.ErrCodeInvalidRadius
	case CategoryVertices:
		return errors.ErrCodeInvalidVertices
	case CategoryEquation:
		return errors.ErrCodeInvalidEquation
	default:
		return errors.ErrCodeInvalidParams
	}
}

// ToStructured converts the failure into a structured validation error
func (e *Error) ToStructured() *errors.StructuredError {
	se := errors.NewValidationError(e.Code(), e.Message, nil).
		WithContext("category", string(e.Category))
	if e.Field != "" {
		se = se.WithContext("field", e.Field)
	}
	return se
}

func newError(category Category, field, format string, args ...interface{}) *Error {
	return &Error{Category: category, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Missing reports a required argument that was not supplied
func Missing(field string) *Error {
	return newError(CategoryGeneric, field, "missing required argument: %s", field)
}

// Present reports whether args carries a non-null value for field
func Present(args map[string]interface{}, field string) bool {
	v, ok := args[field]
	return ok && v != nil
}

// String extracts a required string argument
func String(args map[string]interface{}, field string) (string, error) {
	if !Present(args, field) {
		return "", Missing(field)
	}
	s, ok := args[field].(string)
	if !ok {
		return "", newError(CategoryGeneric, field, "argument %s must be a string, got %T", field, args[field])
	}
	return s, nil
}

// Number extracts a required numeric argument. Decoded JSON numbers and any
// Go integer or float kind are accepted. Finiteness is not checked.
func Number(args map[string]interface{}, field string) (float64, error) {
	if !Present(args, field) {
		return 0, Missing(field)
	}
	switch v := args[field].(type) {
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, newError(CategoryGeneric, field, "argument %s must be a number: %v", field, err)
		}
		return f, nil
	}

	rv := reflect.ValueOf(args[field])
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, newError(CategoryGeneric, field, "argument %s must be a number, got %T", field, args[field])
	}
}

// Name checks a construction name or a reference to an existing object
func Name(args map[string]interface{}, field string) (string, error) {
	s, err := String(args, field)
	if err != nil {
		return "", err
	}
	if err := checkName(field, s); err != nil {
		return "", err
	}
	return s, nil
}

func checkName(field, s string) *Error {
	if !namePattern.MatchString(s) {
		return newError(CategoryName, field,
			"Invalid name for %s: %q must start with a letter and contain only letters, digits or underscores", field, s)
	}
	return nil
}

// Coordinates checks that x and y are finite numbers
func Coordinates(args map[string]interface{}) (x, y float64, err error) {
	if x, err = Number(args, "x"); err != nil {
		return 0, 0, err
	}
	if y, err = Number(args, "y"); err != nil {
		return 0, 0, err
	}
	if !finite(x) || !finite(y) {
		return 0, 0, newError(CategoryCoordinates, "x,y",
			"Invalid coordinates: x and y must be finite numbers, got (%v, %v)", x, y)
	}
	return x, y, nil
}

// Radius checks that the radius is a finite positive number
func Radius(args map[string]interface{}) (float64, error) {
	r, err := Number(args, "radius")
	if err != nil {
		return 0, err
	}
	if !finite(r) || r <= 0 {
		return 0, newError(CategoryRadius, "radius", "Invalid radius: must be a positive number, got %v", r)
	}
	return r, nil
}

// Vertices checks a polygon vertex list: at least MinVertices entries, each a
// valid object name
func Vertices(args map[string]interface{}) ([]string, error) {
	if !Present(args, "vertices") {
		return nil, Missing("vertices")
	}

	var raw []interface{}
	switch v := args["vertices"].(type) {
	case []interface{}:
		raw = v
	case []string:
		raw = make([]interface{}, len(v))
		for i, s := range v {
			raw[i] = s
		}
	default:
		return nil, newError(CategoryGeneric, "vertices", "argument vertices must be an array of names, got %T", v)
	}

	if len(raw) < MinVertices {
		return nil, newError(CategoryVertices, "vertices",
			"Polygon requires at least 3 vertices, got %d", len(raw))
	}

	names := make([]string, len(raw))
	for i, item := range raw {
		field := fmt.Sprintf("vertices[%d]", i)
		s, ok := item.(string)
		if !ok {
			return nil, newError(CategoryVertices, field, "Invalid vertex at %s: expected a name, got %T", field, item)
		}
		if err := checkName(field, s); err != nil {
			return nil, err
		}
		names[i] = s
	}
	return names, nil
}

// Equation checks the surface form "<expr> = <expr>". The expressions
// themselves are left to the engine.
func Equation(args map[string]interface{}) (string, error) {
	eq, err := String(args, "equation")
	if err != nil {
		return "", err
	}
	eq = strings.TrimSpace(eq)

	if reason := equationProblem(eq); reason != "" {
		return "", newError(CategoryEquation, "equation", "Invalid equation %q: %s", eq, reason)
	}
	return eq, nil
}

func equationProblem(eq string) string {
	if eq == "" {
		return "equation is empty"
	}
	if len(eq) > MaxEquationLength {
		return fmt.Sprintf("longer than %d characters", MaxEquationLength)
	}
	if strings.Count(eq, "=") != 1 {
		return "expected exactly one '='"
	}

	depth := 0
	for _, r := range eq {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case strings.ContainsRune("+-*/^.,=", r):
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return "unbalanced parentheses"
			}
		default:
			return fmt.Sprintf("unexpected character %q", r)
		}
	}
	if depth != 0 {
		return "unbalanced parentheses"
	}

	lhs, rhs, _ := strings.Cut(eq, "=")
	if !hasOperand(lhs) || !hasOperand(rhs) {
		return "both sides of '=' must contain an expression"
	}
	return ""
}

func hasOperand(side string) bool {
	return strings.IndexFunc(side, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// Command checks a raw engine command: non-empty, single line, bounded length
func Command(args map[string]interface{}) (string, error) {
	cmd, err := String(args, "command")
	if err != nil {
		return "", err
	}
	cmd = strings.TrimSpace(cmd)

	switch {
	case cmd == "":
		return "", newError(CategoryGeneric, "command", "Invalid command: command is empty")
	case len(cmd) > MaxCommandLength:
		return "", newError(CategoryGeneric, "command", "Invalid command: longer than %d characters", MaxCommandLength)
	case strings.ContainsAny(cmd, "\r\n"):
		return "", newError(CategoryGeneric, "command", "Invalid command: must be a single line")
	}
	return cmd, nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
