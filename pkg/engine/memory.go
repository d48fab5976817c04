package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"mcp-geogebra-service/pkg/errors"
)

var (
	identPattern    = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_]*`)
	labelPattern    = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*(=|:)\s*(.*)$`)
	functionPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\(\s*([xyt])\s*\)\s*=\s*(.+)$`)
	callPattern     = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*)\s*\((.*)\)$`)
	pointPattern    = regexp.MustCompile(`^\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)$`)
	stringPattern   = regexp.MustCompile(`"[^"]*"`)
)

// Object types produced by the known construction commands
var commandTypes = map[string]string{
	"Circle":    "circle",
	"Polygon":   "polygon",
	"Line":      "line",
	"Segment":   "segment",
	"Ray":       "ray",
	"Vector":    "vector",
	"Point":     "point",
	"Midpoint":  "point",
	"Intersect": "point",
	"Ellipse":   "ellipse",
	"Parabola":  "parabola",
}

// Names that never refer to construction objects
var freeNames = map[string]bool{
	"x": true, "y": true, "z": true, "t": true,
	"pi": true, "e": true, "true": true, "false": true,
}

type memoryObject struct {
	info ObjectInfo
	deps []string
}

// MemoryEngine is an in-process engine. It keeps a symbol table of named
// objects, refuses commands that reference undefined objects and answers
// object queries. It does not compute geometry.
type MemoryEngine struct {
	mutex        sync.RWMutex
	ready        bool
	objects      map[string]*memoryObject
	order        []string
	view         ViewSettings
	history      []string
	commandCount int64
}

// NewMemoryEngine creates an uninitialized memory engine
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		objects: make(map[string]*memoryObject),
		view:    DefaultView(),
	}
}

func (m *MemoryEngine) IsReady(ctx context.Context) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.ready, nil
}

func (m *MemoryEngine) Initialize(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.ready = true
	return nil
}

func (m *MemoryEngine) Cleanup(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.ready = false
	m.reset()
	return nil
}

func (m *MemoryEngine) GetState(ctx context.Context) (*State, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return &State{
		Ready:        m.ready,
		ObjectCount:  len(m.order),
		CommandCount: m.commandCount,
		View:         m.view,
	}, nil
}

// EvalCommand applies one command to the symbol table
func (m *MemoryEngine) EvalCommand(ctx context.Context, command string) (*CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.ready {
		return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable, "engine is not initialized", nil)
	}
	m.commandCount++

	command = strings.TrimSpace(command)
	if msg := checkSyntax(command); msg != "" {
		return &CommandResult{Success: false, Error: msg}, nil
	}

	var (
		label, kind, value string
		deps               []string
		x, y               *float64
	)

	switch {
	case functionPattern.MatchString(command):
		parts := functionPattern.FindStringSubmatch(command)
		label, kind, value = parts[1], "function", parts[3]
		deps = references(value)

	case labelPattern.MatchString(command):
		parts := labelPattern.FindStringSubmatch(command)
		label, value = parts[1], parts[3]
		if value == "" {
			return &CommandResult{Success: false, Error: "Syntax error: missing definition for " + label}, nil
		}
		if parts[2] == ":" {
			kind = equationType(value)
		} else {
			kind, x, y = expressionType(value)
		}
		deps = references(value)

	case callPattern.MatchString(command):
		parts := callPattern.FindStringSubmatch(command)
		deps = references(parts[2])
		if missing := m.firstMissing(deps); missing != "" {
			return &CommandResult{Success: false, Error: "Undefined variable: " + missing}, nil
		}
		if parts[1] == "Delete" {
			for _, name := range deps {
				m.delete(name)
			}
		}
		m.history = append(m.history, command)
		return &CommandResult{Success: true}, nil

	default:
		return &CommandResult{Success: false, Error: "Unknown command or syntax error: " + command}, nil
	}

	if missing := m.firstMissing(removeName(deps, label)); missing != "" {
		return &CommandResult{Success: false, Error: "Undefined variable: " + missing}, nil
	}

	if _, exists := m.objects[label]; !exists {
		m.order = append(m.order, label)
	}
	m.objects[label] = &memoryObject{
		info: ObjectInfo{
			Name:    label,
			Type:    kind,
			Command: command,
			Value:   value,
			Visible: true,
			Defined: true,
			X:       x,
			Y:       y,
		},
		deps: deps,
	}
	m.history = append(m.history, command)

	return &CommandResult{Success: true, Result: label}, nil
}

func (m *MemoryEngine) GetAllObjectNames(ctx context.Context) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]string{}, m.order...), nil
}

func (m *MemoryEngine) GetObjectInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, errors.NewEngineError(errors.ErrCodeEngineRejected,
			fmt.Sprintf("object %q does not exist", name), nil)
	}
	info := obj.info
	return &info, nil
}

func (m *MemoryEngine) NewConstruction(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reset()
	return nil
}

func (m *MemoryEngine) SetCoordSystem(ctx context.Context, xmin, xmax, ymin, ymax float64) error {
	if xmin >= xmax || ymin >= ymax {
		return errors.NewValidationError(errors.ErrCodeInvalidParams,
			fmt.Sprintf("invalid coordinate system [%v, %v] x [%v, %v]", xmin, xmax, ymin, ymax), nil)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.view.XMin, m.view.XMax, m.view.YMin, m.view.YMax = xmin, xmax, ymin, ymax
	return nil
}

func (m *MemoryEngine) SetAxesVisible(ctx context.Context, xAxis, yAxis bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.view.AxesX, m.view.AxesY = xAxis, yAxis
	return nil
}

func (m *MemoryEngine) SetGridVisible(ctx context.Context, visible bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.view.Grid = visible
	return nil
}

func (m *MemoryEngine) ExportPNG(ctx context.Context, scale float64) (string, error) {
	return "", errors.NewEngineError(errors.ErrCodeNotSupported, "PNG export requires the bridge engine", nil)
}

func (m *MemoryEngine) ExportSVG(ctx context.Context) (string, error) {
	return "", errors.NewEngineError(errors.ErrCodeNotSupported, "SVG export requires the bridge engine", nil)
}

// History returns every accepted command in order
func (m *MemoryEngine) History() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]string{}, m.history...)
}

// reset must be called with the mutex held
func (m *MemoryEngine) reset() {
	m.objects = make(map[string]*memoryObject)
	m.order = nil
	m.view = DefaultView()
	m.history = nil
}

func (m *MemoryEngine) firstMissing(names []string) string {
	for _, name := range names {
		if _, ok := m.objects[name]; !ok {
			return name
		}
	}
	return ""
}

// delete removes name and every object depending on it
func (m *MemoryEngine) delete(name string) {
	if _, ok := m.objects[name]; !ok {
		return
	}
	delete(m.objects, name)
	m.order = removeName(m.order, name)

	for _, other := range append([]string{}, m.order...) {
		if obj, ok := m.objects[other]; ok && contains(obj.deps, name) {
			m.delete(other)
		}
	}
}

// checkSyntax returns a message for commands with unbalanced delimiters
func checkSyntax(command string) string {
	if command == "" {
		return "Syntax error: empty command"
	}
	if strings.Count(command, `"`)%2 != 0 {
		return "Syntax error: unterminated string"
	}
	depth := 0
	for _, r := range stringPattern.ReplaceAllString(command, "") {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return "Syntax error: unbalanced brackets"
			}
		}
	}
	if depth != 0 {
		return "Syntax error: unbalanced brackets"
	}
	return ""
}

// references lists the object names an expression depends on, skipping
// function names, free variables and string literals
func references(expr string) []string {
	expr = stringPattern.ReplaceAllString(expr, "")

	var names []string
	for _, loc := range identPattern.FindAllStringIndex(expr, -1) {
		name := expr[loc[0]:loc[1]]
		if loc[0] > 0 && isDigit(expr[loc[0]-1]) && isVariableProduct(name) {
			// 2x, 3xy
			continue
		}
		if loc[0] > 0 && isDigit(expr[loc[0]-1]) && isExponent(name, expr[loc[1]:]) {
			// 1E300, 1.5E-7
			continue
		}
		rest := strings.TrimLeft(expr[loc[1]:], " ")
		if strings.HasPrefix(rest, "(") {
			continue
		}
		if freeNames[name] || isVariableProduct(name) || contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func expressionType(expr string) (kind string, x, y *float64) {
	if parts := pointPattern.FindStringSubmatch(expr); parts != nil {
		if fx, err := strconv.ParseFloat(parts[1], 64); err == nil {
			if fy, err := strconv.ParseFloat(parts[2], 64); err == nil {
				return "point", &fx, &fy
			}
		}
		return "point", nil, nil
	}
	if parts := callPattern.FindStringSubmatch(expr); parts != nil {
		if t, ok := commandTypes[parts[1]]; ok {
			return t, nil, nil
		}
	}
	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return "numeric", nil, nil
	}
	if strings.Contains(expr, "=") {
		return equationType(expr), nil, nil
	}
	return "expression", nil, nil
}

func equationType(eq string) string {
	if strings.Contains(eq, "^") {
		return "conic"
	}
	return "line"
}

// isExponent reports whether name, directly after a digit, is the exponent
// part of a number in scientific notation
func isExponent(name, rest string) bool {
	if name[0] != 'E' && name[0] != 'e' {
		return false
	}
	if len(name) > 1 {
		return strings.Trim(name[1:], "0123456789") == ""
	}
	return len(rest) > 1 && (rest[0] == '-' || rest[0] == '+') && isDigit(rest[1])
}

// isVariableProduct reports names made only of x, y and z, such as "xy"
func isVariableProduct(name string) bool {
	return strings.Trim(name, "xyz") == ""
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeName(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
