package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-geogebra-service/pkg/errors"
)

func newReadyMemoryEngine(t *testing.T) *MemoryEngine {
	t.Helper()
	m := NewMemoryEngine()
	require.NoError(t, m.Initialize(context.Background()))
	return m
}

func eval(t *testing.T, m *MemoryEngine, command string) *CommandResult {
	t.Helper()
	result, err := m.EvalCommand(context.Background(), command)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestMemoryEngineNotInitialized(t *testing.T) {
	m := NewMemoryEngine()
	ready, err := m.IsReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	_, err = m.EvalCommand(context.Background(), "A = (1, 2)")
	require.Error(t, err)
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeEngineUnavailable, se.Code)
}

func TestMemoryEngineConstructions(t *testing.T) {
	ctx := context.Background()
	m := newReadyMemoryEngine(t)

	commands := []struct {
		command string
		label   string
		kind    string
	}{
		{"A = (1, 2)", "A", "point"},
		{"B = (4, 6)", "B", "point"},
		{"C = (-0.5, 3)", "C", "point"},
		{"c1 = Circle(A, 5)", "c1", "circle"},
		{"c2 = Circle(A, B, C)", "c2", "circle"},
		{"poly1 = Polygon(A, B, C)", "poly1", "polygon"},
		{"line1 = Line(A, B)", "line1", "line"},
		{"line2: y = 2x + 3", "line2", "line"},
		{"k: x^2 + y^2 = 25", "k", "conic"},
		{"f(x) = x^2 + 1", "f", "function"},
		{"r = 3.5", "r", "numeric"},
	}

	for _, tt := range commands {
		result := eval(t, m, tt.command)
		require.True(t, result.Success, "command %q failed: %s", tt.command, result.Error)
		assert.Equal(t, tt.label, result.Result)

		info, err := m.GetObjectInfo(ctx, tt.label)
		require.NoError(t, err)
		assert.Equal(t, tt.kind, info.Type, "type of %s", tt.label)
		assert.Equal(t, tt.command, info.Command)
	}

	names, err := m.GetAllObjectNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "c1", "c2", "poly1", "line1", "line2", "k", "f", "r"}, names)

	info, err := m.GetObjectInfo(ctx, "C")
	require.NoError(t, err)
	require.NotNil(t, info.X)
	assert.Equal(t, -0.5, *info.X)
	assert.Equal(t, 3.0, *info.Y)
}

func TestMemoryEngineRejections(t *testing.T) {
	m := newReadyMemoryEngine(t)
	eval(t, m, "A = (1, 2)")

	tests := []struct {
		command string
		want    string
	}{
		{"c1 = Circle(Z, 5)", "Undefined variable: Z"},
		{"line1 = Line(A, B)", "Undefined variable: B"},
		{"poly = Polygon(A, B, C", "Syntax error"},
		{"A = ", "Syntax error"},
		{"Text(\"unterminated)", "Syntax error"},
		{"???", "Unknown command"},
		{"", "Syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			result := eval(t, m, tt.command)
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.want)
		})
	}

	names, _ := m.GetAllObjectNames(context.Background())
	assert.Equal(t, []string{"A"}, names)
	assert.Equal(t, []string{"A = (1, 2)"}, m.History())
}

func TestMemoryEngineRedefinitionKeepsOrder(t *testing.T) {
	m := newReadyMemoryEngine(t)
	eval(t, m, "A = (1, 2)")
	eval(t, m, "B = (3, 4)")
	eval(t, m, "A = (5, 6)")

	names, _ := m.GetAllObjectNames(context.Background())
	assert.Equal(t, []string{"A", "B"}, names)

	info, err := m.GetObjectInfo(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 5.0, *info.X)
}

func TestMemoryEngineDeleteCascades(t *testing.T) {
	ctx := context.Background()
	m := newReadyMemoryEngine(t)
	eval(t, m, "A = (0, 0)")
	eval(t, m, "B = (1, 0)")
	eval(t, m, "C = (0, 1)")
	eval(t, m, "s = Line(A, B)")
	eval(t, m, "p = Polygon(B, C, A)")
	eval(t, m, "q = Circle(C, 2)")

	result := eval(t, m, "Delete(A)")
	require.True(t, result.Success)

	names, _ := m.GetAllObjectNames(ctx)
	assert.Equal(t, []string{"B", "C", "q"}, names)

	_, err := m.GetObjectInfo(ctx, "A")
	assert.Error(t, err)
}

func TestMemoryEngineNewConstruction(t *testing.T) {
	ctx := context.Background()
	m := newReadyMemoryEngine(t)
	eval(t, m, "A = (1, 2)")
	require.NoError(t, m.SetGridVisible(ctx, true))

	require.NoError(t, m.NewConstruction(ctx))

	names, _ := m.GetAllObjectNames(ctx)
	assert.Empty(t, names)
	state, err := m.GetState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Ready)
	assert.Equal(t, 0, state.ObjectCount)
	assert.Equal(t, DefaultView(), state.View)
}

func TestMemoryEngineView(t *testing.T) {
	ctx := context.Background()
	m := newReadyMemoryEngine(t)

	require.NoError(t, m.SetCoordSystem(ctx, -5, 5, -2, 2))
	require.NoError(t, m.SetAxesVisible(ctx, false, true))
	require.NoError(t, m.SetGridVisible(ctx, true))
	assert.Error(t, m.SetCoordSystem(ctx, 5, -5, 0, 1))

	state, err := m.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewSettings{XMin: -5, XMax: 5, YMin: -2, YMax: 2, AxesX: false, AxesY: true, Grid: true}, state.View)
}

func TestMemoryEngineExportNotSupported(t *testing.T) {
	m := newReadyMemoryEngine(t)

	_, err := m.ExportPNG(context.Background(), 1)
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotSupported, se.Code)

	_, err = m.ExportSVG(context.Background())
	assert.Error(t, err)
}

func TestMemoryEngineCancelledContext(t *testing.T) {
	m := newReadyMemoryEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.EvalCommand(ctx, "A = (1, 2)")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReferences(t *testing.T) {
	tests := map[string][]string{
		"(1, 2)":            nil,
		"Circle(A, 5)":      {"A"},
		"Polygon(A, B, A)":  {"A", "B"},
		"y = 2x + 3":        nil,
		"3xy - a = 0":       {"a"},
		"Text(\"Hello B\")": nil,
		"sin(x) + k":        {"k"},
		"2pi r":             {"r"},
		"(1E300, 1.5E-7)":   nil,
		"Circle(A, 2e3)":    {"A"},
		"2E x":              {"E"},
	}
	for expr, want := range tests {
		assert.Equal(t, want, references(expr), "references(%q)", expr)
	}
}

func TestMemoryEngineScientificNotation(t *testing.T) {
	ctx := context.Background()
	m := newReadyMemoryEngine(t)

	result := eval(t, m, "A = (1E300, -1.5E-7)")
	require.True(t, result.Success, result.Error)

	info, err := m.GetObjectInfo(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "point", info.Type)
	require.NotNil(t, info.X)
	assert.Equal(t, 1e300, *info.X)
	assert.Equal(t, -1.5e-7, *info.Y)
}
