// Package engine provides the geometry engines tool commands are sent to.
//
// EvalCommand reports two kinds of failure differently: a command the engine
// processed but refused comes back as a CommandResult with Success false,
// while a transport or availability problem is returned as an error.
package engine

import (
	"context"
)

// CommandResult is the engine's answer to a single command
type CommandResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ObjectInfo describes one object of the live construction
type ObjectInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Command string   `json:"command,omitempty"`
	Value   string   `json:"value,omitempty"`
	Visible bool     `json:"visible"`
	Defined bool     `json:"defined"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
}

// ViewSettings is the graphics view configuration
type ViewSettings struct {
	XMin  float64 `json:"xmin"`
	XMax  float64 `json:"xmax"`
	YMin  float64 `json:"ymin"`
	YMax  float64 `json:"ymax"`
	AxesX bool    `json:"axesX"`
	AxesY bool    `json:"axesY"`
	Grid  bool    `json:"grid"`
}

// DefaultView matches the applet's initial graphics view
func DefaultView() ViewSettings {
	return ViewSettings{XMin: -10, XMax: 10, YMin: -10, YMax: 10, AxesX: true, AxesY: true}
}

// State is a snapshot of an engine
type State struct {
	Ready        bool         `json:"ready"`
	ObjectCount  int          `json:"objectCount"`
	CommandCount int64        `json:"commandCount"`
	View         ViewSettings `json:"view"`
}

// Evaluator executes engine commands. It is the only engine surface the tool
// pipeline depends on.
type Evaluator interface {
	EvalCommand(ctx context.Context, command string) (*CommandResult, error)
}

// Engine is the full engine surface
type Engine interface {
	Evaluator

	IsReady(ctx context.Context) (bool, error)
	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context) error
	GetState(ctx context.Context) (*State, error)

	GetAllObjectNames(ctx context.Context) ([]string, error)
	GetObjectInfo(ctx context.Context, name string) (*ObjectInfo, error)
	NewConstruction(ctx context.Context) error

	SetCoordSystem(ctx context.Context, xmin, xmax, ymin, ymax float64) error
	SetAxesVisible(ctx context.Context, xAxis, yAxis bool) error
	SetGridVisible(ctx context.Context, visible bool) error

	// ExportPNG returns the graphics view as base64 encoded PNG
	ExportPNG(ctx context.Context, scale float64) (string, error)
	ExportSVG(ctx context.Context) (string, error)
}
