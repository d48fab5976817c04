package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/logging"
	"mcp-geogebra-service/pkg/validation"
)

const tracerName = "mcp-geogebra-service/pkg/tools"

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Resolved
}

// ToolManager manages tool registration, discovery, and execution
type ToolManager struct {
	registry map[string]registeredTool
	order    []string
	executor *ToolExecutor
	logger   *logging.StructuredLogger
	tracer   trace.Tracer
	mu       sync.RWMutex

	// Performance metrics
	stats ToolStats
}

// ToolStats tracks performance metrics for tool invocations
type ToolStats struct {
	TotalInvocations     int64
	FailedInvocations    int64
	InvocationsByName    map[string]int64
	FailuresByCategory   map[string]int64
	TotalExecutionTimeMs int64
	ExecutionTimeByName  map[string]int64
	mu                   sync.RWMutex
}

// NewToolManager creates an empty ToolManager dispatching commands to evaluator
func NewToolManager(evaluator engine.Evaluator, logger *logging.StructuredLogger) *ToolManager {
	return &ToolManager{
		registry: make(map[string]registeredTool),
		executor: NewToolExecutor(evaluator, logger),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		stats: ToolStats{
			InvocationsByName:   make(map[string]int64),
			FailuresByCategory:  make(map[string]int64),
			ExecutionTimeByName: make(map[string]int64),
		},
	}
}

// NewDefaultToolManager creates a ToolManager holding every geometry tool
func NewDefaultToolManager(eng engine.Engine, logger *logging.StructuredLogger) (*ToolManager, error) {
	tm := NewToolManager(eng, logger)

	tools := []Tool{
		NewCreatePointTool(),
		NewCreateLineTool(),
		NewCreateCircleTool(),
		NewCreatePolygonTool(),
		NewEvalCommandTool(),
		NewGetObjectsTool(eng),
		NewClearConstructionTool(eng),
		NewSetViewTool(eng),
		NewExportConstructionTool(eng),
	}
	for _, tool := range tools {
		if err := tm.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

// RegisterTool registers a new tool in the manager
func (tm *ToolManager) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	schema := tool.InputSchema()
	if schema == nil {
		return fmt.Errorf("tool %s has no input schema", name)
	}
	if len(schema.Required) == 0 {
		tm.logger.WithContext("tool", name).Debug("Tool registered without required arguments")
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s has an invalid input schema: %w", name, err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.registry[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	if tool.Description() == "" {
		tm.logger.WithContext("tool", name).
			Warn("Tool registered without description")
	}

	tm.registry[name] = registeredTool{tool: tool, schema: resolved}
	tm.order = append(tm.order, name)
	tm.logger.WithContext("tool", name).
		Debug("Tool registered")

	return nil
}

// GetTool retrieves a tool by name
func (tm *ToolManager) GetTool(name string) (Tool, error) {
	entry, err := tm.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.tool, nil
}

func (tm *ToolManager) lookup(name string) (registeredTool, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	entry, exists := tm.registry[name]
	if !exists {
		return registeredTool{}, errors.NewValidationError(errors.ErrCodeToolNotFound,
			"Unknown tool: "+name, nil).WithContext("tool", name)
	}
	return entry, nil
}

// ListTools returns all registered tool definitions in registration order
func (tm *ToolManager) ListTools() []models.MCPTool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tools := make([]models.MCPTool, 0, len(tm.order))
	for _, name := range tm.order {
		tools = append(tools, NewToolDefinition(tm.registry[name].tool))
	}

	return tools
}

// ExecuteTool executes a tool by name. Every outcome, including unknown
// tools and engine failures, is reported in the returned envelope.
func (tm *ToolManager) ExecuteTool(ctx context.Context, name string, arguments map[string]interface{}) *models.MCPToolsCallResult {
	startTime := time.Now()

	ctx, span := tm.tracer.Start(ctx, "tools/call "+name,
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	payload, err := tm.execute(ctx, name, arguments)
	duration := time.Since(startTime)
	tm.logger.LogToolExecution(name, arguments, duration, err)

	if err != nil {
		category := failureCategory(err)
		tm.recordFailure(name, category)
		span.SetAttributes(attribute.String("tool.failure_category", category))
		span.SetStatus(codes.Error, errorMessage(err))
		return errorResult(errorMessage(err))
	}

	tm.recordSuccess(name, duration.Milliseconds())
	if command, ok := payload["command"].(string); ok {
		span.SetAttributes(attribute.String("tool.command", command))
	}
	span.SetStatus(codes.Ok, "")
	return successResult(payload)
}

// execute runs one call. A panicking tool fails only its own call.
func (tm *ToolManager) execute(ctx context.Context, name string, arguments map[string]interface{}) (payload map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = errors.NewSystemError(errors.ErrCodeUnexpectedPanic,
				fmt.Sprintf("tool %s failed unexpectedly: %v", name, r), nil).
				SetRecoverable(true)
		}
	}()

	entry, err := tm.lookup(name)
	if err != nil {
		return nil, err
	}
	return tm.executor.Execute(ctx, entry.tool, entry.schema, arguments)
}

// errorMessage is the text placed in the envelope's error field
func errorMessage(err error) string {
	if verr, ok := err.(*validation.Error); ok {
		return verr.Message
	}
	if se, ok := errors.As(err); ok {
		return se.Message
	}
	return err.Error()
}

// failureCategory classifies a failure for metrics
func failureCategory(err error) string {
	if verr, ok := err.(*validation.Error); ok {
		return string(verr.Category)
	}
	if se, ok := errors.As(err); ok {
		if se.Code == errors.ErrCodeToolNotFound {
			return string(validation.CategoryGeneric)
		}
		return string(se.Category)
	}
	return string(errors.ErrorCategoryEngine)
}

// GetPerformanceMetrics returns current performance metrics
func (tm *ToolManager) GetPerformanceMetrics() map[string]interface{} {
	tm.stats.mu.RLock()
	defer tm.stats.mu.RUnlock()

	return map[string]interface{}{
		"total_invocations":       tm.stats.TotalInvocations,
		"failed_invocations":      tm.stats.FailedInvocations,
		"invocations_by_name":     copyCounts(tm.stats.InvocationsByName),
		"failures_by_category":    copyCounts(tm.stats.FailuresByCategory),
		"total_execution_time_ms": tm.stats.TotalExecutionTimeMs,
		"execution_time_by_name":  copyCounts(tm.stats.ExecutionTimeByName),
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recordSuccess records a successful tool invocation
func (tm *ToolManager) recordSuccess(toolName string, executionTimeMs int64) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.InvocationsByName[toolName]++
	tm.stats.TotalExecutionTimeMs += executionTimeMs
	tm.stats.ExecutionTimeByName[toolName] += executionTimeMs
}

// recordFailure records a failed tool invocation
func (tm *ToolManager) recordFailure(toolName, category string) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.FailedInvocations++
	tm.stats.InvocationsByName[toolName]++
	tm.stats.FailuresByCategory[category]++
}
