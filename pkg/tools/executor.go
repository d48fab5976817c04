// Package tools holds the tool registry and the execution pipeline.
//
// Every call runs the same stages: semantic validation of the arguments,
// a shape check against the tool's JSON schema, command synthesis and
// dispatch to the engine. The first failing stage ends the call and the
// engine is only reached once every check has passed.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/geometry"
	"mcp-geogebra-service/pkg/logging"
	"mcp-geogebra-service/pkg/validation"
)

// ToolExecutor runs the validation and dispatch pipeline for one tool call
type ToolExecutor struct {
	evaluator engine.Evaluator
	logger    *logging.StructuredLogger
}

// NewToolExecutor creates a new ToolExecutor dispatching to evaluator
func NewToolExecutor(evaluator engine.Evaluator, logger *logging.StructuredLogger) *ToolExecutor {
	return &ToolExecutor{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Execute validates arguments and runs the tool. The returned payload is
// merged into the success envelope.
func (te *ToolExecutor) Execute(ctx context.Context, tool Tool, schema *jsonschema.Resolved, arguments map[string]interface{}) (map[string]interface{}, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	switch t := tool.(type) {
	case ConstructionTool:
		construction, err := t.Parse(arguments)
		if err != nil {
			return nil, err
		}
		if err := te.ValidateArguments(schema, selectFields(arguments, construction.Fields())); err != nil {
			return nil, err
		}
		return te.dispatch(ctx, construction.Command())

	case EngineTool:
		if err := t.Validate(arguments); err != nil {
			return nil, err
		}
		if err := te.ValidateArguments(schema, arguments); err != nil {
			return nil, err
		}
		return t.Execute(ctx, arguments)

	default:
		return nil, errors.NewSystemError(errors.ErrCodeInitializationFailed,
			fmt.Sprintf("tool %s has no execution strategy", tool.Name()), nil)
	}
}

// ValidateArguments checks the arguments against the resolved input schema.
// Arguments are normalized through JSON first so that Go callers passing
// ints or []string are judged like decoded JSON.
func (te *ToolExecutor) ValidateArguments(schema *jsonschema.Resolved, arguments map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	data, err := json.Marshal(arguments)
	if err != nil {
		return &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  fmt.Sprintf("arguments are not valid JSON: %v", err),
		}
	}
	var instance map[string]interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  fmt.Sprintf("arguments are not valid JSON: %v", err),
		}
	}

	if err := schema.Validate(instance); err != nil {
		return &validation.Error{
			Category: validation.CategoryGeneric,
			Message:  fmt.Sprintf("invalid arguments: %v", err),
		}
	}
	return nil
}

// selectFields keeps only the keys a construction was built from, so fields of
// an unselected mode never reach the schema check
func selectFields(arguments map[string]interface{}, fields []string) map[string]interface{} {
	selected := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := arguments[f]; ok {
			selected[f] = v
		}
	}
	return selected
}

// dispatch sends one synthesized command to the engine. The engine's own
// message is reported unchanged when it refuses the command.
func (te *ToolExecutor) dispatch(ctx context.Context, cmd geometry.Command) (map[string]interface{}, error) {
	start := time.Now()
	result, err := te.evaluator.EvalCommand(ctx, cmd.Text)
	duration := time.Since(start)

	switch {
	case err != nil:
		te.logger.LogEngineCommand(cmd.Text, duration, false, err.Error())
		return nil, err
	case result == nil:
		te.logger.LogEngineCommand(cmd.Text, duration, false, "empty engine result")
		return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable, "engine returned no result", nil)
	case !result.Success:
		te.logger.LogEngineCommand(cmd.Text, duration, false, result.Error)
		message := result.Error
		if message == "" {
			message = "engine rejected command: " + cmd.Text
		}
		return nil, errors.NewEngineError(errors.ErrCodeEngineRejected, message, nil).
			WithContext("command", cmd.Text)
	}

	te.logger.LogEngineCommand(cmd.Text, duration, true, "")

	payload := make(map[string]interface{}, len(cmd.Metadata)+1)
	for k, v := range cmd.Metadata {
		payload[k] = v
	}
	payload["command"] = cmd.Text
	return payload, nil
}
