package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"mcp-geogebra-service/pkg/errors"
)

// LogContext represents contextual information for log entries
type LogContext map[string]interface{}

// StructuredLogger provides structured logging capabilities
type StructuredLogger struct {
	logger    *slog.Logger
	component string
	context   LogContext
}

// NewStructuredLogger creates a logger writing JSON to stderr at DEBUG level.
// Stdout is reserved for the MCP protocol stream.
func NewStructuredLogger(component string) *StructuredLogger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return newStructuredLogger(os.Stderr, level, component)
}

func newStructuredLogger(w io.Writer, level slog.Leveler, component string) *StructuredLogger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano)),
				}
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: a.Value}
			}
			return a
		},
	}

	return &StructuredLogger{
		logger:    slog.New(slog.NewJSONHandler(w, opts)),
		component: component,
		context:   make(LogContext),
	}
}

// WithContext adds context to the logger (returns a new logger instance)
func (sl *StructuredLogger) WithContext(key string, value interface{}) *StructuredLogger {
	newLogger := &StructuredLogger{
		logger:    sl.logger,
		component: sl.component,
		context:   make(LogContext, len(sl.context)+1),
	}
	for k, v := range sl.context {
		newLogger.context[k] = v
	}
	newLogger.context[key] = value
	return newLogger
}

// WithError adds error information to the logger context
func (sl *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return sl
	}

	newLogger := sl.WithContext("error", err.Error())
	if structuredErr, ok := errors.As(err); ok {
		newLogger = newLogger.
			WithContext("error_category", structuredErr.Category).
			WithContext("error_code", structuredErr.Code).
			WithContext("error_severity", structuredErr.Severity)
		for k, v := range structuredErr.Context {
			newLogger = newLogger.WithContext("error_ctx_"+k, v)
		}
	}
	return newLogger
}

func (sl *StructuredLogger) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(sl.context)+1)
	attrs = append(attrs, slog.String("component", sl.component))
	for key, value := range sl.context {
		attrs = append(attrs, slog.Any(key, value))
	}
	return attrs
}

func (sl *StructuredLogger) log(level slog.Level, message string) {
	ctx := context.Background()
	if !sl.logger.Enabled(ctx, level) {
		return
	}
	sl.logger.LogAttrs(ctx, level, message, sl.attrs()...)
}

// Debug logs a debug message
func (sl *StructuredLogger) Debug(message string) { sl.log(slog.LevelDebug, message) }

// Info logs an info message
func (sl *StructuredLogger) Info(message string) { sl.log(slog.LevelInfo, message) }

// Warn logs a warning message
func (sl *StructuredLogger) Warn(message string) { sl.log(slog.LevelWarn, message) }

// Error logs an error message
func (sl *StructuredLogger) Error(message string) { sl.log(slog.LevelError, message) }

// LogMCPMessage logs an MCP protocol message with timing information
func (sl *StructuredLogger) LogMCPMessage(method string, requestID interface{}, duration time.Duration, success bool) {
	logger := sl.WithContext("mcp_method", method).
		WithContext("request_id", requestID).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)

	if success {
		logger.Debug("MCP message processed")
	} else {
		logger.Warn("MCP message processing failed")
	}
}

// LogToolExecution logs the outcome of one tool call. Arguments are
// sanitized before they reach the log.
func (sl *StructuredLogger) LogToolExecution(tool string, arguments map[string]interface{}, duration time.Duration, err error) {
	logger := sl.WithContext("tool", tool).
		WithContext("duration_ms", duration.Milliseconds())
	for k, v := range SanitizeArguments(arguments) {
		logger = logger.WithContext("arg_"+k, v)
	}

	if err != nil {
		logger.WithError(err).Warn("Tool execution failed")
		return
	}
	logger.Info("Tool execution completed")
}

// LogEngineCommand logs a command dispatched to the geometry engine
func (sl *StructuredLogger) LogEngineCommand(command string, duration time.Duration, success bool, engineErr string) {
	logger := sl.WithContext("engine_command", truncate(command, maxLogValueLength)).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)

	if success {
		logger.Debug("Engine command evaluated")
		return
	}
	logger.WithContext("engine_error", engineErr).Warn("Engine rejected command")
}

// LogStartup logs application startup events
func (sl *StructuredLogger) LogStartup(event string, details map[string]interface{}) {
	logger := sl.WithContext("startup_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application startup event")
}

// LogShutdown logs application shutdown events
func (sl *StructuredLogger) LogShutdown(event string, details map[string]interface{}) {
	logger := sl.WithContext("shutdown_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application shutdown event")
}

// LogCircuitBreakerEvent logs circuit breaker state changes
func (sl *StructuredLogger) LogCircuitBreakerEvent(name string, oldState, newState errors.CircuitBreakerState) {
	sl.WithContext("circuit_breaker", name).
		WithContext("old_state", oldState.String()).
		WithContext("new_state", newState.String()).
		Warn("Circuit breaker state changed")
}

const maxLogValueLength = 100

// SanitizeArguments truncates long string values so tool arguments can be
// logged without flooding the output.
func SanitizeArguments(arguments map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(arguments))
	for key, value := range arguments {
		if s, ok := value.(string); ok {
			sanitized[key] = truncate(s, maxLogValueLength)
		} else {
			sanitized[key] = value
		}
	}
	return sanitized
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... [%d chars]", s[:max], len(s))
}
