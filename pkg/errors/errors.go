package errors

import (
	"errors"
	"fmt"
	"time"

	"mcp-geogebra-service/internal/models"
)

// ErrorCategory represents different types of errors in the system
type ErrorCategory string

const (
	// Tool argument validation errors
	ErrorCategoryValidation ErrorCategory = "validation"
	// Geometry engine errors (rejected commands, unavailable engine)
	ErrorCategoryEngine ErrorCategory = "engine"
	// MCP protocol related errors
	ErrorCategoryMCP ErrorCategory = "mcp"
	// Configuration loading and reload errors
	ErrorCategoryConfig ErrorCategory = "config"
	// System/internal errors
	ErrorCategorySystem ErrorCategory = "system"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// StructuredError represents a structured error with additional context
type StructuredError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Recoverable bool                   `json:"recoverable"`
	Cause       error                  `json:"-"`
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	if se.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", se.Category, se.Code, se.Message, se.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", se.Category, se.Code, se.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (se *StructuredError) Unwrap() error {
	return se.Cause
}

// ToMCPError converts a StructuredError to a JSON-RPC error object
func (se *StructuredError) ToMCPError() *models.MCPError {
	var mcpCode int
	switch se.Category {
	case ErrorCategoryValidation:
		mcpCode = models.ErrorCodeInvalidParams
	case ErrorCategoryMCP:
		if se.Code == ErrCodeMethodNotFound {
			mcpCode = models.ErrorCodeMethodNotFound
		} else {
			mcpCode = models.ErrorCodeInvalidRequest
		}
	default:
		mcpCode = models.ErrorCodeInternal
	}

	return &models.MCPError{
		Code:    mcpCode,
		Message: se.Message,
		Data: map[string]interface{}{
			"category":  se.Category,
			"code":      se.Code,
			"severity":  se.Severity,
			"timestamp": se.Timestamp,
			"context":   se.Context,
		},
	}
}

// NewStructuredError creates a new structured error
func NewStructuredError(category ErrorCategory, severity ErrorSeverity, code, message string) *StructuredError {
	return &StructuredError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: severity != ErrorSeverityCritical,
		Context:     make(map[string]interface{}),
	}
}

// WithDetails adds details to the error
func (se *StructuredError) WithDetails(details string) *StructuredError {
	se.Details = details
	return se
}

// WithContext adds context information to the error
func (se *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if se.Context == nil {
		se.Context = make(map[string]interface{})
	}
	se.Context[key] = value
	return se
}

// WithCause sets the underlying cause error
func (se *StructuredError) WithCause(err error) *StructuredError {
	se.Cause = err
	return se
}

// IsRecoverable returns whether the error is recoverable
func (se *StructuredError) IsRecoverable() bool {
	return se.Recoverable
}

// SetRecoverable sets the recoverable flag
func (se *StructuredError) SetRecoverable(recoverable bool) *StructuredError {
	se.Recoverable = recoverable
	return se
}

// As returns err as a *StructuredError when one is found in its chain
func As(err error) (*StructuredError, bool) {
	var se *StructuredError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Predefined error constructors for common error scenarios

// NewValidationError creates a tool argument validation error
func NewValidationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryValidation, ErrorSeverityLow, code, message).WithCause(err)
}

// NewEngineError creates a geometry engine error. Unavailable engines are
// reported with high severity, rejected commands with low severity.
func NewEngineError(code, message string, err error) *StructuredError {
	severity := ErrorSeverityMedium
	switch code {
	case ErrCodeEngineRejected:
		severity = ErrorSeverityLow
	case ErrCodeEngineUnavailable, ErrCodeCircuitOpen:
		severity = ErrorSeverityHigh
	}
	return NewStructuredError(ErrorCategoryEngine, severity, code, message).WithCause(err)
}

// NewMCPError creates an MCP protocol related error
func NewMCPError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryMCP, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewConfigError creates a configuration error
func NewConfigError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryConfig, ErrorSeverityHigh, code, message).WithCause(err)
}

// NewSystemError creates a system/internal error
func NewSystemError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategorySystem, ErrorSeverityCritical, code, message).WithCause(err)
}

// Common error codes
const (
	// Validation error codes, one per argument category
	ErrCodeInvalidName        = "INVALID_NAME"
	ErrCodeInvalidCoordinates = "INVALID_COORDINATES"
	ErrCodeInvalidRadius      = "INVALID_RADIUS"
	ErrCodeInvalidVertices    = "INVALID_VERTICES"
	ErrCodeInvalidEquation    = "INVALID_EQUATION"
	ErrCodeInvalidParams      = "INVALID_PARAMS"
	ErrCodeToolNotFound       = "TOOL_NOT_FOUND"

	// Engine error codes
	ErrCodeEngineRejected    = "ENGINE_REJECTED"
	ErrCodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	ErrCodeEngineTimeout     = "ENGINE_TIMEOUT"
	ErrCodeCircuitOpen       = "CIRCUIT_BREAKER_OPEN"
	ErrCodeNotSupported      = "NOT_SUPPORTED"

	// MCP protocol error codes
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMethodNotFound = "METHOD_NOT_FOUND"
	ErrCodeParseError     = "PARSE_ERROR"

	// Config error codes
	ErrCodeConfigRead    = "CONFIG_READ_FAILED"
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// System error codes
	ErrCodeInitializationFailed = "INITIALIZATION_FAILED"
	ErrCodeShutdownFailed       = "SHUTDOWN_FAILED"
	ErrCodeUnexpectedPanic      = "UNEXPECTED_PANIC"
)
