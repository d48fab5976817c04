package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"mcp-geogebra-service/pkg/errors"
)

// LoggingManager manages structured logging across the application
type LoggingManager struct {
	loggers map[string]*StructuredLogger
	mutex   sync.RWMutex
	output  io.Writer

	// Global context that gets added to all log entries
	globalContext LogContext

	// Shared by every logger so level changes apply immediately
	level *slog.LevelVar

	stats LoggingStats
}

// LoggingStats tracks logging statistics
type LoggingStats struct {
	TotalMessages    int64            `json:"totalMessages"`
	MessagesByLevel  map[string]int64 `json:"messagesByLevel"`
	MessagesByLogger map[string]int64 `json:"messagesByLogger"`
	ErrorCount       int64            `json:"errorCount"`
	LastLogTime      time.Time        `json:"lastLogTime"`
}

// NewLoggingManager creates a new logging manager writing to stderr
func NewLoggingManager() *LoggingManager {
	return NewLoggingManagerWithOutput(os.Stderr)
}

// NewLoggingManagerWithOutput creates a logging manager writing to w
func NewLoggingManagerWithOutput(w io.Writer) *LoggingManager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	return &LoggingManager{
		loggers:       make(map[string]*StructuredLogger),
		output:        w,
		globalContext: make(LogContext),
		level:         level,
		stats: LoggingStats{
			MessagesByLevel:  make(map[string]int64),
			MessagesByLogger: make(map[string]int64),
		},
	}
}

// GetLogger gets or creates a logger for a specific component
func (lm *LoggingManager) GetLogger(component string) *StructuredLogger {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := newStructuredLogger(lm.output, lm.level, component)
	for key, value := range lm.globalContext {
		logger = logger.WithContext(key, value)
	}

	lm.loggers[component] = logger
	return logger
}

// ParseLevel converts a level name to a slog level. Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogLevel sets the logging level for all loggers.
// Accepts any string and defaults to INFO for invalid levels.
func (lm *LoggingManager) SetLogLevel(level string) {
	lm.level.Set(ParseLevel(level))
}

// LogLevel returns the current level name
func (lm *LoggingManager) LogLevel() string {
	return lm.level.Level().String()
}

// SetGlobalContext sets global context that will be added to all log entries
func (lm *LoggingManager) SetGlobalContext(key string, value interface{}) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.globalContext[key] = value
	for component, logger := range lm.loggers {
		lm.loggers[component] = logger.WithContext(key, value)
	}
}

// LogMCPRequest logs MCP protocol requests with timing
func (lm *LoggingManager) LogMCPRequest(method string, requestID interface{}, duration time.Duration, success bool, errorMsg string) {
	logger := lm.GetLogger("mcp_protocol")
	if !success && errorMsg != "" {
		logger = logger.WithContext("error_message", errorMsg)
	}
	logger.LogMCPMessage(method, requestID, duration, success)

	if success {
		lm.updateStats("mcp_protocol", "DEBUG")
	} else {
		lm.updateStats("mcp_protocol", "WARN")
	}
}

// LogError logs an error with full context
func (lm *LoggingManager) LogError(component string, err error, message string, context map[string]interface{}) {
	logger := lm.GetLogger(component).WithError(err)
	for k, v := range context {
		logger = logger.WithContext(k, v)
	}
	logger.Error(message)
	lm.updateStats(component, "ERROR")
}

// LogCircuitBreakerStateChange logs circuit breaker state changes
func (lm *LoggingManager) LogCircuitBreakerStateChange(name string, oldState, newState errors.CircuitBreakerState) {
	lm.GetLogger("circuit_breaker").LogCircuitBreakerEvent(name, oldState, newState)
	lm.updateStats("circuit_breaker", "WARN")
}

// LogConfigReload logs a configuration hot reload
func (lm *LoggingManager) LogConfigReload(path string, err error) {
	logger := lm.GetLogger("config").WithContext("config_path", path)
	if err != nil {
		logger.WithError(err).Warn("Configuration reload failed")
		lm.updateStats("config", "WARN")
		return
	}
	logger.WithContext("log_level", lm.LogLevel()).Info("Configuration reloaded")
	lm.updateStats("config", "INFO")
}

// LogStartupSequence logs application startup sequence
func (lm *LoggingManager) LogStartupSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	lm.GetLogger("startup").LogStartup(phase, withOutcome(details, duration, success))
	if success {
		lm.updateStats("startup", "INFO")
	} else {
		lm.updateStats("startup", "ERROR")
	}
}

// LogShutdownSequence logs application shutdown sequence
func (lm *LoggingManager) LogShutdownSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	lm.GetLogger("shutdown").LogShutdown(phase, withOutcome(details, duration, success))
	if success {
		lm.updateStats("shutdown", "INFO")
	} else {
		lm.updateStats("shutdown", "ERROR")
	}
}

func withOutcome(details map[string]interface{}, duration time.Duration, success bool) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		out[k] = v
	}
	out["duration_ms"] = duration.Milliseconds()
	out["success"] = success
	return out
}

// updateStats updates logging statistics
func (lm *LoggingManager) updateStats(component, level string) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.stats.TotalMessages++
	lm.stats.MessagesByLevel[level]++
	lm.stats.MessagesByLogger[component]++
	lm.stats.LastLogTime = time.Now()

	if level == "ERROR" {
		lm.stats.ErrorCount++
	}
}

// GetStats returns current logging statistics
func (lm *LoggingManager) GetStats() LoggingStats {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	stats := LoggingStats{
		TotalMessages:    lm.stats.TotalMessages,
		ErrorCount:       lm.stats.ErrorCount,
		LastLogTime:      lm.stats.LastLogTime,
		MessagesByLevel:  make(map[string]int64, len(lm.stats.MessagesByLevel)),
		MessagesByLogger: make(map[string]int64, len(lm.stats.MessagesByLogger)),
	}
	for k, v := range lm.stats.MessagesByLevel {
		stats.MessagesByLevel[k] = v
	}
	for k, v := range lm.stats.MessagesByLogger {
		stats.MessagesByLogger[k] = v
	}
	return stats
}
