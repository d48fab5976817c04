package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"mcp-geogebra-service/internal/models"
	"mcp-geogebra-service/pkg/config"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/logging"
	"mcp-geogebra-service/pkg/monitor"
	"mcp-geogebra-service/pkg/tools"
)

// maxMessageSize bounds a single JSON-RPC line read from stdin
const maxMessageSize = 4 * 1024 * 1024

// engineBreakerName identifies the engine circuit breaker in logs and metrics
const engineBreakerName = "geogebra_engine"

// Options configures an MCPServer. Zero values fall back to defaults: the
// built-in configuration, an in-memory engine and a stderr logging manager.
type Options struct {
	Config         *config.Config
	ConfigPath     string
	Engine         engine.Engine
	LoggingManager *logging.LoggingManager

	// LogLevelOverride pins the log level; config reloads leave it alone
	LogLevelOverride string

	// WatchConfig enables hot reload of ConfigPath
	WatchConfig bool
}

// MCPServer represents the main MCP server
type MCPServer struct {
	serverInfo   models.MCPServerInfo
	capabilities models.MCPCapabilities
	initialized  bool

	config     *config.Config
	configPath string
	engineMode string

	// Geometry components
	engine      engine.Engine
	breaker     *errors.CircuitBreaker
	toolManager *tools.ToolManager

	// Config hot reload
	watchConfig      bool
	logLevelOverride string
	configMonitor    *monitor.ConfigMonitor
	reloadChan       chan monitor.FileEvent

	// Logging
	loggingManager *logging.LoggingManager
	logger         *logging.StructuredLogger

	shutdownChan chan struct{}
	shutdownOnce sync.Once

	// Synchronization
	mu sync.RWMutex
}

// NewMCPServer creates a new MCP server instance. When the engine breaker is
// enabled the engine is wrapped before the tools are built, so every engine
// call made by a tool goes through it.
func NewMCPServer(opts Options) (*MCPServer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	loggingManager := opts.LoggingManager
	if loggingManager == nil {
		loggingManager = logging.NewLoggingManager()
	}
	if opts.LogLevelOverride != "" {
		loggingManager.SetLogLevel(opts.LogLevelOverride)
	} else {
		loggingManager.SetLogLevel(cfg.Logging.Level)
	}
	loggingManager.SetGlobalContext("service", cfg.Server.Name)
	loggingManager.SetGlobalContext("version", cfg.Server.Version)
	logger := loggingManager.GetLogger("server")

	eng := opts.Engine
	if eng == nil {
		eng = engine.NewMemoryEngine()
	}

	var breaker *errors.CircuitBreaker
	if cfg.Engine.Breaker.Enabled {
		breaker = errors.NewCircuitBreaker(errors.CircuitBreakerConfig{
			Name:             engineBreakerName,
			MaxFailures:      cfg.Engine.Breaker.MaxFailures,
			ResetTimeout:     cfg.Engine.Breaker.ResetTimeout,
			SuccessThreshold: cfg.Engine.Breaker.SuccessThreshold,
		})
		breaker.OnStateChange(loggingManager.LogCircuitBreakerStateChange)
		eng = engine.WithCircuitBreaker(eng, breaker)
	}

	toolManager, err := tools.NewDefaultToolManager(eng, loggingManager.GetLogger("tools"))
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeInitializationFailed,
			"failed to register tools", err)
	}

	return &MCPServer{
		serverInfo: models.MCPServerInfo{
			Name:    cfg.Server.Name,
			Version: cfg.Server.Version,
		},
		capabilities: models.MCPCapabilities{
			Tools: &models.MCPToolCapabilities{
				ListChanged: false,
			},
		},

		config:     cfg,
		configPath: opts.ConfigPath,
		engineMode: cfg.Engine.Mode,

		engine:      eng,
		breaker:     breaker,
		toolManager: toolManager,

		watchConfig:      opts.WatchConfig,
		logLevelOverride: opts.LogLevelOverride,
		reloadChan:       make(chan monitor.FileEvent, 16),

		loggingManager: loggingManager,
		logger:         logger,

		shutdownChan: make(chan struct{}),
	}, nil
}

// ToolManager returns the server's tool registry
func (s *MCPServer) ToolManager() *tools.ToolManager {
	return s.toolManager
}

// Start initializes the engine and the config watcher, then serves JSON-RPC
// on stdin and stdout until ctx is cancelled or stdin is closed.
func (s *MCPServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve is Start with explicit streams
func (s *MCPServer) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	startTime := time.Now()

	s.loggingManager.LogStartupSequence("server_start", map[string]interface{}{
		"phase":       "initialization",
		"engine_mode": s.engineMode,
	}, 0, true)

	s.startEngine(ctx)

	if s.watchConfig {
		if err := s.setupConfigWatch(); err != nil {
			s.logger.WithError(err).Warn("Config hot reload disabled")
		} else {
			go s.configReloadCoordinator(ctx)
		}
	}

	s.loggingManager.LogStartupSequence("server_ready", map[string]interface{}{
		"total_startup_time_ms": time.Since(startTime).Milliseconds(),
		"tools":                 len(s.toolManager.ListTools()),
	}, time.Since(startTime), true)

	s.logger.Info("MCP GeoGebra Service started successfully")

	return s.processMessages(ctx, reader, writer)
}

// Shutdown stops the config watcher and releases the engine
func (s *MCPServer) Shutdown(ctx context.Context) error {
	shutdownStart := time.Now()

	s.loggingManager.LogShutdownSequence("shutdown_start", map[string]interface{}{}, 0, true)

	s.shutdownOnce.Do(func() { close(s.shutdownChan) })

	s.mu.RLock()
	configMonitor := s.configMonitor
	s.mu.RUnlock()

	if configMonitor != nil {
		monitorStart := time.Now()
		if err := configMonitor.StopWatching(); err != nil {
			s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{
				"error": err.Error(),
			}, time.Since(monitorStart), false)
		} else {
			s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{},
				time.Since(monitorStart), true)
		}
	}

	var shutdownErr error
	engineStart := time.Now()
	if err := s.engine.Cleanup(ctx); err != nil {
		s.loggingManager.LogShutdownSequence("engine_cleanup", map[string]interface{}{
			"error": err.Error(),
		}, time.Since(engineStart), false)
		s.loggingManager.LogError("server", err, "Error cleaning up engine", map[string]interface{}{
			"engine_mode": s.engineMode,
		})
		shutdownErr = errors.NewSystemError(errors.ErrCodeShutdownFailed, "engine cleanup failed", err)
	} else {
		s.loggingManager.LogShutdownSequence("engine_cleanup", map[string]interface{}{},
			time.Since(engineStart), true)
	}

	s.loggingManager.LogShutdownSequence("shutdown_complete", map[string]interface{}{
		"total_shutdown_time_ms": time.Since(shutdownStart).Milliseconds(),
	}, time.Since(shutdownStart), shutdownErr == nil)

	s.logger.Info("MCP GeoGebra Service shutdown completed")

	return shutdownErr
}

// processMessages handles the JSON-RPC message processing loop. Messages are
// newline-delimited; reading happens on its own goroutine so that ctx
// cancellation is not held up by a blocked stdin.
func (s *MCPServer) processMessages(ctx context.Context, reader io.Reader, writer io.Writer) error {
	lines := make(chan []byte)
	readDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readDone <- scanner.Err()
	}()

	encoder := json.NewEncoder(writer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownChan:
			return nil
		case err := <-readDone:
			if err != nil {
				return errors.NewMCPError(errors.ErrCodeParseError, "failed to read from client", err)
			}
			return nil
		case line := <-lines:
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			response := s.handleRawMessage(ctx, line)
			if response != nil {
				if err := encoder.Encode(response); err != nil {
					s.logger.WithError(err).Error("Error encoding response")
				}
			}
		}
	}
}

// handleRawMessage decodes one line and dispatches it
func (s *MCPServer) handleRawMessage(ctx context.Context, line []byte) *models.MCPMessage {
	var message models.MCPMessage
	if err := json.Unmarshal(line, &message); err != nil {
		s.logger.WithError(err).Warn("Error decoding message")
		structuredErr := errors.NewMCPError(errors.ErrCodeParseError, "Parse error", err)
		response := s.createStructuredErrorResponse(nil, structuredErr)
		response.Error.Code = models.ErrorCodeParseError
		return response
	}
	return s.handleMessage(ctx, &message)
}

// HandleMessage processes individual MCP messages (exported for testing)
func (s *MCPServer) HandleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	return s.handleMessage(ctx, message)
}

// handleMessage processes individual MCP messages
func (s *MCPServer) handleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	startTime := time.Now()
	var response *models.MCPMessage
	var success = true
	var errorMsg string

	defer func() {
		duration := time.Since(startTime)
		s.loggingManager.LogMCPRequest(message.Method, message.ID, duration, success, errorMsg)
	}()

	if message.JSONRPC != models.JSONRPCVersion {
		success = false
		errorMsg = "Invalid request"
		if message.IsNotification() {
			return nil
		}
		return s.createErrorResponse(message.ID, models.ErrorCodeInvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
	}

	switch message.Method {
	case models.MethodInitialize:
		response = s.handleInitialize(message)
	case models.MethodInitialized:
		response = s.handleInitialized(message)
	case models.MethodPing:
		response = s.handlePing(message)
	case models.MethodToolsList:
		response = s.handleToolsList(message)
	case models.MethodToolsCall:
		response = s.handleToolsCall(ctx, message)
	case models.MethodPerformance:
		response = s.handlePerformanceMetrics(ctx, message)
	default:
		success = false
		errorMsg = "Method not found"
		if message.IsNotification() {
			return nil
		}
		response = s.createErrorResponse(message.ID, models.ErrorCodeMethodNotFound, "Method not found")
	}

	// Check if response contains an error
	if response != nil && response.Error != nil {
		success = false
		errorMsg = response.Error.Message
	}

	return response
}
