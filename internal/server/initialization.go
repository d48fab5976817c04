package server

import (
	"context"
	"os"
	"time"

	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/monitor"
)

// engineStartGrace is how long Serve waits for the engine before it starts
// answering requests anyway. Calls made before the engine is ready fail with
// ENGINE_UNAVAILABLE.
const engineStartGrace = 2 * time.Second

// startEngine initializes the engine in the background and waits up to
// engineStartGrace for it
func (s *MCPServer) startEngine(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.initializeEngine(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(engineStartGrace):
		s.logger.WithContext("engine_mode", s.engineMode).
			Info("Engine not ready yet; serving requests while it starts")
	}
}

// initializeEngine brings the engine up and logs the outcome. A failure is
// not fatal: tools/list keeps working and tool calls report the engine error.
func (s *MCPServer) initializeEngine(ctx context.Context) {
	initStart := time.Now()

	if err := s.engine.Initialize(ctx); err != nil {
		s.loggingManager.LogStartupSequence("engine_init", map[string]interface{}{
			"engine_mode": s.engineMode,
			"error":       err.Error(),
		}, time.Since(initStart), false)
		s.logger.WithError(err).Warn("Failed to initialize geometry engine")
		return
	}

	s.loggingManager.LogStartupSequence("engine_init", map[string]interface{}{
		"engine_mode": s.engineMode,
	}, time.Since(initStart), true)
}

// setupConfigWatch starts watching the configuration file
func (s *MCPServer) setupConfigWatch() error {
	if s.configPath == "" {
		return errors.NewConfigError(errors.ErrCodeConfigRead, "no configuration file to watch", nil)
	}
	if _, err := os.Stat(s.configPath); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigRead, "configuration file is not accessible", err).
			WithContext("config_path", s.configPath)
	}

	configMonitor, err := monitor.NewConfigMonitor(s.loggingManager.GetLogger("config_monitor"))
	if err != nil {
		return err
	}
	if err := configMonitor.WatchFile(s.configPath, s.handleConfigEvent); err != nil {
		_ = configMonitor.StopWatching()
		return err
	}

	s.mu.Lock()
	s.configMonitor = configMonitor
	s.mu.Unlock()

	s.logger.WithContext("config_path", s.configPath).Info("Watching configuration file")
	return nil
}

// configMonitorStarted reports whether the config watcher is running
func (s *MCPServer) configMonitorStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configMonitor != nil
}
