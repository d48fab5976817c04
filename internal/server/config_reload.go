package server

import (
	"context"

	"mcp-geogebra-service/pkg/config"
	"mcp-geogebra-service/pkg/monitor"
)

// handleConfigEvent queues a debounced file event for the reload coordinator
func (s *MCPServer) handleConfigEvent(event monitor.FileEvent) {
	select {
	case s.reloadChan <- event:
	default:
		// A reload is already queued and will read the latest file
		s.logger.WithContext("event_path", event.Path).
			WithContext("event_type", event.Type).
			Debug("Reload already pending, dropping config event")
	}
}

// configReloadCoordinator applies configuration changes one at a time
func (s *MCPServer) configReloadCoordinator(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownChan:
			return
		case event := <-s.reloadChan:
			s.reloadConfig(event)
		}
	}
}

// reloadConfig re-reads the configuration file and applies the settings that
// can change at runtime. Only the log level is hot; engine settings are
// reported and take effect on restart. A file that fails to load leaves the
// running settings untouched.
func (s *MCPServer) reloadConfig(event monitor.FileEvent) {
	if event.Type == monitor.EventDelete {
		s.logger.WithContext("config_path", event.Path).
			Warn("Configuration file removed; keeping current settings")
		return
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		s.loggingManager.LogConfigReload(s.configPath, err)
		return
	}

	s.mu.Lock()
	previous := s.config
	s.config = cfg
	s.mu.Unlock()

	if s.logLevelOverride == "" {
		s.loggingManager.SetLogLevel(cfg.Logging.Level)
	}

	if cfg.Engine != previous.Engine {
		s.logger.WithContext("engine_mode", cfg.Engine.Mode).
			Warn("Engine settings changed; restart the server to apply them")
	}

	s.loggingManager.LogConfigReload(s.configPath, nil)
}
