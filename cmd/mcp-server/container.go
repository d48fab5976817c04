package main

import (
	"os"

	"go.uber.org/dig"

	"mcp-geogebra-service/internal/server"
	"mcp-geogebra-service/pkg/config"
	"mcp-geogebra-service/pkg/engine"
	"mcp-geogebra-service/pkg/logging"
)

// options holds the command line flags. Empty values defer to the
// configuration file and environment.
type options struct {
	configPath string
	logLevel   string
	engineMode string
	bridgeAddr string
}

// configPath is the resolved configuration file path
type configPath string

// engines is the selected engine plus the bridge, when the bridge is the
// engine, so its HTTP server can be run
type engines struct {
	engine engine.Engine
	bridge *engine.BridgeEngine
}

// container holds the wired components
type container struct {
	config *config.Config
	bridge *engine.BridgeEngine
	server *server.MCPServer
}

func newContainer(opts *options) (*container, error) {
	d := dig.New()

	providers := []interface{}{
		func() *options { return opts },
		resolveConfigPath,
		loadConfig,
		newLoggingManager,
		newEngines,
		newServer,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var c *container
	err := d.Invoke(func(cfg *config.Config, e *engines, srv *server.MCPServer) {
		c = &container{config: cfg, bridge: e.bridge, server: srv}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return c, nil
}

func resolveConfigPath(opts *options) configPath {
	return configPath(config.ResolvePath(opts.configPath))
}

// loadConfig reads the file and applies flag overrides on top
func loadConfig(opts *options, path configPath) (*config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return nil, err
	}

	if opts.engineMode != "" {
		cfg.Engine.Mode = opts.engineMode
	}
	if opts.bridgeAddr != "" {
		cfg.Engine.Bridge.Address = opts.bridgeAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLoggingManager() *logging.LoggingManager {
	return logging.NewLoggingManager()
}

func newEngines(cfg *config.Config, lm *logging.LoggingManager) *engines {
	if cfg.Engine.Mode == config.EngineModeBridge {
		bridge := engine.NewBridgeEngine(engine.BridgeOptions{
			Address:        cfg.Engine.Bridge.Address,
			CommandTimeout: cfg.Engine.Bridge.CommandTimeout,
			ReadyTimeout:   cfg.Engine.Bridge.ReadyTimeout,
		}, lm.GetLogger("bridge_engine"))
		return &engines{engine: bridge, bridge: bridge}
	}
	return &engines{engine: engine.NewMemoryEngine()}
}

func newServer(cfg *config.Config, path configPath, lm *logging.LoggingManager, e *engines, opts *options) (*server.MCPServer, error) {
	_, statErr := os.Stat(string(path))

	return server.NewMCPServer(server.Options{
		Config:           cfg,
		ConfigPath:       string(path),
		Engine:           e.engine,
		LoggingManager:   lm,
		LogLevelOverride: opts.logLevel,
		WatchConfig:      statErr == nil,
	})
}
