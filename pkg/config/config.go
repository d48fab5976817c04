// Package config loads the service configuration from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mcp-geogebra-service/pkg/errors"
)

// Engine modes
const (
	EngineModeMemory = "memory"
	EngineModeBridge = "bridge"
)

// Environment variables that override file values
const (
	EnvConfigPath = "GEOGEBRA_MCP_CONFIG"
	EnvLogLevel   = "GEOGEBRA_MCP_LOG_LEVEL"
	EnvEngineMode = "GEOGEBRA_MCP_ENGINE"
	EnvBridgeAddr = "GEOGEBRA_MCP_BRIDGE_ADDR"
)

// DefaultConfigPath is used when neither a flag nor EnvConfigPath names a file
const DefaultConfigPath = "geogebra-mcp.yaml"

// Config is the root configuration document
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
}

// ServerConfig describes the MCP server identity
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig selects and tunes the geometry engine
type EngineConfig struct {
	Mode    string        `yaml:"mode"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BridgeConfig configures the websocket bridge to a browser-hosted applet
type BridgeConfig struct {
	Address        string        `yaml:"address"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout"`
}

// BreakerConfig configures the circuit breaker in front of the engine
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxFailures      int           `yaml:"max_failures"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "mcp-geogebra-service",
			Version: "1.0.0",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Engine: EngineConfig{
			Mode: EngineModeMemory,
			Bridge: BridgeConfig{
				Address:        "127.0.0.1:8765",
				CommandTimeout: 10 * time.Second,
				ReadyTimeout:   30 * time.Second,
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxFailures:      5,
				ResetTimeout:     30 * time.Second,
				SuccessThreshold: 2,
			},
		},
	}
}

// ResolvePath picks the configuration path: explicit flag value first, then
// EnvConfigPath, then DefaultConfigPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads the file at path on top of Default(). A missing file is not an
// error; the defaults (plus environment overrides) are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("failed to parse %s", path), err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, errors.NewConfigError(errors.ErrCodeConfigRead,
			fmt.Sprintf("failed to read %s", path), err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Default() without touching the
// environment
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "failed to parse configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvEngineMode); v != "" {
		c.Engine.Mode = v
	}
	if v := os.Getenv(EnvBridgeAddr); v != "" {
		c.Engine.Bridge.Address = v
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	c.Engine.Mode = strings.ToLower(strings.TrimSpace(c.Engine.Mode))

	switch c.Engine.Mode {
	case EngineModeMemory:
	case EngineModeBridge:
		if c.Engine.Bridge.Address == "" {
			return invalid("engine.bridge.address is required in bridge mode")
		}
		if c.Engine.Bridge.CommandTimeout <= 0 {
			return invalid("engine.bridge.command_timeout must be positive")
		}
	default:
		return invalid(fmt.Sprintf("unknown engine.mode %q (expected %q or %q)",
			c.Engine.Mode, EngineModeMemory, EngineModeBridge))
	}

	if c.Engine.Breaker.Enabled {
		if c.Engine.Breaker.MaxFailures <= 0 {
			return invalid("engine.breaker.max_failures must be positive")
		}
		if c.Engine.Breaker.ResetTimeout <= 0 {
			return invalid("engine.breaker.reset_timeout must be positive")
		}
	}
	return nil
}

func invalid(message string) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, message, nil)
}
