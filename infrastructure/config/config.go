// Package config provides configuration loading and parsing for the agent
// runtime.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/veritaslabs/cogito/domain/service"
	"github.com/veritaslabs/cogito/infrastructure/registry"
)

// Configuration errors.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidFormat  = errors.New("invalid config format")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Config is the root runtime configuration.
type Config struct {
	Workflow WorkflowConfig             `yaml:"workflow"`
	Breakers map[string]BreakerSettings `yaml:"circuit_breakers,omitempty"`
	Logging  LoggingConfig              `yaml:"logging"`
	Storage  StorageConfig              `yaml:"storage"`
	Tools    ToolConfig                 `yaml:"tools"`
}

// WorkflowConfig tunes the deliberation loop.
type WorkflowConfig struct {
	// MaxPonderRounds bounds how many times a thought may be re-deliberated
	// before it is forced to deferral.
	MaxPonderRounds int `yaml:"max_ponder_rounds"`
}

// BreakerSettings configures the circuit breakers of one service class.
type BreakerSettings struct {
	FailureThreshold       int     `yaml:"failure_threshold"`
	RecoveryTimeoutSeconds float64 `yaml:"recovery_timeout_seconds"`
	SuccessThreshold       int     `yaml:"success_threshold"`
	CallTimeoutSeconds     float64 `yaml:"call_timeout_seconds"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database path when backend is "sqlite".
	Path string `yaml:"path,omitempty"`

	// Redis configures the optional redis-backed memory service provider.
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis memory service provider.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ToolConfig tunes external tool execution.
type ToolConfig struct {
	MaxConcurrent  int     `yaml:"max_concurrent"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			MaxPonderRounds: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Tools: ToolConfig{
			MaxConcurrent:  10,
			TimeoutSeconds: 30,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Workflow.MaxPonderRounds <= 0 {
		return fmt.Errorf("%w: workflow.max_ponder_rounds must be positive", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path required for sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	for class, settings := range c.Breakers {
		if !service.Type(class).IsValid() {
			return fmt.Errorf("%w: unknown service class %q in circuit_breakers", ErrInvalidConfig, class)
		}
		if settings.FailureThreshold < 0 || settings.SuccessThreshold < 0 {
			return fmt.Errorf("%w: circuit_breakers.%s thresholds must not be negative", ErrInvalidConfig, class)
		}
	}
	return nil
}

// applyDefaults fills unset fields from Default.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Workflow.MaxPonderRounds == 0 {
		c.Workflow.MaxPonderRounds = def.Workflow.MaxPonderRounds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Tools.MaxConcurrent == 0 {
		c.Tools.MaxConcurrent = def.Tools.MaxConcurrent
	}
	if c.Tools.TimeoutSeconds == 0 {
		c.Tools.TimeoutSeconds = def.Tools.TimeoutSeconds
	}
}

// BreakerDefaults converts the per-class breaker settings into registry
// configuration keyed by service kind.
func (c *Config) BreakerDefaults() map[service.Type]registry.BreakerConfig {
	out := make(map[service.Type]registry.BreakerConfig, len(c.Breakers))
	for class, s := range c.Breakers {
		out[service.Type(class)] = registry.BreakerConfig{
			FailureThreshold: s.FailureThreshold,
			RecoveryTimeout:  time.Duration(s.RecoveryTimeoutSeconds * float64(time.Second)),
			SuccessThreshold: s.SuccessThreshold,
			CallTimeout:      time.Duration(s.CallTimeoutSeconds * float64(time.Second)),
		}
	}
	return out
}
