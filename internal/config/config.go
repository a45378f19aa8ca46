// Package config provides configuration management for incidentloop.
//
// Configuration sources (priority order, high to low):
//  1. Environment variables (INCIDENTLOOP_* prefix)
//  2. YAML config file (default: /etc/incidentloop/config.yaml)
//  3. Built-in defaults
package config

import "context"

// Config contains all configuration fields.
type Config struct {
	// Server configuration
	Server struct {
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	// Harness configuration
	Harness struct {
		IterationLimit int
		// SelectionStrategy picks how evidence tools are planned per
		// iteration: "table" or "reasoner".
		SelectionStrategy string
		AutoExecute       float64
		ExecuteReview     float64
		RequireApproval   float64
	}

	// Reasoner provider configuration
	Reasoner struct {
		Provider  string // "anthropic" | "openai" | "demo"
		Anthropic map[string]interface{}
		OpenAI    map[string]interface{}
	}

	// Database configuration
	Database struct {
		SQLitePath string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Audit log configuration
	Audit struct {
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// Manager defines the interface for configuration access.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration file changes and emits reloaded configs.
	Watch(ctx context.Context) <-chan Config

	// Reload re-reads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a new configuration manager reading from configPath.
func NewManager(configPath string) (Manager, error) {
	return &viperManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}, nil
}

// NewManagerWithDefaults creates a config manager with the default config path.
func NewManagerWithDefaults() (Manager, error) {
	return NewManager("/etc/incidentloop/config.yaml")
}
