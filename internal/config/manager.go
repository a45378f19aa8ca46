package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperManager implements Manager using Viper.
type viperManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("INCIDENTLOOP")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// The config file is optional; defaults plus env vars are a valid setup.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	m.unmarshalConfig()
	m.applyEnvOverrides()
	return nil
}

// Get returns the current configuration.
func (m *viperManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var msgs []string
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		m.unmarshalConfig()
		select {
		case m.watchChan <- *m.config:
		default:
			// channel full, skip this update
		}
	})
	return m.watchChan
}

// Reload re-reads configuration from sources.
func (m *viperManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	m.unmarshalConfig()
	m.applyEnvOverrides()
	return nil
}

func (m *viperManager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	m.viper.SetDefault("harness.iteration_limit", defaults.Harness.IterationLimit)
	m.viper.SetDefault("harness.selection_strategy", defaults.Harness.SelectionStrategy)
	m.viper.SetDefault("harness.auto_execute", defaults.Harness.AutoExecute)
	m.viper.SetDefault("harness.execute_review", defaults.Harness.ExecuteReview)
	m.viper.SetDefault("harness.require_approval", defaults.Harness.RequireApproval)

	m.viper.SetDefault("reasoner.provider", defaults.Reasoner.Provider)
	m.viper.SetDefault("reasoner.anthropic", defaults.Reasoner.Anthropic)
	m.viper.SetDefault("reasoner.openai", defaults.Reasoner.OpenAI)

	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)

	m.viper.SetDefault("audit.path", defaults.Audit.Path)
	m.viper.SetDefault("audit.max_size_mb", defaults.Audit.MaxSizeMB)
	m.viper.SetDefault("audit.max_backups", defaults.Audit.MaxBackups)
	m.viper.SetDefault("audit.max_age_days", defaults.Audit.MaxAgeDays)
}

func (m *viperManager) unmarshalConfig() {
	cfg := &Config{}

	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")

	cfg.Harness.IterationLimit = m.viper.GetInt("harness.iteration_limit")
	cfg.Harness.SelectionStrategy = m.viper.GetString("harness.selection_strategy")
	cfg.Harness.AutoExecute = m.viper.GetFloat64("harness.auto_execute")
	cfg.Harness.ExecuteReview = m.viper.GetFloat64("harness.execute_review")
	cfg.Harness.RequireApproval = m.viper.GetFloat64("harness.require_approval")

	cfg.Reasoner.Provider = m.viper.GetString("reasoner.provider")
	cfg.Reasoner.Anthropic = m.viper.GetStringMap("reasoner.anthropic")
	cfg.Reasoner.OpenAI = m.viper.GetStringMap("reasoner.openai")

	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")

	cfg.Audit.Path = m.viper.GetString("audit.path")
	cfg.Audit.MaxSizeMB = m.viper.GetInt("audit.max_size_mb")
	cfg.Audit.MaxBackups = m.viper.GetInt("audit.max_backups")
	cfg.Audit.MaxAgeDays = m.viper.GetInt("audit.max_age_days")

	m.config = cfg
}

// applyEnvOverrides applies environment variable overrides for sensitive data.
func (m *viperManager) applyEnvOverrides() {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		if m.config.Reasoner.Anthropic == nil {
			m.config.Reasoner.Anthropic = make(map[string]interface{})
		}
		m.config.Reasoner.Anthropic["api_key"] = apiKey
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if m.config.Reasoner.OpenAI == nil {
			m.config.Reasoner.OpenAI = make(map[string]interface{})
		}
		m.config.Reasoner.OpenAI["api_key"] = apiKey
	}

	if port := os.Getenv("INCIDENTLOOP_PORT"); port != "" {
		m.config.Server.Port = m.viper.GetInt("port")
	}
}
