package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Port = 8081
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

	// Harness defaults
	cfg.Harness.IterationLimit = 5
	cfg.Harness.SelectionStrategy = "table"
	cfg.Harness.AutoExecute = 95
	cfg.Harness.ExecuteReview = 85
	cfg.Harness.RequireApproval = 70

	// Reasoner defaults
	cfg.Reasoner.Provider = "demo"
	cfg.Reasoner.Anthropic = map[string]interface{}{
		"model": "claude-3-5-sonnet-20241022",
	}
	cfg.Reasoner.OpenAI = map[string]interface{}{
		"model": "gpt-4o",
	}

	// Database defaults
	cfg.Database.SQLitePath = "/var/lib/incidentloop/incidentloop.db"

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	// Audit defaults
	cfg.Audit.Path = "/var/log/incidentloop/audit.log"
	cfg.Audit.MaxSizeMB = 100
	cfg.Audit.MaxBackups = 5
	cfg.Audit.MaxAgeDays = 90

	return cfg
}
