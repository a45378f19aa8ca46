package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	if c.Harness.IterationLimit < 1 {
		errs = append(errs, &ValidationError{
			Field:   "harness.iteration_limit",
			Message: fmt.Sprintf("iteration_limit must be at least 1, got %d", c.Harness.IterationLimit),
		})
	}

	validStrategies := map[string]bool{
		"table":    true,
		"reasoner": true,
	}
	if !validStrategies[c.Harness.SelectionStrategy] {
		errs = append(errs, &ValidationError{
			Field:   "harness.selection_strategy",
			Message: fmt.Sprintf("invalid selection strategy '%s', must be one of: table, reasoner", c.Harness.SelectionStrategy),
		})
	}

	for _, th := range []struct {
		field string
		value float64
	}{
		{"harness.auto_execute", c.Harness.AutoExecute},
		{"harness.execute_review", c.Harness.ExecuteReview},
		{"harness.require_approval", c.Harness.RequireApproval},
	} {
		if th.value < 0 || th.value > 100 {
			errs = append(errs, &ValidationError{
				Field:   th.field,
				Message: fmt.Sprintf("threshold must be between 0 and 100, got %g", th.value),
			})
		}
	}
	if !(c.Harness.AutoExecute >= c.Harness.ExecuteReview && c.Harness.ExecuteReview >= c.Harness.RequireApproval) {
		errs = append(errs, &ValidationError{
			Field:   "harness",
			Message: fmt.Sprintf("thresholds must be ordered auto_execute >= execute_review >= require_approval, got %g/%g/%g",
				c.Harness.AutoExecute, c.Harness.ExecuteReview, c.Harness.RequireApproval),
		})
	}

	validProviders := map[string]bool{
		"anthropic": true,
		"openai":    true,
		"demo":      true,
	}
	if !validProviders[c.Reasoner.Provider] {
		errs = append(errs, &ValidationError{
			Field:   "reasoner.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: anthropic, openai, demo", c.Reasoner.Provider),
		})
	}

	if c.Database.SQLitePath == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.sqlite_path",
			Message: "sqlite_path is required",
		})
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, text", c.Logging.Format),
		})
	}

	if c.Audit.MaxSizeMB < 0 {
		errs = append(errs, &ValidationError{
			Field:   "audit.max_size_mb",
			Message: fmt.Sprintf("max_size_mb cannot be negative, got %d", c.Audit.MaxSizeMB),
		})
	}

	return errs
}
