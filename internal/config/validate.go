package config

import (
	"errors"
	"fmt"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	// Parallelism must be >= 1
	if cfg.Parallelism < 1 {
		errs = append(errs, &ValidationError{
			Field:   "parallelism",
			Value:   cfg.Parallelism,
			Message: "must be at least 1",
		})
	}

	// Pipeline.Command must not be empty
	if cfg.Pipeline.Command == "" {
		errs = append(errs, &ValidationError{
			Field:   "pipeline.command",
			Value:   cfg.Pipeline.Command,
			Message: "must not be empty",
		})
	}

	// Pipeline.App must not be empty
	if cfg.Pipeline.App == "" {
		errs = append(errs, &ValidationError{
			Field:   "pipeline.app",
			Value:   cfg.Pipeline.App,
			Message: "must not be empty",
		})
	}

	// Pipeline.SpecDirs must name at least one directory
	if len(cfg.Pipeline.SpecDirs) == 0 {
		errs = append(errs, &ValidationError{
			Field:   "pipeline.spec_dirs",
			Value:   cfg.Pipeline.SpecDirs,
			Message: "must name at least one directory",
		})
	}

	// Store credentials travel together
	if (cfg.Store.AccessKey == "") != (cfg.Store.SecretKey == "") {
		errs = append(errs, &ValidationError{
			Field:   "store.access_key",
			Value:   "",
			Message: "access_key and secret_key must be set together",
		})
	}

	// LogLevel must be one of: debug, info, warn, error (case-sensitive)
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
