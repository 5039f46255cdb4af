package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validAuthModes := []string{"token", "password"}
	if cfg.Server.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Server.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "server.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Server.Auth.Mode),
		})
	}

	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertPath == "" || cfg.Server.TLS.KeyPath == "" {
			issues = append(issues, ValidationIssue{
				Path:    "server.tls",
				Message: "certPath and keyPath are required when TLS is enabled",
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validBackends := []string{"sqlite", "memory"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}

	if cfg.Activation.DispatchTimeoutSec < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "activation.dispatchTimeoutSec",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Activation.DispatchTimeoutSec),
		})
	}
	if cfg.Activation.WatchIntervalMs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "activation.watchIntervalMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Activation.WatchIntervalMs),
		})
	}
	if cfg.Activation.MaxParallel < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "activation.maxParallel",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Activation.MaxParallel),
		})
	}

	return issues
}
