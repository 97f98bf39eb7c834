package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate checks structural invariants of a loaded Config.
// Returns warnings (soft issues) and a hard error if the config is invalid.
func Validate(cfg *Config) (warnings []string, err error) {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("version: must be 1, got %d", cfg.Version))
	}

	if cfg.Retry.Attempts < 0 {
		errs = append(errs, fmt.Sprintf("retry.attempts: must be >= 0, got %d", cfg.Retry.Attempts))
	}
	if cfg.Retry.Delay.Duration < 0 {
		errs = append(errs, fmt.Sprintf("retry.delay: must be >= 0, got %s", cfg.Retry.Delay))
	}
	if cfg.Retry.Attempts == 1 {
		warnings = append(warnings, "retry.attempts: 1 disables push retries")
	}

	if _, lerr := zapcore.ParseLevel(cfg.Log.Level); lerr != nil {
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: unknown format %q (supported: console, json)", cfg.Log.Format))
	}

	if cfg.Output.Width < 0 {
		errs = append(errs, fmt.Sprintf("output.width: must be >= 0, got %d", cfg.Output.Width))
	}

	if cfg.Docker.Tag != "" && cfg.Docker.Repo == "" {
		warnings = append(warnings, "docker.tag is set without docker.repo")
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}
