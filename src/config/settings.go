package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// RetryConfig controls the push retry policy.
type RetryConfig struct {
	Attempts int      `yaml:"attempts" toml:"attempts"`
	Delay    Duration `yaml:"delay" toml:"delay"`
}

// DefaultRetryConfig returns 60 attempts one second apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 60, Delay: Duration{time.Second}}
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // console or json
}

// DefaultLogConfig returns info-level console logging.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "console"}
}

// OutputConfig controls the build transcript.
type OutputConfig struct {
	// Width of the banner around build output. Zero uses the terminal width.
	Width int `yaml:"width" toml:"width"`
}

// Duration is a time.Duration written as a Go duration string ("1s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML accepts a duration string or a plain integer of seconds:
//
//	delay: 1s
//	delay: 2   → 2s
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got YAML kind %d", value.Kind)
	}
	var n int
	if value.ShortTag() == "!!int" && value.Decode(&n) == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	return d.UnmarshalText([]byte(value.Value))
}
