package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/posebridge/internal/domain"
)

// Default channel ports.
const (
	DefaultTelemetryPort = 30000
	DefaultCommandPort   = 30001
)

// Confirm modes.
const (
	ConfirmPrompt = "prompt"
	ConfirmAccept = "accept"
	ConfirmReject = "reject"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds CLI configuration for posebridge.
type Config struct {
	TelemetryAddress string
	TelemetryPort    int
	CommandAddress   string
	CommandPort      int

	Confirm         string
	ShutdownTimeout time.Duration
	MetricsAddress  string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	SimStateFile    string
	SimReach        float64
	SimMoveDuration time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		TelemetryAddress: "0.0.0.0",
		TelemetryPort:    DefaultTelemetryPort,
		CommandAddress:   "0.0.0.0",
		CommandPort:      DefaultCommandPort,
		Confirm:          ConfirmPrompt,
		ShutdownTimeout:  10 * time.Second,
		LogLevel:         "info",
		LogFormat:        LogFormatConsole,
		LogMaxSizeMB:     100,
		LogMaxBackups:    3,
		LogMaxAgeDays:    28,
		SimReach:         800,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.TelemetryAddress == "" {
		c.TelemetryAddress = "0.0.0.0"
	}
	if c.CommandAddress == "" {
		c.CommandAddress = "0.0.0.0"
	}

	if err := validPort("telemetry-port", c.TelemetryPort); err != nil {
		return err
	}
	if err := validPort("command-port", c.CommandPort); err != nil {
		return err
	}
	if c.TelemetryPort != 0 && c.TelemetryPort == c.CommandPort && overlaps(c.TelemetryAddress, c.CommandAddress) {
		return fmt.Errorf("%w: telemetry and command channels both use %s:%d",
			domain.ErrInvalidConfig, c.CommandAddress, c.CommandPort)
	}

	switch c.Confirm {
	case ConfirmPrompt, ConfirmAccept, ConfirmReject:
	default:
		return fmt.Errorf("%w: confirm must be prompt, accept or reject, got %q", domain.ErrInvalidConfig, c.Confirm)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("%w: log format must be console or json, got %q", domain.ErrInvalidConfig, c.LogFormat)
	}

	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.SimReach < 0 {
		return fmt.Errorf("%w: sim reach must not be negative", domain.ErrInvalidConfig)
	}
	if c.SimMoveDuration < 0 {
		return fmt.Errorf("%w: sim move duration must not be negative", domain.ErrInvalidConfig)
	}

	return nil
}

// ParseLevel parses a log level name. Only debug, info, warn and error are
// accepted.
func ParseLevel(s string) (zerolog.Level, error) {
	switch s {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, s)
}

func validPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %s %d out of range 0..65535", domain.ErrInvalidConfig, name, port)
	}
	return nil
}

// overlaps reports whether two listen addresses can collide. The
// unspecified address collides with everything.
func overlaps(a, b string) bool {
	return a == b || a == "0.0.0.0" || b == "0.0.0.0"
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer if not nil and flag not changed.
// Zero is a valid value (ephemeral port, unlimited reach).
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}
