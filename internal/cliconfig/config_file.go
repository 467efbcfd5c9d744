package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly. Numbers are pointers so an explicit zero can be told apart
// from an absent key.
type FileConfig struct {
	TelemetryAddress string   `toml:"telemetry_address"`
	TelemetryPort    *int     `toml:"telemetry_port"`
	CommandAddress   string   `toml:"command_address"`
	CommandPort      *int     `toml:"command_port"`
	Confirm          string   `toml:"confirm"`
	ShutdownTimeout  string   `toml:"shutdown_timeout"`
	MetricsAddress   string   `toml:"metrics_address"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
	LogFile          string   `toml:"log_file"`
	LogMaxSizeMB     *int     `toml:"log_max_size_mb"`
	LogMaxBackups    *int     `toml:"log_max_backups"`
	LogMaxAgeDays    *int     `toml:"log_max_age_days"`
	SimStateFile     string   `toml:"sim_state_file"`
	SimReach         *float64 `toml:"sim_reach"`
	SimMoveDuration  string   `toml:"sim_move_duration"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.posebridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".posebridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("telemetry-address", fc.TelemetryAddress, &cfg.TelemetryAddress)
	s.setString("command-address", fc.CommandAddress, &cfg.CommandAddress)
	s.setString("confirm", fc.Confirm, &cfg.Confirm)
	s.setString("metrics-address", fc.MetricsAddress, &cfg.MetricsAddress)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("sim-state-file", fc.SimStateFile, &cfg.SimStateFile)

	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sim-move-duration", fc.SimMoveDuration, &cfg.SimMoveDuration); err != nil {
		return err
	}

	s.setInt("telemetry-port", fc.TelemetryPort, &cfg.TelemetryPort)
	s.setInt("command-port", fc.CommandPort, &cfg.CommandPort)
	s.setInt("log-max-size", fc.LogMaxSizeMB, &cfg.LogMaxSizeMB)
	s.setInt("log-max-backups", fc.LogMaxBackups, &cfg.LogMaxBackups)
	s.setInt("log-max-age", fc.LogMaxAgeDays, &cfg.LogMaxAgeDays)

	s.setFloat("sim-reach", fc.SimReach, &cfg.SimReach)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
