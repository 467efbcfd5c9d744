package cliconfig

import "os"

// ApplyEnvConfig applies POSEBRIDGE_* environment variables to cfg.
// These override file config but are overridden by flags (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("telemetry-address", os.Getenv("POSEBRIDGE_TELEMETRY_ADDRESS"), &cfg.TelemetryAddress)
	s.setString("command-address", os.Getenv("POSEBRIDGE_COMMAND_ADDRESS"), &cfg.CommandAddress)
	s.setString("confirm", os.Getenv("POSEBRIDGE_CONFIRM"), &cfg.Confirm)
	s.setString("metrics-address", os.Getenv("POSEBRIDGE_METRICS_ADDRESS"), &cfg.MetricsAddress)
	s.setString("log-level", os.Getenv("POSEBRIDGE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("POSEBRIDGE_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("log-file", os.Getenv("POSEBRIDGE_LOG_FILE"), &cfg.LogFile)
	s.setString("sim-state-file", os.Getenv("POSEBRIDGE_SIM_STATE_FILE"), &cfg.SimStateFile)

	if err := s.setDuration("shutdown-timeout", os.Getenv("POSEBRIDGE_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sim-move-duration", os.Getenv("POSEBRIDGE_SIM_MOVE_DURATION"), &cfg.SimMoveDuration); err != nil {
		return err
	}

	if err := s.setIntFromString("telemetry-port", os.Getenv("POSEBRIDGE_TELEMETRY_PORT"), &cfg.TelemetryPort); err != nil {
		return err
	}
	if err := s.setIntFromString("command-port", os.Getenv("POSEBRIDGE_COMMAND_PORT"), &cfg.CommandPort); err != nil {
		return err
	}
	if err := s.setIntFromString("log-max-size", os.Getenv("POSEBRIDGE_LOG_MAX_SIZE_MB"), &cfg.LogMaxSizeMB); err != nil {
		return err
	}
	if err := s.setIntFromString("log-max-backups", os.Getenv("POSEBRIDGE_LOG_MAX_BACKUPS"), &cfg.LogMaxBackups); err != nil {
		return err
	}
	if err := s.setIntFromString("log-max-age", os.Getenv("POSEBRIDGE_LOG_MAX_AGE_DAYS"), &cfg.LogMaxAgeDays); err != nil {
		return err
	}

	if err := s.setFloatFromString("sim-reach", os.Getenv("POSEBRIDGE_SIM_REACH"), &cfg.SimReach); err != nil {
		return err
	}

	return nil
}
