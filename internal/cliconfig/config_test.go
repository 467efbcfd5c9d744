package cliconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/posebridge/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TelemetryPort != 30000 {
		t.Errorf("TelemetryPort = %v, want 30000", cfg.TelemetryPort)
	}
	if cfg.CommandPort != 30001 {
		t.Errorf("CommandPort = %v, want 30001", cfg.CommandPort)
	}
	if cfg.TelemetryAddress != "0.0.0.0" || cfg.CommandAddress != "0.0.0.0" {
		t.Errorf("addresses = %v/%v, want 0.0.0.0", cfg.TelemetryAddress, cfg.CommandAddress)
	}
	if cfg.Confirm != ConfirmPrompt {
		t.Errorf("Confirm = %v, want prompt", cfg.Confirm)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.SimReach != 800 {
		t.Errorf("SimReach = %v, want 800", cfg.SimReach)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "ephemeral ports may be equal",
			mutate: func(c *Config) { c.TelemetryPort, c.CommandPort = 0, 0 },
		},
		{
			name: "same port on distinct addresses",
			mutate: func(c *Config) {
				c.TelemetryAddress, c.CommandAddress = "127.0.0.1", "192.168.1.10"
				c.CommandPort = c.TelemetryPort
			},
		},
		{
			name:    "same endpoint",
			mutate:  func(c *Config) { c.CommandPort = c.TelemetryPort },
			wantErr: true,
		},
		{
			name: "same port, one unspecified address",
			mutate: func(c *Config) {
				c.CommandAddress = "127.0.0.1"
				c.CommandPort = c.TelemetryPort
			},
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.TelemetryPort = 65536 },
			wantErr: true,
		},
		{
			name:    "negative port",
			mutate:  func(c *Config) { c.CommandPort = -1 },
			wantErr: true,
		},
		{
			name:    "unknown confirm mode",
			mutate:  func(c *Config) { c.Confirm = "maybe" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
		{
			name:    "negative shutdown timeout",
			mutate:  func(c *Config) { c.ShutdownTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative reach",
			mutate:  func(c *Config) { c.SimReach = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error but got nil")
				}
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_ValidateFillsAddresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TelemetryAddress = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if cfg.TelemetryAddress != "0.0.0.0" {
		t.Errorf("TelemetryAddress = %q, want 0.0.0.0", cfg.TelemetryAddress)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) expected error")
	}
}
