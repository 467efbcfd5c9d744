package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/posebridge/internal/adapters/console"
	"github.com/bft-labs/posebridge/internal/adapters/fs"
	"github.com/bft-labs/posebridge/internal/adapters/sim"
	"github.com/bft-labs/posebridge/internal/app"
	"github.com/bft-labs/posebridge/internal/cliconfig"
	"github.com/bft-labs/posebridge/internal/metrics"
	"github.com/bft-labs/posebridge/pkg/log"
	"github.com/bft-labs/posebridge/plugins/configwatcher"
)

const helpDescription = `
Bridge a motion controller to a remote client over two TCP channels.

Channels:
  - telemetry: every line received is answered with the current pose,
    "x y z a b c " terminated by a newline.
  - command: each line "x y z a b c" is a target pose. A rotation of
    "0 0 0" keeps the current orientation. Moves are confirmed before
    they execute.

One client per channel. The session ends when the command client
disconnects or sends a malformed line.
`

var exampleUsage = strings.TrimSpace(`
  posebridge --confirm accept
  posebridge --telemetry-port 30000 --command-port 30001 --metrics-address :9100
  posebridge --config $HOME/.posebridge/config.toml --log-format json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	bootLog := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "posebridge",
		Short:   "Bridge a motion controller to a remote client over TCP",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Layering: defaults < config file < POSEBRIDGE_* env < flags
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			hasFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if hasFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, closer, err := cliconfig.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()
			zl.Info().Interface("config", cfg).Msg("configuration")
			logger := log.NewZerologAdapterWithLogger(zl)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if hasFile {
				watcher := configwatcher.New(configwatcher.DefaultConfig())
				onChange := func(path string) { reloadLogLevel(zl, path, changed) }
				if err := watcher.Initialize(ctx, cfgFile, onChange, logger); err != nil {
					zl.Warn().Err(err).Msg("config watcher disabled")
				} else {
					defer watcher.Shutdown(context.Background())
				}
			}

			if cfg.MetricsAddress != "" {
				srv, err := metrics.Listen(cfg.MetricsAddress, logger)
				if err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
				go func() {
					if err := srv.Serve(ctx); err != nil {
						zl.Error().Err(err).Msg("metrics endpoint failed")
					}
				}()
			}

			arm, err := newRobot(ctx, cfg, logger)
			if err != nil {
				return err
			}

			confirmer, err := console.NewConfirmer(cfg.Confirm)
			if err != nil {
				return err
			}

			session := app.NewSession(app.SessionConfig{
				Telemetry: app.TelemetryConfig{
					Address: cfg.TelemetryAddress,
					Port:    cfg.TelemetryPort,
				},
				CommandAddress:  cfg.CommandAddress,
				CommandPort:     cfg.CommandPort,
				ShutdownTimeout: cfg.ShutdownTimeout,
			}, arm, confirmer, app.WithLogger(logger))
			defer session.Dispose()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
					_ = session.Dispose()
				case <-ctx.Done():
				}
			}()

			if err := session.Initialize(ctx); err != nil {
				return fmt.Errorf("initialize session: %w", err)
			}
			if err := session.Run(ctx); err != nil {
				return fmt.Errorf("session %s: %w", session.ID(), err)
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.posebridge/config.toml)")

	f.StringVar(&cfg.TelemetryAddress, "telemetry-address", cfg.TelemetryAddress, "telemetry channel listen address")
	f.IntVar(&cfg.TelemetryPort, "telemetry-port", cfg.TelemetryPort, "telemetry channel port (0 picks a free port)")
	f.StringVar(&cfg.CommandAddress, "command-address", cfg.CommandAddress, "command channel listen address")
	f.IntVar(&cfg.CommandPort, "command-port", cfg.CommandPort, "command channel port (0 picks a free port)")

	f.StringVar(&cfg.Confirm, "confirm", cfg.Confirm, "move confirmation: prompt, accept or reject")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "wait for the telemetry client before interrupting it (0 waits forever)")
	f.StringVar(&cfg.MetricsAddress, "metrics-address", cfg.MetricsAddress, "serve prometheus metrics on this address (disabled if empty)")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this file, rotated")
	f.IntVar(&cfg.LogMaxSizeMB, "log-max-size", cfg.LogMaxSizeMB, "log file size in MB before rotation")
	f.IntVar(&cfg.LogMaxBackups, "log-max-backups", cfg.LogMaxBackups, "rotated log files to keep")
	f.IntVar(&cfg.LogMaxAgeDays, "log-max-age", cfg.LogMaxAgeDays, "days to keep rotated log files")

	f.StringVar(&cfg.SimStateFile, "sim-state-file", cfg.SimStateFile, "persist the simulated pose to this file")
	f.Float64Var(&cfg.SimReach, "sim-reach", cfg.SimReach, "simulated reach in mm (0 = unlimited)")
	f.DurationVar(&cfg.SimMoveDuration, "sim-move-duration", cfg.SimMoveDuration, "duration of every simulated move")
	for _, name := range []string{"log-max-size", "log-max-backups", "log-max-age"} {
		if err := f.MarkHidden(name); err != nil {
			bootLog.Info().Err(err).Str("flag", name).Msg("failed to hide flag")
		}
	}

	if err := root.Execute(); err != nil {
		bootLog.Error().Err(err).Msg("posebridge")
		os.Exit(1)
	}
}

func newRobot(ctx context.Context, cfg cliconfig.Config, logger log.Logger) (*sim.Robot, error) {
	opts := []sim.Option{sim.WithLogger(logger)}
	if cfg.SimStateFile != "" {
		opts = append(opts, sim.WithRepository(fs.NewPoseFileRepository(cfg.SimStateFile)))
	}
	arm := sim.New(sim.Config{
		Reach:        cfg.SimReach,
		MoveDuration: cfg.SimMoveDuration,
	}, opts...)
	if err := arm.Restore(ctx); err != nil {
		return nil, err
	}
	return arm, nil
}

// reloadLogLevel reapplies log_level from the config file unless a flag or
// the environment pinned it.
func reloadLogLevel(zl zerolog.Logger, path string, changed map[string]bool) {
	if changed["log-level"] {
		return
	}
	if os.Getenv("POSEBRIDGE_LOG_LEVEL") != "" {
		return
	}
	fc, err := cliconfig.LoadFileConfig(path)
	if err != nil {
		zl.Warn().Err(err).Msg("reload config")
		return
	}
	if fc.LogLevel == "" {
		return
	}
	if err := cliconfig.SetLevel(fc.LogLevel); err != nil {
		zl.Warn().Err(err).Msg("ignoring log level from config file")
		return
	}
	zl.Info().Str("log_level", fc.LogLevel).Msg("log level reloaded")
}
