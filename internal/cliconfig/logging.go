package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// Logger returns the bootstrap logger used before configuration is loaded.
func Logger() zerolog.Logger {
	return logger
}

// NewLogger builds the process logger from cfg and applies its level
// globally. The returned closer releases the log file, if any.
func NewLogger(cfg Config) (zerolog.Logger, io.Closer, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	if err := SetLevel(cfg.LogLevel); err != nil {
		return zerolog.Logger{}, nil, err
	}

	var out io.Writer = stderr
	if cfg.LogFormat != LogFormatJSON {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	return zerolog.New(out).With().Timestamp().Logger(), closer, nil
}

// SetLevel sets the global zerolog level.
func SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
