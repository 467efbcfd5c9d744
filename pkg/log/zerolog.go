package log

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger using zerolog.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a new zerolog adapter with console output on stderr.
func NewZerologAdapter() *ZerologAdapter {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

func (z *ZerologAdapter) Debug(msg string, fields ...Field) { emit(z.logger.Debug(), msg, fields) }
func (z *ZerologAdapter) Info(msg string, fields ...Field)  { emit(z.logger.Info(), msg, fields) }
func (z *ZerologAdapter) Warn(msg string, fields ...Field)  { emit(z.logger.Warn(), msg, fields) }
func (z *ZerologAdapter) Error(msg string, fields ...Field) { emit(z.logger.Error(), msg, fields) }

// With returns a child adapter whose context carries fields.
func (z *ZerologAdapter) With(fields ...Field) Logger {
	ctx := z.logger.With()
	for _, f := range fields {
		ctx = addContextField(ctx, f)
	}
	return &ZerologAdapter{logger: ctx.Logger()}
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return z.logger
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	// Disabled levels return a nil event.
	if event == nil {
		return
	}
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

// addField adds a Field to a zerolog.Event.
func addField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case uint64:
		return event.Uint64(f.Key, v)
	case float64:
		return event.Float64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case error:
		return event.AnErr(f.Key, v)
	case fmt.Stringer:
		return event.Stringer(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}

func addContextField(ctx zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return ctx.Str(f.Key, v)
	case int:
		return ctx.Int(f.Key, v)
	case bool:
		return ctx.Bool(f.Key, v)
	case time.Duration:
		return ctx.Dur(f.Key, v)
	case error:
		return ctx.AnErr(f.Key, v)
	case fmt.Stringer:
		return ctx.Stringer(f.Key, v)
	default:
		return ctx.Interface(f.Key, v)
	}
}
