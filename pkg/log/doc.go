// Package log provides the structured logging port used by posebridge.
//
// Components log through the [Logger] interface so that the channel,
// worker and session code never import a concrete logging library. The
// zerolog adapter is what the CLI wires in; the no-op logger keeps tests
// quiet.
//
//	logger := log.NewZerologAdapterWithLogger(zl).With(log.String("component", "telemetry"))
//	logger.Info("peer connected", log.String("peer", addr))
//
// Implement [Logger] to route output elsewhere.
package log
