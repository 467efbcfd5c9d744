// Package posebridge exposes a motion controller to a remote client over
// two TCP channels: a telemetry channel answering every trigger line with
// the current pose, and a command channel accepting target poses.
//
// Example usage:
//
//	cfg := posebridge.DefaultConfig()
//	s := posebridge.New(cfg, arm, posebridge.AutoConfirm(posebridge.Accept))
//	if err := s.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Dispose()
//	if err := s.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package posebridge

import (
	"context"
	"time"

	"github.com/bft-labs/posebridge/internal/adapters/console"
	"github.com/bft-labs/posebridge/internal/app"
	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/internal/ports"
)

// Pose is a translation plus three rotation angles.
type Pose = domain.Pose

// Session serves one command peer and one telemetry peer.
type Session = app.Session

// Config configures both channels of a session.
type Config = app.SessionConfig

// SessionOption configures a Session.
type SessionOption = app.SessionOption

// MotionBackend is the motion controller a session drives.
type MotionBackend = ports.MotionBackend

// Confirmer approves or cancels each move.
type Confirmer = ports.Confirmer

// Decision is a confirmer's answer.
type Decision = ports.Decision

// Decisions.
const (
	Accept = ports.Accept
	Cancel = ports.Cancel
)

// Errors reported by sessions and their channels.
var (
	ErrBind           = domain.ErrBind
	ErrAccept         = domain.ErrAccept
	ErrReceive        = domain.ErrReceive
	ErrSend           = domain.ErrSend
	ErrClosed         = domain.ErrClosed
	ErrParse          = domain.ErrParse
	ErrMove           = domain.ErrMove
	ErrNotInitialized = domain.ErrNotInitialized
)

// Default channel ports.
const (
	DefaultTelemetryPort = 30000
	DefaultCommandPort   = 30001
)

// DefaultConfig listens on all interfaces on the default ports.
func DefaultConfig() Config {
	return Config{
		Telemetry: app.TelemetryConfig{
			Address: "0.0.0.0",
			Port:    DefaultTelemetryPort,
		},
		CommandAddress:  "0.0.0.0",
		CommandPort:     DefaultCommandPort,
		ShutdownTimeout: 10 * time.Second,
	}
}

// New creates a session. Call Initialize, then Run.
func New(cfg Config, backend MotionBackend, confirmer Confirmer, opts ...SessionOption) *Session {
	return app.NewSession(cfg, backend, confirmer, opts...)
}

// WithLogger and WithSessionID configure a Session.
var (
	WithLogger    = app.WithLogger
	WithSessionID = app.WithSessionID
)

// AutoConfirm returns a confirmer answering every move with d.
func AutoConfirm(d Decision) Confirmer {
	return console.AutoConfirmer{Decision: d}
}

// Run initializes a session, serves it until the command peer leaves or
// ctx ends, and tears it down.
func Run(ctx context.Context, cfg Config, backend MotionBackend, confirmer Confirmer, opts ...SessionOption) error {
	s := New(cfg, backend, confirmer, opts...)
	if err := s.Initialize(ctx); err != nil {
		_ = s.Dispose()
		return err
	}
	return s.Run(ctx)
}
