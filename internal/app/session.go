package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/temoto/alive/v2"

	"github.com/bft-labs/posebridge/internal/adapters/tcp"
	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/internal/metrics"
	"github.com/bft-labs/posebridge/internal/ports"
	"github.com/bft-labs/posebridge/pkg/log"
)

// SessionConfig configures both channels of a session.
type SessionConfig struct {
	Telemetry TelemetryConfig

	CommandAddress string
	CommandPort    int

	// ShutdownTimeout bounds the cooperative telemetry stop during
	// teardown; after it the worker is interrupted. Zero waits forever.
	ShutdownTimeout time.Duration
}

// Session drives the command channel and supervises the telemetry worker.
// The host calls Initialize, then Run; Dispose may be called at any time
// from any goroutine and tears down exactly once.
type Session struct {
	cfg       SessionConfig
	id        string
	backend   ports.MotionBackend
	confirmer ports.Confirmer
	logger    log.Logger
	worker    *TelemetryWorker
	tasks     *alive.Alive

	mu          sync.Mutex
	command     *tcp.Endpoint
	initialized bool
	initErr     error
	stopWatch   func() bool

	teardownOnce sync.Once
	teardownErr  error
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	logger  log.Logger
	emitter EventEmitter
	id      string
}

// WithLogger sets the session logger. Channel loggers derive from it.
func WithLogger(l log.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// WithWorkerEmitter registers a listener for telemetry worker state changes.
func WithWorkerEmitter(e EventEmitter) SessionOption {
	return func(o *sessionOptions) { o.emitter = e }
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) SessionOption {
	return func(o *sessionOptions) { o.id = id }
}

// NewSession creates a session. Nothing is bound until Initialize.
func NewSession(cfg SessionConfig, backend ports.MotionBackend, confirmer ports.Confirmer, opts ...SessionOption) *Session {
	o := sessionOptions{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	logger := o.logger.With(log.String("session", o.id))

	worker := NewTelemetryWorker(cfg.Telemetry, backend,
		WithTelemetryLogger(logger),
		WithTelemetryEmitter(o.emitter),
	)

	return &Session{
		cfg:       cfg,
		id:        o.id,
		backend:   backend,
		confirmer: confirmer,
		logger:    logger.With(log.String("component", "session")),
		worker:    worker,
		tasks:     alive.NewAlive(),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Worker returns the session's telemetry worker.
func (s *Session) Worker() *TelemetryWorker { return s.worker }

// CommandAddr returns the bound command channel address, or nil.
func (s *Session) CommandAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.command == nil {
		return nil
	}
	return s.command.Addr()
}

// Initialize starts the telemetry worker, then binds the command channel.
// On any failure the worker is stopped before returning, and Run will
// refuse to start.
func (s *Session) Initialize(ctx context.Context) error {
	if err := s.worker.Start(ctx); err != nil {
		s.logger.Error("telemetry channel failed to start", log.Err(err))
		s.stopWorker()
		s.setInitErr(err)
		return err
	}

	cmd, err := tcp.Bind(s.cfg.CommandAddress, s.cfg.CommandPort,
		tcp.WithLogger(s.logger.With(log.String("component", metrics.ChannelCommand))),
		tcp.WithConnectionHook(metrics.ConnectionHook(metrics.ChannelCommand)),
	)
	if err != nil {
		s.logger.Error("command channel failed to bind", log.Err(err))
		s.stopWorker()
		s.setInitErr(err)
		return err
	}

	s.mu.Lock()
	s.command = cmd
	s.initialized = true
	s.stopWatch = context.AfterFunc(ctx, func() {
		s.logger.Info("context done, disposing session")
		_ = s.Dispose()
	})
	s.mu.Unlock()

	s.superviseWorker()
	return nil
}

// superviseWorker aborts the session if the telemetry worker dies because
// its channel could not be served at all.
func (s *Session) superviseWorker() {
	if !s.tasks.Add(1) {
		return
	}
	done := s.worker.Done()
	go func() {
		defer s.tasks.Done()
		select {
		case <-s.tasks.StopChan():
		case <-done:
			if err := s.worker.Err(); errors.Is(err, domain.ErrAccept) || errors.Is(err, domain.ErrBind) {
				s.logger.Error("telemetry channel failed, ending session", log.Err(err))
				s.closeCommand()
			}
		}
	}()
}

// Run accepts the command peer and serves commands until the peer leaves,
// a command is malformed or the session is disposed. Teardown always runs
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	initialized, initErr, cmd := s.initialized, s.initErr, s.command
	s.mu.Unlock()
	if !initialized {
		s.logger.Info("ending session: not initialized")
		if initErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrNotInitialized, initErr)
		}
		return domain.ErrNotInitialized
	}
	defer s.teardown()

	s.logger.Info("waiting for command connection", log.String("address", cmd.Addr().String()))
	if err := cmd.Accept(); err != nil {
		if errors.Is(err, domain.ErrClosed) {
			s.logger.Info("session ended before a command peer connected")
			return nil
		}
		s.logger.Error("command channel accept failed", log.Err(err))
		return err
	}

	for cmd.IsConnected() {
		line, err := cmd.ReceiveLine()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.logger.Info("command peer disconnected")
				return nil
			case errors.Is(err, domain.ErrClosed):
				return nil
			default:
				s.logger.Error("command receive failed", log.Err(err))
				return err
			}
		}
		s.logger.Info("command received", log.String("line", line))

		target, err := s.target(line)
		if err != nil {
			s.logger.Error("ending session", log.Err(err))
			return err
		}
		s.dispatch(ctx, target)
	}
	return nil
}

// target parses a command line and resolves the keep-orientation
// convention against the backend's current pose.
func (s *Session) target(line string) (domain.Pose, error) {
	cmd, err := domain.ParseCommand(line)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(metrics.ResultParseError).Inc()
		return domain.Pose{}, err
	}
	metrics.CommandsTotal.WithLabelValues(metrics.ResultParsed).Inc()

	if !cmd.Orientation().IsZero() {
		return cmd, nil
	}
	current, err := s.backend.CurrentPose()
	if err != nil {
		return domain.Pose{}, fmt.Errorf("sample current orientation: %w", err)
	}
	s.logger.Debug("zero rotation, keeping current orientation", log.String("orientation", current.String()))
	return domain.ResolveTarget(cmd, current.Orientation()), nil
}

// dispatch asks for confirmation and executes the move. Failures are
// logged and the session continues.
func (s *Session) dispatch(ctx context.Context, target domain.Pose) {
	decision, err := s.confirmer.Confirm(ctx, fmt.Sprintf("move to %s?", target))
	if err != nil {
		s.logger.Warn("confirmation failed, move skipped", log.Err(err))
		metrics.MovesTotal.WithLabelValues(metrics.ResultCancelled).Inc()
		return
	}
	if decision != ports.Accept {
		s.logger.Info("move cancelled", log.String("target", target.String()))
		metrics.MovesTotal.WithLabelValues(metrics.ResultCancelled).Inc()
		return
	}

	start := time.Now()
	if err := s.backend.ExecuteMove(ctx, target); err != nil {
		s.logger.Error("move failed", log.String("target", target.String()), log.Err(err))
		metrics.MovesTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}
	elapsed := time.Since(start)
	metrics.MoveDuration.Observe(elapsed.Seconds())
	metrics.MovesTotal.WithLabelValues(metrics.ResultExecuted).Inc()
	s.logger.Info("moved", log.String("target", target.String()), log.Duration("duration", elapsed))
}

// Dispose tears the session down. Safe to call repeatedly and
// concurrently with Run.
func (s *Session) Dispose() error {
	return s.teardown()
}

func (s *Session) teardown() error {
	s.teardownOnce.Do(func() {
		var errs []error
		if err := s.closeCommand(); err != nil {
			errs = append(errs, err)
		}
		s.stopWorker()

		s.tasks.Stop()
		s.tasks.WaitTasks()

		s.mu.Lock()
		stopWatch := s.stopWatch
		s.mu.Unlock()
		if stopWatch != nil {
			stopWatch()
		}

		s.teardownErr = errors.Join(errs...)
		s.logger.Info("session torn down, channels released")
	})
	return s.teardownErr
}

func (s *Session) closeCommand() error {
	s.mu.Lock()
	cmd := s.command
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if err := cmd.Close(); err != nil {
		s.logger.Warn("close command channel", log.Err(err))
		return err
	}
	return nil
}

// stopWorker requests a cooperative stop and escalates to Interrupt once
// ShutdownTimeout passes.
func (s *Session) stopWorker() {
	ctx := context.Background()
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := s.worker.Stop(ctx); err != nil {
		s.logger.Warn("telemetry worker did not stop in time, interrupting",
			log.Duration("timeout", s.cfg.ShutdownTimeout))
		s.worker.Interrupt()
		_ = s.worker.Wait(context.Background())
	}
}

func (s *Session) setInitErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initErr = err
}
