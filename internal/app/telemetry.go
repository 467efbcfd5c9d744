package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/bft-labs/posebridge/internal/adapters/tcp"
	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/internal/metrics"
	"github.com/bft-labs/posebridge/internal/ports"
	"github.com/bft-labs/posebridge/pkg/log"
)

// TelemetryConfig is where the telemetry channel listens.
type TelemetryConfig struct {
	Address string
	Port    int
}

// TelemetryWorker serves the telemetry channel from a background goroutine.
// Each trigger line received from the peer is answered with exactly one
// pose line. A stopped worker cannot be restarted; create a new one.
type TelemetryWorker struct {
	cfg       TelemetryConfig
	source    ports.PoseSource
	logger    log.Logger
	lifecycle *Lifecycle

	mu          sync.Mutex
	started     bool
	endpoint    *tcp.Endpoint
	lastErr     error
	lastMessage string
}

// TelemetryOption configures a TelemetryWorker.
type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	logger  log.Logger
	emitter EventEmitter
}

// WithTelemetryLogger sets the worker's logger.
func WithTelemetryLogger(l log.Logger) TelemetryOption {
	return func(o *telemetryOptions) { o.logger = l }
}

// WithTelemetryEmitter registers a state change listener.
func WithTelemetryEmitter(e EventEmitter) TelemetryOption {
	return func(o *telemetryOptions) { o.emitter = e }
}

// NewTelemetryWorker creates a worker in StateIdle.
func NewTelemetryWorker(cfg TelemetryConfig, source ports.PoseSource, opts ...TelemetryOption) *TelemetryWorker {
	o := telemetryOptions{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(log.String("component", metrics.ChannelTelemetry))

	return &TelemetryWorker{
		cfg:       cfg,
		source:    source,
		logger:    logger,
		lifecycle: NewLifecycle(logger, stateMetrics{next: o.emitter}),
	}
}

// Start launches the worker goroutine and returns once its channel is bound
// and listening, or with the bind error. Cancelling ctx interrupts the
// worker.
func (w *TelemetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	if err := w.lifecycle.TransitionTo(StateBinding, "Start() called"); err != nil {
		return fmt.Errorf("%w: worker already stopped", domain.ErrAlreadyStarted)
	}

	bound := make(chan error, 1)
	w.lifecycle.AddWorker()
	go w.run(bound)

	if err := <-bound; err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, w.Interrupt)
	go func() {
		_ = w.lifecycle.Wait(context.Background())
		stop()
	}()
	return nil
}

func (w *TelemetryWorker) run(bound chan<- error) {
	defer w.lifecycle.WorkerDone()

	ep, err := tcp.Bind(w.cfg.Address, w.cfg.Port,
		tcp.WithLogger(w.logger),
		tcp.WithConnectionHook(metrics.ConnectionHook(metrics.ChannelTelemetry)),
	)
	if err != nil {
		w.fail(err, "bind failed")
		bound <- err
		return
	}
	defer ep.Close()

	w.mu.Lock()
	w.endpoint = ep
	w.mu.Unlock()

	if err := w.lifecycle.TransitionTo(StateListening, "bound "+ep.Addr().String()); err != nil {
		// Stopped while binding.
		bound <- nil
		return
	}
	bound <- nil

	if err := ep.Accept(); err != nil {
		if errors.Is(err, domain.ErrClosed) {
			w.finish("channel closed before a peer connected")
			return
		}
		w.fail(err, "accept failed")
		return
	}

	if err := w.lifecycle.TransitionTo(StateServing, "peer "+ep.Peer()); err != nil {
		return
	}
	w.serve(ep)
}

// serve answers triggers until the peer leaves, the channel fails or the
// worker is stopped.
func (w *TelemetryWorker) serve(ep *tcp.Endpoint) {
	for w.lifecycle.IsServing() {
		if _, err := ep.ReceiveLine(); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				w.finish("peer disconnected")
			case errors.Is(err, domain.ErrClosed):
				w.finish("channel closed")
			default:
				w.fail(err, "receive failed")
			}
			return
		}
		metrics.TelemetryTriggersTotal.Inc()

		// A stop requested while blocked on receive suppresses the reply.
		if !w.lifecycle.IsServing() {
			return
		}

		pose, err := w.source.CurrentPose()
		if err != nil {
			w.fail(fmt.Errorf("sample pose: %w", err), "pose source failed")
			return
		}

		line := domain.FormatPose(pose)
		if err := ep.SendLine(line); err != nil {
			if errors.Is(err, domain.ErrClosed) {
				w.finish("channel closed")
				return
			}
			w.fail(err, "send failed")
			return
		}
		metrics.TelemetryResponsesTotal.Inc()

		w.mu.Lock()
		w.lastMessage = line
		w.mu.Unlock()
	}
}

// Stop clears the running state and waits for the goroutine to exit or ctx
// to end. A serving worker blocked on receive exits after the peer's next
// line or disconnect. A worker still waiting for its peer has its channel
// closed, since there is nobody to wait for.
func (w *TelemetryWorker) Stop(ctx context.Context) error {
	prev := w.lifecycle.State()
	_ = w.lifecycle.TransitionTo(StateStopped, "Stop() called")
	if prev != StateServing {
		w.closeEndpoint()
	}
	return w.lifecycle.Wait(ctx)
}

// Interrupt closes the channel to unblock a pending receive or accept, then
// clears the running state. It does not wait; use Wait.
func (w *TelemetryWorker) Interrupt() {
	w.closeEndpoint()
	_ = w.lifecycle.TransitionTo(StateStopped, "Interrupt() called")
}

// Wait blocks until the worker goroutine exited or ctx is done.
func (w *TelemetryWorker) Wait(ctx context.Context) error {
	return w.lifecycle.Wait(ctx)
}

// Done returns a channel closed when the worker goroutine exits.
func (w *TelemetryWorker) Done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		_ = w.lifecycle.Wait(context.Background())
		close(ch)
	}()
	return ch
}

// Running reports whether the worker is serving its peer.
func (w *TelemetryWorker) Running() bool {
	return w.lifecycle.IsServing()
}

// State returns the worker's lifecycle state.
func (w *TelemetryWorker) State() State {
	return w.lifecycle.State()
}

// Err returns the failure that stopped the worker, or nil if it stopped on
// request, on peer disconnect or has not stopped.
func (w *TelemetryWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// LastMessage returns the last pose line sent, without terminator.
func (w *TelemetryWorker) LastMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastMessage
}

// Addr returns the bound channel address, or nil before binding.
func (w *TelemetryWorker) Addr() net.Addr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.endpoint == nil {
		return nil
	}
	return w.endpoint.Addr()
}

func (w *TelemetryWorker) closeEndpoint() {
	w.mu.Lock()
	ep := w.endpoint
	w.mu.Unlock()
	if ep == nil {
		return
	}
	if err := ep.Close(); err != nil {
		w.logger.Warn("close telemetry channel", log.Err(err))
	}
}

func (w *TelemetryWorker) fail(err error, reason string) {
	w.mu.Lock()
	if w.lastErr == nil {
		w.lastErr = err
	}
	w.mu.Unlock()
	w.logger.Error(reason, log.Err(err))
	_ = w.lifecycle.TransitionTo(StateStopped, reason)
}

func (w *TelemetryWorker) finish(reason string) {
	w.logger.Info("telemetry loop finished", log.String("reason", reason))
	_ = w.lifecycle.TransitionTo(StateStopped, reason)
}

// stateMetrics mirrors worker state into the WorkerState gauge before
// forwarding to next.
type stateMetrics struct {
	next EventEmitter
}

func (m stateMetrics) OnStateChange(previous, current State, reason string) {
	metrics.WorkerState.Set(float64(current))
	if m.next != nil {
		m.next.OnStateChange(previous, current, reason)
	}
}
