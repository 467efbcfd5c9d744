package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/posebridge/pkg/log"
)

// ErrInvalidTransition is returned by TransitionTo for a transition the
// state machine does not allow.
var ErrInvalidTransition = errors.New("posebridge: invalid state transition")

// State represents the lifecycle state of a worker.
type State int

const (
	StateIdle State = iota
	StateBinding
	StateListening
	StateServing
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBinding:
		return "Binding"
	case StateListening:
		return "Listening"
	case StateServing:
		return "Serving"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle is the state machine for a telemetry worker.
//
// Valid transitions:
//   - Idle -> Binding, Stopped
//   - Binding -> Listening, Stopped
//   - Listening -> Serving, Stopped
//   - Serving -> Stopped
//
// Stopped is terminal.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	reason       string
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a new lifecycle manager in StateIdle.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Reason returns the reason given for the last transition.
func (l *Lifecycle) Reason() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reason
}

// TransitionTo attempts to transition to a new state.
// Returns ErrInvalidTransition if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !validTransition(oldState, newState) {
		l.mu.Unlock()
		return ErrInvalidTransition
	}
	l.state = newState
	l.reason = reason
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateBinding || to == StateStopped
	case StateBinding:
		return to == StateListening || to == StateStopped
	case StateListening:
		return to == StateServing || to == StateStopped
	case StateServing:
		return to == StateStopped
	default:
		return false
	}
}

// IsServing reports whether the worker is in its serving loop. This is the
// running flag consulted by the loop.
func (l *Lifecycle) IsServing() bool {
	return l.State() == StateServing
}

// IsStopped reports whether the terminal state was reached.
func (l *Lifecycle) IsStopped() bool {
	return l.State() == StateStopped
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// Wait blocks until all workers finished or ctx is done.
func (l *Lifecycle) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
