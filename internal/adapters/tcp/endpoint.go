// Package tcp implements the channel endpoint: one TCP listener bound for
// its whole lifetime, at most one accepted peer, and newline-delimited text
// I/O over that peer.
package tcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/pkg/log"
)

// AnyAddress is used when Bind is given an empty address.
const AnyAddress = "0.0.0.0"

// Endpoint owns a listening socket and the peer accepted on it.
//
// Accept and ReceiveLine block; Close may be called from any goroutine to
// unblock them. The receive side is meant to be driven by one goroutine.
type Endpoint struct {
	logger log.Logger

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	reader   *bufio.Reader
	peer     string
	peerGone bool
	closed   bool

	onConnected func(bool)
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLogger sets the logger used for connection events.
func WithLogger(l log.Logger) Option {
	return func(e *Endpoint) { e.logger = l }
}

// WithConnectionHook registers fn to be called with true after a peer is
// accepted and with false when it is observed gone or the endpoint closes.
func WithConnectionHook(fn func(connected bool)) Option {
	return func(e *Endpoint) { e.onConnected = fn }
}

// Bind opens a listener on address:port. An empty address binds all
// interfaces. Port 0 picks a free port; use Port to learn it.
// Go enables SO_REUSEADDR on listening sockets, so a port in TIME_WAIT can be
// rebound immediately, while a port held by a live listener fails.
func Bind(address string, port int, opts ...Option) (*Endpoint, error) {
	if address == "" {
		address = AnyAddress
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", domain.ErrBind, port)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBind, err)
	}

	e := &Endpoint{logger: log.NewNoopLogger(), listener: ln}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Info("listening", log.String("address", ln.Addr().String()))
	return e, nil
}

// Addr returns the bound listener address.
func (e *Endpoint) Addr() net.Addr {
	return e.listener.Addr()
}

// Port returns the bound local port.
func (e *Endpoint) Port() int {
	if a, ok := e.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Peer returns the address of the accepted peer, or "" before Accept.
func (e *Endpoint) Peer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peer
}

// Accept blocks until a peer connects. A previously accepted peer is
// dropped first. Returns an error wrapping domain.ErrAccept if the listener
// is closed while waiting.
func (e *Endpoint) Accept() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", domain.ErrAccept, domain.ErrClosed)
	}
	if e.conn != nil {
		_ = e.conn.Close()
		e.conn, e.reader, e.peer = nil, nil, ""
	}
	ln := e.listener
	e.mu.Unlock()

	conn, err := ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("%w: %w", domain.ErrAccept, domain.ErrClosed)
		}
		return fmt.Errorf("%w: %v", domain.ErrAccept, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: %w", domain.ErrAccept, domain.ErrClosed)
	}
	e.conn = conn
	e.reader = bufio.NewReader(conn)
	e.peer = conn.RemoteAddr().String()
	e.peerGone = false
	e.mu.Unlock()

	e.logger.Info("connection from peer",
		log.String("peer", e.peer),
		log.String("local", e.listener.Addr().String()),
	)
	e.notify(true)
	return nil
}

// IsConnected reports whether a peer was accepted, the endpoint is not
// closed and no receive or send has observed the peer gone. A half-open peer
// that has not produced an error is still reported as connected.
func (e *Endpoint) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil && !e.closed && !e.peerGone
}

// ReceiveLine blocks until a full line is read and returns it without the
// terminator. A final unterminated line is returned as is.
//
// A clean disconnect by the peer returns io.EOF. A local Close returns an
// error wrapping domain.ErrClosed. Other failures wrap domain.ErrReceive.
func (e *Endpoint) ReceiveLine() (string, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", domain.ErrClosed
	}
	r := e.reader
	e.mu.Unlock()
	if r == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrReceive, domain.ErrNotConnected)
	}

	line, err := r.ReadString('\n')
	if err == nil {
		return trimEOL(line), nil
	}
	if errors.Is(err, io.EOF) && line != "" {
		return trimEOL(line), nil
	}

	if e.isClosed() {
		return "", domain.ErrClosed
	}
	e.markPeerGone()
	if errors.Is(err, io.EOF) {
		e.logger.Info("peer disconnected", log.String("peer", e.Peer()))
		return "", io.EOF
	}
	return "", fmt.Errorf("%w: %v", domain.ErrReceive, err)
}

// SendLine writes text followed by a newline in a single write.
func (e *Endpoint) SendLine(text string) error {
	e.mu.Lock()
	conn, closed := e.conn, e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: %w", domain.ErrSend, domain.ErrClosed)
	}
	if conn == nil {
		return fmt.Errorf("%w: %w", domain.ErrSend, domain.ErrNotConnected)
	}

	if _, err := io.WriteString(conn, text+"\n"); err != nil {
		if e.isClosed() {
			return fmt.Errorf("%w: %w", domain.ErrSend, domain.ErrClosed)
		}
		e.markPeerGone()
		return fmt.Errorf("%w: %v", domain.ErrSend, err)
	}
	return nil
}

// Close closes the peer connection, if any, then the listener. Calls after
// the first are no-ops.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	conn := e.conn
	hadPeer := conn != nil && !e.peerGone
	e.mu.Unlock()

	var errs []error
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close peer: %w", err))
		}
	}
	if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}

	if hadPeer {
		e.notify(false)
	}
	e.logger.Debug("endpoint closed", log.String("address", e.listener.Addr().String()))
	return errors.Join(errs...)
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Endpoint) markPeerGone() {
	e.mu.Lock()
	already := e.peerGone
	e.peerGone = true
	e.mu.Unlock()
	if !already {
		e.notify(false)
	}
}

func (e *Endpoint) notify(connected bool) {
	if e.onConnected != nil {
		e.onConnected(connected)
	}
}

func trimEOL(line string) string {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n]
}
