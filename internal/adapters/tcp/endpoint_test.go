package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/posebridge/internal/domain"
)

func bindLocal(t *testing.T, opts ...Option) *Endpoint {
	t.Helper()
	ep, err := Bind("127.0.0.1", 0, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })
	return ep
}

// connect dials ep and waits for Accept to return.
func connect(t *testing.T, ep *Endpoint) net.Conn {
	t.Helper()
	accepted := make(chan error, 1)
	go func() { accepted <- ep.Accept() }()

	conn, err := net.Dial("tcp", ep.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case err := <-accepted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return")
	}
	return conn
}

func TestBind_EmptyAddressBindsAllInterfaces(t *testing.T) {
	ep, err := Bind("", 0)
	require.NoError(t, err)
	defer ep.Close()

	addr := ep.Addr().(*net.TCPAddr)
	require.True(t, addr.IP.IsUnspecified(), "addr = %v", addr)
	require.NotZero(t, ep.Port())
}

func TestBind_PortInUse(t *testing.T) {
	first := bindLocal(t)

	_, err := Bind("127.0.0.1", first.Port())
	require.ErrorIs(t, err, domain.ErrBind)
}

func TestBind_InvalidAddress(t *testing.T) {
	_, err := Bind("not an address", 0)
	require.ErrorIs(t, err, domain.ErrBind)

	_, err = Bind("127.0.0.1", 70000)
	require.ErrorIs(t, err, domain.ErrBind)
}

func TestBind_RebindAfterClose(t *testing.T) {
	ep := bindLocal(t)
	port := ep.Port()
	conn := connect(t, ep)
	require.NoError(t, ep.SendLine("x"))
	_ = conn.Close()
	require.NoError(t, ep.Close())

	again, err := Bind("127.0.0.1", port)
	require.NoError(t, err, "port %d should be reusable", port)
	require.NoError(t, again.Close())
}

func TestEndpoint_IsConnectedLifecycle(t *testing.T) {
	ep := bindLocal(t)
	require.False(t, ep.IsConnected(), "before accept")
	require.Empty(t, ep.Peer())

	connect(t, ep)
	require.True(t, ep.IsConnected(), "after accept")
	require.NotEmpty(t, ep.Peer())

	require.NoError(t, ep.Close())
	require.False(t, ep.IsConnected(), "after close")
}

func TestEndpoint_IsConnectedFalseAfterPeerDisconnect(t *testing.T) {
	ep := bindLocal(t)
	conn := connect(t, ep)

	require.NoError(t, conn.Close())
	_, err := ep.ReceiveLine()
	require.ErrorIs(t, err, io.EOF)
	require.False(t, ep.IsConnected())
}

// A peer that vanished without the endpoint observing it is still reported
// as connected until a receive or send fails.
func TestEndpoint_HalfOpenPeerStillReportsConnected(t *testing.T) {
	ep := bindLocal(t)
	conn := connect(t, ep)

	require.NoError(t, conn.Close())
	require.True(t, ep.IsConnected())
}

func TestEndpoint_ReceiveLine(t *testing.T) {
	ep := bindLocal(t)
	conn := connect(t, ep)

	_, err := io.WriteString(conn, "ping\r\nsecond line\nlast")
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	for _, want := range []string{"ping", "second line", "last"} {
		got, err := ep.ReceiveLine()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err = ep.ReceiveLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestEndpoint_ReceiveBeforeAccept(t *testing.T) {
	ep := bindLocal(t)

	_, err := ep.ReceiveLine()
	require.ErrorIs(t, err, domain.ErrNotConnected)

	err = ep.SendLine("x")
	require.ErrorIs(t, err, domain.ErrSend)
	require.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestEndpoint_SendLine(t *testing.T) {
	ep := bindLocal(t)
	conn := connect(t, ep)
	r := bufio.NewReader(conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, ep.SendLine("pose "+strconv.Itoa(i)))
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "pose "+strconv.Itoa(i)+"\n", line)
	}
}

func TestEndpoint_SendAfterClose(t *testing.T) {
	ep := bindLocal(t)
	connect(t, ep)
	require.NoError(t, ep.Close())

	err := ep.SendLine("x")
	require.ErrorIs(t, err, domain.ErrSend)
	require.ErrorIs(t, err, domain.ErrClosed)
}

func TestEndpoint_CloseTwice(t *testing.T) {
	ep := bindLocal(t)
	connect(t, ep)

	require.NoError(t, ep.Close())
	require.NoError(t, ep.Close())
}

func TestEndpoint_CloseWithoutPeer(t *testing.T) {
	ep := bindLocal(t)
	require.NoError(t, ep.Close())
	require.NoError(t, ep.Close())
}

func TestEndpoint_CloseUnblocksAccept(t *testing.T) {
	ep := bindLocal(t)

	done := make(chan error, 1)
	go func() { done <- ep.Accept() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ep.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrAccept)
		require.ErrorIs(t, err, domain.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Accept still blocked after Close")
	}
}

func TestEndpoint_CloseUnblocksReceive(t *testing.T) {
	ep := bindLocal(t)
	connect(t, ep)

	done := make(chan error, 1)
	go func() {
		_, err := ep.ReceiveLine()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ep.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrClosed)
		require.False(t, errors.Is(err, domain.ErrReceive), "local close is not a receive fault")
	case <-time.After(2 * time.Second):
		t.Fatal("ReceiveLine still blocked after Close")
	}
}

func TestEndpoint_ConnectionHook(t *testing.T) {
	var events []bool
	ep := bindLocal(t, WithConnectionHook(func(c bool) { events = append(events, c) }))
	conn := connect(t, ep)

	require.NoError(t, conn.Close())
	_, err := ep.ReceiveLine()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, ep.Close())

	require.Equal(t, []bool{true, false}, events)
}

func TestEndpoint_AcceptAgainAfterDisconnect(t *testing.T) {
	ep := bindLocal(t)
	first := connect(t, ep)
	require.NoError(t, first.Close())
	_, err := ep.ReceiveLine()
	require.ErrorIs(t, err, io.EOF)

	second := connect(t, ep)
	require.True(t, ep.IsConnected())
	_, err = io.WriteString(second, "hello\n")
	require.NoError(t, err)

	line, err := ep.ReceiveLine()
	require.NoError(t, err)
	require.Equal(t, "hello", line)
}
