package app

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/internal/ports"
)

// fakeArm is an in-memory MotionBackend.
type fakeArm struct {
	mu       sync.Mutex
	pose     domain.Pose
	moves    []domain.Pose
	moveErrs []error
	poseErr  error
}

func newFakeArm(p domain.Pose) *fakeArm {
	return &fakeArm{pose: p}
}

func (a *fakeArm) CurrentPose() (domain.Pose, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.poseErr != nil {
		return domain.Pose{}, a.poseErr
	}
	return a.pose, nil
}

func (a *fakeArm) ExecuteMove(ctx context.Context, target domain.Pose) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.moveErrs) > 0 {
		err := a.moveErrs[0]
		a.moveErrs = a.moveErrs[1:]
		if err != nil {
			return err
		}
	}
	a.moves = append(a.moves, target)
	a.pose = target
	return nil
}

func (a *fakeArm) Moves() []domain.Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Pose(nil), a.moves...)
}

// scriptedConfirmer answers prompts from a fixed script, then accepts.
type scriptedConfirmer struct {
	mu      sync.Mutex
	answers []ports.Decision
	prompts []string
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, prompt string) (ports.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if len(c.answers) == 0 {
		return ports.Accept, nil
	}
	d := c.answers[0]
	c.answers = c.answers[1:]
	return d, nil
}

func (c *scriptedConfirmer) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, string) (ports.Decision, error) {
	return ports.Cancel, errors.New("terminal closed")
}

// client is a line-oriented test peer.
type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()
	require.NotNil(t, addr)
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line))
	require.NoError(c.t, err)
}

func (c *client) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c.reader.ReadString('\n')
}

// freePort returns a loopback TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
