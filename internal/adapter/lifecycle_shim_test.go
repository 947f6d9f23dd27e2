package adapter

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/shdr-adapter/testutil"
)

// lifecycleShim adapts testutil.MockComponent (ctx-based Start/Stop, no
// Initialize) to component.LifecycleComponent (timeout-based Stop, an
// Initialize step), so tests can exercise Core.AddComponent/Start/Stop with
// the donor's own call-count bookkeeping instead of a bespoke fake.
type lifecycleShim struct {
	mock *testutil.MockComponent

	onInitialize func() error
	onStart      func(ctx context.Context) error
	onStop       func(timeout time.Duration) error
}

func newLifecycleShim() *lifecycleShim {
	return &lifecycleShim{mock: testutil.NewMockComponent()}
}

func (l *lifecycleShim) Initialize() error {
	if l.onInitialize != nil {
		return l.onInitialize()
	}
	return nil
}

func (l *lifecycleShim) Start(ctx context.Context) error {
	if l.mock == nil {
		l.mock = testutil.NewMockComponent()
	}
	l.mock.StartFunc = func(ctx context.Context) error {
		if l.onStart != nil {
			return l.onStart(ctx)
		}
		return nil
	}
	return l.mock.Start(ctx)
}

func (l *lifecycleShim) Stop(timeout time.Duration) error {
	if l.mock == nil {
		l.mock = testutil.NewMockComponent()
	}
	l.mock.StopFunc = func(context.Context) error {
		if l.onStop != nil {
			return l.onStop(timeout)
		}
		return nil
	}
	return l.mock.Stop(context.Background())
}

// newLoopbackConn returns a connected (server, client) net.Conn pair over
// the loopback interface, used to exercise Core's write path without a real
// Listener.
func newLoopbackConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		acceptCh <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	server := <-acceptCh
	require.NotNil(t, server)
	return server, client
}

// readLines reads exactly n newline-terminated SHDR lines from conn,
// failing the test if they do not arrive within a short deadline.
func readLines(t *testing.T, conn net.Conn, n int) []string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return lines
}
