package adapter

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort asks the OS for an ephemeral port and releases it immediately, so
// a Listener can bind the same number a moment later.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// dialListener connects to the listener's port, retrying briefly while the
// accept loop finishes binding.
func dialListener(t *testing.T, port int) net.Conn {
	t.Helper()
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("could not dial listener on %s: %v", addr, lastErr)
	return nil
}

// startedCore brings up a Core exactly the way cmd/shdr-adapter does: through
// Start's errgroup, with a registered non-blocking extra component mimicking
// the admin server and observer feed's launch-goroutine-then-return-nil
// contract. This is the same shape that exposed the premature gctx
// cancellation: if Core.Start regresses, the listener's read loop sees
// ctx.Done() on its first select and every assertion below that depends on
// staying connected past replay fails.
func startedCore(t *testing.T, mutate func(*Config)) (*Core, int) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = freePort(t)
	cfg.DeviceKey = "dev1"
	if mutate != nil {
		mutate(&cfg)
	}
	core := NewCore(cfg, nil, nil)

	core.AddComponent(&lifecycleShim{
		onStart: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
	})

	require.NoError(t, core.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Start(ctx)

	return core, cfg.Port
}

func TestListener_StaysConnectedPastReplayUnderNonBlockingComponents(t *testing.T) {
	core, port := startedCore(t, nil)
	conn := dialListener(t, port)
	defer conn.Close()

	core.Submit(&Observation{Kind: KindDataItem, DataItemKey: "temp", Value: "72", Timestamp: 1000})
	core.SendCurrent()

	// If gctx were cancelled at startup (the bug under test), handleConn
	// would have already returned and this second line would never arrive:
	// the connection would be torn down microseconds after replay.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err, "connection must survive past startup to receive the send_current line")
	assert.Contains(t, line, "|temp|72")

	// A further read must time out, not return io.EOF, proving the server
	// side never closed the connection on its own.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = reader.ReadString('\n')
	assert.True(t, isTimeout(err), "connection should still be open and simply idle, got %v", err)
}

func TestListener_ReplayDeliversLastOnConnect(t *testing.T) {
	core, port := startedCore(t, nil)

	core.Submit(&Observation{Kind: KindDataItem, DataItemKey: "temp", Value: "72", Timestamp: 1000})
	core.SendCurrent() // no client connected yet; updates last[] anyway

	conn := dialListener(t, port)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err, "a reconnecting agent must receive replay of last[] immediately on connect")
	assert.Contains(t, line, "|temp|72")
}

func TestListener_PingElicitsPong(t *testing.T) {
	core, port := startedCore(t, func(cfg *Config) { cfg.HeartbeatMillis = 1_000 })
	_ = core
	conn := dialListener(t, port)
	defer conn.Close()

	_, err := conn.Write([]byte("* PING\n"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "* PONG 1000")
}

func TestListener_IdleTimeoutClosesConnection(t *testing.T) {
	core, port := startedCore(t, func(cfg *Config) { cfg.HeartbeatMillis = 50 })
	_ = core
	conn := dialListener(t, port)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	_, err := reader.ReadString('\n')
	require.Error(t, err, "a silent client must be dropped once its heartbeat-plus-grace deadline elapses")
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
