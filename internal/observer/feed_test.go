package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/metric"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// dialSHDRClient connects to the adapter's SHDR port, retrying briefly
// while the listener finishes binding.
func dialSHDRClient(t *testing.T, port int) net.Conn {
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
	t.Fatalf("could not dial SHDR listener on %s: %v", addr, lastErr)
	return nil
}

// newRunningCore starts a real adapter Core (SHDR listener included) on a
// free port and returns it already running, so tests can observe the
// write-side events the observer feed broadcasts once an SHDR client is
// connected.
func newRunningCore(t *testing.T) *adapter.Core {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Port = freePort(t)
	core := adapter.NewCore(cfg, nil, metric.NewMetricsRegistry())
	require.NoError(t, core.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.Start(ctx)

	shdrClient := dialSHDRClient(t, cfg.Port)
	t.Cleanup(func() { shdrClient.Close() })
	return core
}

func TestFeed_InitializeRejectsInvalidPort(t *testing.T) {
	core := newRunningCore(t)
	f := New(Config{Port: -1}, core, nil)
	assert.Error(t, f.Initialize())
}

func TestFeed_BroadcastsAdapterEvents(t *testing.T) {
	core := newRunningCore(t)

	port := freePort(t)
	f := New(Config{Bind: "127.0.0.1", Port: port}, core, nil)
	require.NoError(t, f.Initialize())
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop(time.Second)

	url := fmt.Sprintf("ws://127.0.0.1:%d/events", port)
	var conn *websocket.Conn
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	core.Submit(&adapter.Observation{DataItemKey: "exec", Kind: adapter.KindDataItem, Value: "ACTIVE"})
	core.SendCurrent()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt wireEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	assert.Equal(t, "line_sent", evt.Type)
}
