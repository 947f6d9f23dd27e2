package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/shdr-adapter/health"
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

func newTestCore(t *testing.T) *adapter.Core {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Port = freePort(t)
	return adapter.NewCore(cfg, nil, metric.NewMetricsRegistry())
}

func TestServer_InitializeRejectsInvalidPort(t *testing.T) {
	s := New(Config{Port: -1}, newTestCore(t), nil, nil)
	assert.Error(t, s.Initialize())
}

func TestServer_InitializeRejectsNilCore(t *testing.T) {
	s := New(Config{Port: 8080}, nil, nil, nil)
	assert.Error(t, s.Initialize())
}

func TestServer_HealthzAndClientsEndpoints(t *testing.T) {
	core := newTestCore(t)
	registry := metric.NewMetricsRegistry()
	port := freePort(t)

	s := New(Config{Bind: "127.0.0.1", Port: port}, core, registry, nil)
	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, base+"/healthz")

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.IsHealthy())

	resp2, err := http.Get(base + "/clients")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var stats []adapter.Stats
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	assert.Empty(t, stats)

	resp3, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func waitForServer(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := http.Get(url); err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready", url)
}
