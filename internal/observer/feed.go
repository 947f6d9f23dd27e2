// Package observer exposes a read-only WebSocket feed of adapter lifecycle
// events (connects, disconnects, lines sent, send errors) for dashboards and
// debugging tools that want to watch adapter activity without parsing SHDR
// off the wire themselves. It is optional and, like the admin server and the
// NATS bridge, implements component.LifecycleComponent so it shares the
// process's single cancellation scope.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/pkg/buffer"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	eventChanDepth = 256
	outboxCapacity = 256
)

// Config carries the feed's bind address, port, and HTTP path.
type Config struct {
	Bind string
	Port int
	Path string
}

// wsClient wraps one subscriber connection. gorilla/websocket connections
// only permit one concurrent writer, so every send to this client goes
// through writeMu. outbox decouples the broadcast loop from a slow reader:
// a dashboard stuck behind a laggy network link has its oldest unsent
// events dropped rather than stalling delivery to every other subscriber.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool

	outbox  buffer.Buffer[[]byte]
	wake    chan struct{}
}

// Feed is a component.LifecycleComponent broadcasting adapter.Events to
// connected WebSocket clients.
type Feed struct {
	cfg    Config
	logger *slog.Logger
	core   *adapter.Core

	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*wsClient

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener

	unsubscribe func()
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Feed broadcasting events from core.
func New(cfg Config, core *adapter.Core, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/events"
	}
	return &Feed{
		cfg:    cfg,
		logger: logger.With("component", "observer-feed"),
		core:   core,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]*wsClient),
	}
}

// Initialize validates configuration.
func (f *Feed) Initialize() error {
	if f.cfg.Port < 0 || f.cfg.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid observer port %d", f.cfg.Port), "observer", "Initialize", "port validation")
	}
	if f.core == nil {
		return errors.WrapInvalid(fmt.Errorf("nil adapter core"), "observer", "Initialize", "core validation")
	}
	return nil
}

// Start binds the feed's HTTP listener, serves in a background goroutine,
// and begins fanning out adapter events to connected clients.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	addr := net.JoinHostPort(f.cfg.Bind, fmt.Sprintf("%d", f.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "observer", "Start", "socket bind")
	}
	f.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(f.cfg.Path, f.handleWebSocket)
	f.srv = &http.Server{Handler: mux}

	f.stopCh = make(chan struct{})

	events, unsubscribe := f.core.Subscribe(eventChanDepth)
	f.unsubscribe = unsubscribe

	f.wg.Add(1)
	go f.broadcastLoop(ctx, events)

	go func() {
		if err := f.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			f.logger.Error("observer feed exited", "error", err)
		}
	}()

	f.logger.Info("observer feed started", "addr", addr, "path", f.cfg.Path)
	return nil
}

func (f *Feed) broadcastLoop(ctx context.Context, events <-chan adapter.Event) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			f.broadcast(ev)
		}
	}
}

func (f *Feed) broadcast(ev adapter.Event) {
	payload, err := json.Marshal(wireEvent{
		Type:     ev.Type.String(),
		ClientID: ev.ClientID,
		Line:     ev.Line,
		Error:    errString(ev.Err),
	})
	if err != nil {
		f.logger.Warn("failed to marshal event", "error", err)
		return
	}

	f.clientsMu.RLock()
	snapshot := make([]*wsClient, 0, len(f.clients))
	for _, c := range f.clients {
		snapshot = append(snapshot, c)
	}
	f.clientsMu.RUnlock()

	for _, c := range snapshot {
		f.enqueue(c, payload)
	}
}

// enqueue hands payload to c's outbox rather than writing directly: the
// writer goroutine owned by that client drains it, so one slow subscriber
// never blocks the broadcast loop serving the rest.
func (f *Feed) enqueue(c *wsClient, payload []byte) {
	if err := c.outbox.Write(payload); err != nil {
		f.logger.Warn("observer outbox write failed", "error", err)
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// writerLoop drains one client's outbox and writes to the socket,
// mirroring the donor websocket output's single-writer-per-connection
// discipline without the ack/nack bookkeeping this one-directional feed
// has no use for.
func (f *Feed) writerLoop(conn *websocket.Conn, client *wsClient) {
	defer f.wg.Done()
	for range client.wake {
		for {
			payload, ok := client.outbox.Read()
			if !ok {
				break
			}
			client.writeMu.Lock()
			closed := client.closed
			if !closed {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					client.closed = true
				}
			}
			client.writeMu.Unlock()
			if closed {
				return
			}
		}
	}
}

// wireEvent is the JSON shape delivered to observer clients.
type wireEvent struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
	Line     string `json:"line,omitempty"`
	Error    string `json:"error,omitempty"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (f *Feed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	outbox, err := buffer.NewCircularBuffer[[]byte](outboxCapacity, buffer.WithOverflowPolicy[[]byte](buffer.DropOldest))
	if err != nil {
		f.logger.Error("failed to create client outbox", "error", err)
		_ = conn.Close()
		return
	}

	client := &wsClient{conn: conn, outbox: outbox, wake: make(chan struct{}, 1)}
	f.clientsMu.Lock()
	f.clients[conn] = client
	f.clientsMu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	f.wg.Add(1)
	go f.writerLoop(conn, client)

	f.wg.Add(1)
	go f.readLoop(conn, client)

	f.wg.Add(1)
	go f.pingLoop(conn, client)
}

// pingLoop sends periodic control pings so the connection's read deadline
// keeps advancing via the pong handler; without it an idle feed (no adapter
// activity) would time out subscribers that are still listening.
func (f *Feed) pingLoop(conn *websocket.Conn, client *wsClient) {
	defer f.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		client.writeMu.Lock()
		closed := client.closed
		if !closed {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.closed = true
				closed = true
			}
		}
		client.writeMu.Unlock()
		if closed {
			return
		}
	}
}

// readLoop exists only to detect disconnects and answer control pings; the
// feed is one-directional so any client payload is discarded.
func (f *Feed) readLoop(conn *websocket.Conn, client *wsClient) {
	defer f.wg.Done()
	defer f.removeClient(conn, client)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) removeClient(conn *websocket.Conn, client *wsClient) {
	f.clientsMu.Lock()
	delete(f.clients, conn)
	f.clientsMu.Unlock()

	client.writeMu.Lock()
	alreadyClosed := client.closed
	client.closed = true
	client.writeMu.Unlock()

	if !alreadyClosed {
		close(client.wake)
	}
	_ = client.outbox.Close()
	_ = conn.Close()
}

// Stop shuts down the HTTP server and event fan-out, bounded by timeout.
func (f *Feed) Stop(timeout time.Duration) error {
	f.mu.Lock()
	srv := f.srv
	stopCh := f.stopCh
	unsubscribe := f.unsubscribe
	f.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if unsubscribe != nil {
		unsubscribe()
	}

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "observer", "Stop", "graceful shutdown")
	}

	f.clientsMu.Lock()
	for conn := range f.clients {
		_ = conn.Close()
	}
	f.clientsMu.Unlock()

	return nil
}
