package adapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/internal/tlsopt"
)

// Each accepted connection moves through INIT (registered, replaying
// state) -> OPEN (registry holds it, reads are being served) -> CLOSED
// (torn down by read error, write error, idle timeout, or listener
// shutdown). The client's closed flag and its absence from the registry
// together represent CLOSED; there is no separate state field to drift out
// of sync with them.

// ListenerConfig carries every setting the Connection Listener needs that
// is not already owned by the codec or the core.
type ListenerConfig struct {
	Bind            string
	Port            int
	HeartbeatMillis int64         // interval the adapter advertises in PONG replies
	IdleGrace       time.Duration // read deadline beyond one heartbeat interval before a silent client is dropped
	TLS             tlsopt.Config // zero value (Enabled: false) serves plaintext
}

// Listener accepts agent TCP connections, replays the current/last state to
// each new client, and serves the reactive PING/PONG heartbeat. Its
// lifecycle follows the same shutdown/done-channel, atomic-running pattern
// used elsewhere in the adapter for long-running network components:
// Initialize validates configuration, Start launches the accept loop in a
// tracked goroutine, and Stop signals shutdown and waits up to a timeout
// for the accept loop and all connection handlers to exit.
type Listener struct {
	cfg    ListenerConfig
	logger *slog.Logger

	core *Core

	mu        sync.RWMutex
	ln        net.Listener
	shutdown  chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	wg        sync.WaitGroup
}

// NewListener constructs a Listener bound to core for client registration
// and observation replay.
func NewListener(cfg ListenerConfig, core *Core, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		cfg:    cfg,
		core:   core,
		logger: logger.With("component", "shdr-listener", "port", cfg.Port),
	}
}

// Initialize validates configuration. It does not open a socket.
func (l *Listener) Initialize() error {
	if l.cfg.Port < 0 || l.cfg.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid port %d", l.cfg.Port),
			"shdr-listener", "Initialize", "port validation")
	}
	if l.cfg.HeartbeatMillis <= 0 {
		return errors.WrapInvalid(fmt.Errorf("heartbeat interval must be positive"),
			"shdr-listener", "Initialize", "heartbeat validation")
	}
	if l.core == nil {
		return errors.WrapInvalid(fmt.Errorf("nil adapter core"),
			"shdr-listener", "Initialize", "core validation")
	}
	return nil
}

// Start binds the listening socket and launches the accept loop.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return nil
	}

	addr := net.JoinHostPort(l.cfg.Bind, strconv.Itoa(l.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "shdr-listener", "Start", "socket bind")
	}

	ln, err = tlsopt.Wrap(ln, l.cfg.TLS)
	if err != nil {
		return err
	}

	l.ln = ln
	l.shutdown = make(chan struct{})
	l.done = make(chan struct{})
	l.running.Store(true)
	l.startTime = time.Now()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.done)
		l.acceptLoop(ctx)
	}()

	l.logger.Info("listener started", "addr", addr)
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return
			case <-ctx.Done():
				return
			default:
			}
			if !l.running.Load() {
				return
			}
			l.logger.Warn("accept error", "error", err)
			continue
		}

		id := newClientID()
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(ctx, id, conn)
		}()
	}
}

// handleConn drives one connection's state machine end to end: register
// with the client registry, replay the last-sent state so a reconnecting
// agent sees the adapter's full current picture, then loop on reads,
// answering PING with PONG and resetting the read deadline on every line,
// until the connection closes, the read times out, or the listener shuts
// down.
func (l *Listener) handleConn(ctx context.Context, id string, conn net.Conn) {
	c := newClient(id, conn)
	l.core.registry.add(c)
	l.core.metrics.recordConnect()
	l.core.events.emit(Event{Type: EventAgentConnected, ClientID: id})

	defer func() {
		c.markClosed()
		l.core.registry.remove(id)
		l.core.metrics.recordDisconnect()
		l.core.events.emit(Event{Type: EventAgentDisconnected, ClientID: id})
	}()

	if err := l.core.replay(c); err != nil {
		l.logger.Warn("initial replay failed", "client", id, "error", err)
		l.core.events.emit(Event{Type: EventAgentConnectionError, ClientID: id, Err: err})
		return
	}

	deadline := time.Duration(l.cfg.HeartbeatMillis)*time.Millisecond + l.cfg.IdleGrace
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-l.shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		line, err := reader.ReadString('\n')
		if err != nil {
			if line == "" {
				return
			}
		}

		for _, decoded := range DecodeLines(line) {
			if decoded.IsPing {
				pingTime := time.Now()
				c.recordPing()
				l.core.metrics.recordPing()
				l.core.events.emit(Event{Type: EventPingReceived, ClientID: id})
				pong := EncodePong(l.cfg.HeartbeatMillis)
				if werr := c.writeLine(pong, deadline); werr != nil {
					l.core.events.emit(Event{Type: EventSendError, ClientID: id, Err: werr})
					return
				}
				l.core.metrics.recordPongSeconds(time.Since(pingTime).Seconds())
				l.core.events.emit(Event{Type: EventPongSent, ClientID: id})
			}
		}

		if err != nil {
			return
		}
	}
}

// Uptime reports how long the listener has been accepting connections,
// zero if it has not yet started.
func (l *Listener) Uptime() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.running.Load() {
		return 0
	}
	return time.Since(l.startTime)
}

// Stop signals the accept loop and every connection handler to exit, closes
// the listening socket, marks every connected client closed, then waits up
// to timeout for the handlers to finish. Calling Stop on an already-stopped
// Listener is a no-op.
func (l *Listener) Stop(timeout time.Duration) error {
	if !l.running.Load() {
		return nil
	}
	l.running.Store(false)

	l.mu.Lock()
	close(l.shutdown)
	if l.ln != nil {
		_ = l.ln.Close()
	}
	for _, c := range l.core.registry.snapshot() {
		c.markClosed()
	}
	l.mu.Unlock()

	waitDone := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"shdr-listener", "Stop", "graceful shutdown")
	}
}
