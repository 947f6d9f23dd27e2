package adapter

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// client tracks one connected agent's raw TCP connection and write state.
// The shape mirrors the donor websocket output's clientInfo: a per-client
// write mutex so concurrent senders never interleave partial lines, an
// atomic closed flag and sync.Once so teardown runs exactly once no matter
// which goroutine (read loop, write path, or shutdown) notices first.
type client struct {
	id           string
	conn         net.Conn
	connectedAt  time.Time
	lastPing     atomic.Value // stores time.Time
	messagesSent int64        // atomic
	closed       atomic.Bool
	closeOnce    sync.Once
	writeMutex   sync.Mutex
}

func newClient(id string, conn net.Conn) *client {
	c := &client{id: id, conn: conn, connectedAt: time.Now()}
	c.lastPing.Store(time.Now())
	return c
}

// writeLine writes one already-encoded SHDR line plus its terminating
// newline to the client, serialized against other writers of the same
// client and bounded by deadline. Any write error marks the client closed;
// the caller is responsible for removing it from the registry and closing
// the underlying connection.
func (c *client) writeLine(line string, deadline time.Duration) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	if c.closed.Load() {
		return net.ErrClosed
	}
	if deadline > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(deadline))
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.closed.Store(true)
		return err
	}
	atomic.AddInt64(&c.messagesSent, 1)
	return nil
}

func (c *client) markClosed() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.conn.Close()
	})
}

func (c *client) recordPing() {
	c.lastPing.Store(time.Now())
}

func (c *client) lastPingTime() time.Time {
	return c.lastPing.Load().(time.Time)
}

// Stats is a point-in-time snapshot of one client's connection state,
// returned by the Registry for health and introspection endpoints.
type Stats struct {
	ID           string
	RemoteAddr   string
	ConnectedAt  time.Time
	LastPing     time.Time
	MessagesSent int64
	Closed       bool
}

func (c *client) stats() Stats {
	return Stats{
		ID:           c.id,
		RemoteAddr:   c.conn.RemoteAddr().String(),
		ConnectedAt:  c.connectedAt,
		LastPing:     c.lastPingTime(),
		MessagesSent: atomic.LoadInt64(&c.messagesSent),
		Closed:       c.closed.Load(),
	}
}

// Registry is the indexed collection of live agent connections. Every
// method takes or releases the lock only around the map operation itself;
// writes to individual clients happen outside the registry lock so one
// slow agent can never stall registration or broadcast fan-out for
// everyone else.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newRegistry() *Registry {
	return &Registry{clients: make(map[string]*client)}
}

func (r *Registry) add(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.id] = c
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// snapshot returns the current set of clients as a slice, safe to range
// over after the registry lock has been released.
func (r *Registry) snapshot() []*client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Stats returns a snapshot of every connected client, for health and
// admin-surface reporting.
func (r *Registry) Stats() []Stats {
	snap := r.snapshot()
	out := make([]Stats, len(snap))
	for i, c := range snap {
		out[i] = c.stats()
	}
	return out
}
