package adapter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/shdr-adapter/component"
	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/internal/tlsopt"
	"github.com/c360/shdr-adapter/metric"
	"github.com/c360/shdr-adapter/pkg/timestamp"
)

// Config is the Adapter Core's own view of the populated configuration
// record spec.md §6 describes producers handing it: the adapter never
// loads this itself, it only consumes it.
type Config struct {
	Bind             string // listen address; "" means all interfaces
	DeviceKey        string
	Port             int
	HeartbeatMillis  int64
	TimeoutMillis    int64
	FilterDuplicates bool
	MultilineAssets  bool
	MultilineDevices bool
	TLS              tlsopt.Config
}

// DefaultConfig returns the defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		Port:             7878,
		HeartbeatMillis:  10_000,
		TimeoutMillis:    5_000,
		FilterDuplicates: true,
	}
}

// Core is the Adapter Core: it orchestrates submission, deduplication,
// send_current/send_last flushes, UNAVAILABLE generation, and event
// fan-out, per spec.md §4.4-§4.6 and §4.8. It owns the State Store and the
// Client Registry; the Connection Listener calls back into it on connect
// and disconnect, and the Public API Surface (api.go) calls into it for
// every producer-facing entry point.
type Core struct {
	cfg    Config
	logger *slog.Logger

	store    *store
	registry *Registry
	events   *eventBus
	codec    CodecConfig
	listener *Listener
	metrics  *Metrics

	// extra holds additional long-running components (the admin HTTP
	// server, the NATS bridge, the observer feed) that share the Core's
	// cancellation scope but are constructed by cmd/shdr-adapter, which is
	// the only layer allowed to import both internal/adapter and its
	// sibling packages without an import cycle.
	extra []component.LifecycleComponent

	errLimiter *rate.Limiter

	nowFunc func() int64 // overridable for tests; defaults to time.Now in milliseconds
}

// NewCore constructs a Core, its Connection Listener, and the State Store
// and Client Registry they share, ready for Initialize/Start. A nil
// metricsRegistry disables metrics (nil input, nil feature).
func NewCore(cfg Config, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Core{
		cfg:    cfg,
		logger: logger.With("component", "adapter-core"),

		store:    newStore(),
		registry: newRegistry(),
		events:   newEventBus(),
		codec: CodecConfig{
			DefaultDeviceKey: cfg.DeviceKey,
			MultilineAssets:  cfg.MultilineAssets,
			MultilineDevices: cfg.MultilineDevices,
		},
		metrics:    newMetrics(metricsRegistry),
		errLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		nowFunc:    timestamp.Now,
	}
	c.listener = NewListener(ListenerConfig{
		Bind:            cfg.Bind,
		Port:            cfg.Port,
		HeartbeatMillis: cfg.HeartbeatMillis,
		IdleGrace:       time.Duration(cfg.HeartbeatMillis) * time.Millisecond,
		TLS:             cfg.TLS,
	}, c, logger)
	return c
}

// AddComponent registers an additional long-running component (admin
// server, NATS bridge, observer feed) to run and stop alongside the
// listener under the Core's single cancellation scope. Must be called
// before Start.
func (c *Core) AddComponent(lc component.LifecycleComponent) {
	c.extra = append(c.extra, lc)
}

// Initialize validates the listener and every registered extra component.
func (c *Core) Initialize() error {
	if err := c.listener.Initialize(); err != nil {
		return err
	}
	for _, lc := range c.extra {
		if err := lc.Initialize(); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the listener and every registered extra component
// concurrently under one errgroup, the way the donor's processor package
// coordinates its own module goroutines: the first component to return an
// error cancels the shared context for the rest.
//
// Every component's Start (the listener's, the admin server's, the
// observer feed's) follows the donor's non-blocking lifecycle contract:
// bind, launch a background goroutine, return nil immediately. errgroup's
// Wait returns as soon as every launched function has returned, so
// without the explicit <-gctx.Done() below, Wait (and the cancellation of
// gctx that comes with it) would fire at startup, the moment the last
// Start call returns — cancelling every connection's read-loop context
// microseconds after accept. Blocking each goroutine on gctx keeps it
// open until a real shutdown (ctx cancellation or a component's Start
// error) occurs.
func (c *Core) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.listener.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	for _, lc := range c.extra {
		lc := lc
		g.Go(func() error {
			if err := lc.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return nil
		})
	}

	return g.Wait()
}

// Stop stops the listener and every registered extra component, bounding
// each by timeout. Stop is idempotent; it returns only once the listener
// socket is closed, per spec.md §5.
func (c *Core) Stop(timeout time.Duration) error {
	var firstErr error
	if err := c.listener.Stop(timeout); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, lc := range c.extra {
		if err := lc.Stop(timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe exposes the event bus to operational consumers (the observer
// WebSocket feed, structured logging bridges, tests).
func (c *Core) Subscribe(buffer int) (<-chan Event, func()) {
	return c.events.Subscribe(buffer)
}

// RegistryStats exposes connected-client snapshots for the admin server.
func (c *Core) RegistryStats() []Stats {
	return c.registry.Stats()
}

func (c *Core) writeDeadline() time.Duration {
	return time.Duration(c.cfg.TimeoutMillis) * time.Millisecond
}

// Submit implements spec.md §4.4: apply defaults, compare against current
// by change_id, drop a duplicate when filter_duplicates is enabled,
// otherwise replace current (unsent) and return. Malformed observations
// (empty key) are rejected with a soft event rather than an error return,
// matching §7's "submission never fails synchronously."
func (c *Core) Submit(o *Observation) {
	if o.DataItemKey == "" {
		c.logSoftError("submit", errors.ErrEmptyDataItemKey)
		return
	}
	if o.DeviceKey == "" {
		o.DeviceKey = c.cfg.DeviceKey
	}
	if o.Timestamp <= 0 {
		o.Timestamp = c.nowFunc()
	} else if err := timestamp.Validate(o.Timestamp); err != nil {
		c.logSoftError("submit", err)
		o.Timestamp = c.nowFunc()
	}
	o.IsSent = false
	o.EnsureChangeID()

	// The change_id comparison and the insert happen under a single lock
	// acquisition in submitCurrent, so a concurrent send_current can never
	// observe a duplicate that submit is about to revert.
	if c.store.submitCurrent(o, c.cfg.FilterDuplicates) {
		c.metrics.recordDuplicateFiltered()
		return
	}
}

// SubmitBatch iterates Submit per element with no transactional semantics
// across elements, per spec.md §4.4.
func (c *Core) SubmitBatch(observations []*Observation) {
	for _, o := range observations {
		c.Submit(o)
	}
}

// SendCurrent implements spec.md §4.5: snapshot every unsent current
// observation across all kinds, encode each, write to every connected
// client, and update last[] to the most recent observation per key among
// those successfully written (or among all of them when no client is
// connected).
func (c *Core) SendCurrent() {
	snap := c.store.snapshotUnsent()
	c.dispatch(snap)
}

// SendLast implements the reconnect-replay mechanism of spec.md §4.5:
// snapshot every last-sent entry, rewrite its timestamp to override (or
// now if override <= 0), and write to every connected client.
func (c *Core) SendLast(override int64) {
	if override <= 0 {
		override = c.nowFunc()
	}
	snap := c.store.snapshotLast()
	rewritten := make([]*Observation, len(snap))
	for i, o := range snap {
		// snapshotLast returns the pointers stored in last[]; copy before
		// rewriting the timestamp so this never mutates a stored entry
		// out from under a concurrent reader or replay, matching the copy
		// replay already takes at core.go's "replayed := *o".
		copied := *o
		copied.Timestamp = override
		rewritten[i] = &copied
	}
	c.dispatch(rewritten)
}

// replay is called by the Listener exactly once per new connection,
// before the connection is handed to the read loop, so the replay happens
// before any send_current that could race with the new client (spec.md
// §4.6, §4.5's "send_last fires before any send_current").
func (c *Core) replay(cl *client) error {
	override := c.nowFunc()
	snap := c.store.snapshotLast()
	lines := make([]string, 0, len(snap))
	for _, o := range snap {
		replayed := *o
		replayed.Timestamp = override
		encoded, err := EncodeLines(c.codec, &replayed)
		if err != nil {
			c.logSoftError("replay", err)
			continue
		}
		lines = append(lines, encoded...)
	}
	for _, line := range lines {
		if err := cl.writeLine(line, c.writeDeadline()); err != nil {
			c.metrics.recordWriteError()
			return err
		}
		c.metrics.recordLineSent()
		c.events.emit(Event{Type: EventLineSent, ClientID: cl.id, Line: line})
	}
	return nil
}

// SetUnavailable implements spec.md §4.5: for every current observation,
// synthesize an UNAVAILABLE record with the same key and kind and submit
// it. Calling it twice is idempotent because the second call's synthesized
// records hash identically to the first's and are deduped by Submit.
func (c *Core) SetUnavailable(timestamp int64) {
	if timestamp <= 0 {
		timestamp = c.nowFunc()
	}
	for _, o := range c.store.snapshotCurrentKeys() {
		unavailable := &Observation{
			DeviceKey:     o.DeviceKey,
			DataItemKey:   o.DataItemKey,
			Timestamp:     timestamp,
			Kind:          o.Kind,
			IsUnavailable: true,
		}
		c.Submit(unavailable)
	}
}

// dispatch encodes and writes a batch of observations to every connected
// client, honoring spec.md §4.5's per-kind, per-client FIFO ordering (the
// batch is encoded and written in a single pass, so lines for one client
// are written to that client's connection in the order this loop visits
// them), then updates last[] per key to the most recently timestamped
// observation written in this batch.
func (c *Core) dispatch(batch []*Observation) {
	if len(batch) == 0 {
		return
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].Timestamp < batch[j].Timestamp })

	clients := c.registry.snapshot()
	for _, o := range batch {
		lines, err := EncodeLines(c.codec, o)
		if err != nil {
			c.logSoftError("dispatch", err)
			continue
		}
		wroteAny := false
		for _, cl := range clients {
			for _, line := range lines {
				if werr := cl.writeLine(line, c.writeDeadline()); werr != nil {
					cl.markClosed()
					c.registry.remove(cl.id)
					c.events.emit(Event{Type: EventSendError, ClientID: cl.id, Err: werr})
					c.metrics.recordWriteError()
					continue
				}
				wroteAny = true
				c.metrics.recordLineSent()
				c.events.emit(Event{Type: EventLineSent, ClientID: cl.id, Line: line})
			}
		}
		if wroteAny || len(clients) == 0 {
			c.store.updateLast(o)
		}
	}
}

// SendAsset implements spec.md §4.8: compare change_id against the stored
// asset; if different, replace and write the encoded line to every
// connected client.
func (c *Core) SendAsset(a *Asset) {
	if a.Timestamp <= 0 {
		a.Timestamp = c.nowFunc()
	}
	a.EnsureChangeID()

	stored, existed := c.store.getAsset(a.AssetID)
	if existed && stored.ChangeID == a.ChangeID {
		return
	}
	c.store.setAsset(a)
	c.broadcastLine(EncodeAsset(c.codec, a))
}

// RemoveAsset emits the @REMOVE_ASSET@ line without mutating the stored
// asset table, per spec.md §4.8: removal is the agent's authoritative
// action, not the adapter's.
func (c *Core) RemoveAsset(assetID string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = c.nowFunc()
	}
	c.broadcastLine(EncodeRemoveAsset(timestamp, assetID))
}

// RemoveAllAssets emits @REMOVE_ALL_ASSETS@ for the given asset type.
func (c *Core) RemoveAllAssets(assetType string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = c.nowFunc()
	}
	c.broadcastLine(EncodeRemoveAllAssets(timestamp, assetType))
}

// SendDevice mirrors SendAsset for device publication.
func (c *Core) SendDevice(d *Device) {
	if d.Timestamp <= 0 {
		d.Timestamp = c.nowFunc()
	}
	d.EnsureChangeID()

	stored, existed := c.store.getDevice(d.DeviceUUID)
	if existed && stored.ChangeID == d.ChangeID {
		return
	}
	c.store.setDevice(d)
	c.broadcastLine(EncodeDevice(c.codec, d))
}

// RemoveDevice emits @REMOVE_DEVICE@ without mutating the stored table.
func (c *Core) RemoveDevice(deviceUUID string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = c.nowFunc()
	}
	c.broadcastLine(EncodeRemoveDevice(timestamp, deviceUUID))
}

// RemoveAllDevices emits @REMOVE_ALL_DEVICES@.
func (c *Core) RemoveAllDevices(timestamp int64) {
	if timestamp <= 0 {
		timestamp = c.nowFunc()
	}
	c.broadcastLine(EncodeRemoveAllDevices(timestamp))
}

func (c *Core) broadcastLine(line string) {
	for _, cl := range c.registry.snapshot() {
		if err := cl.writeLine(line, c.writeDeadline()); err != nil {
			cl.markClosed()
			c.registry.remove(cl.id)
			c.events.emit(Event{Type: EventSendError, ClientID: cl.id, Err: err})
			c.metrics.recordWriteError()
			continue
		}
		c.metrics.recordLineSent()
		c.events.emit(Event{Type: EventLineSent, ClientID: cl.id, Line: line})
	}
}

// logSoftError logs a submission/encode failure as the soft event spec.md
// §7 requires ("surfaced as soft events; observation is dropped"),
// rate-limited so a producer feeding one bad observation per tick cannot
// flood the log.
func (c *Core) logSoftError(operation string, err error) {
	if c.errLimiter.Allow() {
		c.logger.Warn("submission rejected", "operation", operation, "error", err)
	}
}

// newClientID generates a connection identifier when the transport layer
// does not supply its own (the TCP listener always does; this is kept for
// transports, like the NATS bridge's synthetic test clients, that don't).
func newClientID() string {
	return uuid.NewString()
}
