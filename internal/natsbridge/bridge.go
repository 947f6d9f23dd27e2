// Package natsbridge lets upstream producers publish SHDR observations over
// NATS instead of calling the Adapter API in-process: a JSON envelope per
// message, one NATS subject, fanned out to the right Adapter method by
// envelope kind. It is optional and, like the admin server, implements
// component.LifecycleComponent so it shares the process's single
// cancellation scope.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/metric"
	"github.com/c360/shdr-adapter/natsclient"
	"github.com/c360/shdr-adapter/pkg/retry"
	"github.com/c360/shdr-adapter/pkg/worker"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
)

// Config carries the NATS connection and subject the bridge listens on.
type Config struct {
	URLs    []string
	Subject string
	Queue   string

	// Workers and QueueSize bound the pool that dispatches decoded
	// envelopes to the adapter. Zero takes defaultWorkers/defaultQueueSize.
	Workers   int
	QueueSize int
}

// Envelope is the wire format producers publish. Kind selects which
// Adapter method the bridge dispatches to; fields not relevant to Kind are
// left zero.
type Envelope struct {
	Kind        string              `json:"kind"` // "data_item", "message", "condition", "time_series", "data_set", "table", "unavailable"
	DeviceKey   string              `json:"device_key"`
	DataItemKey string              `json:"data_item_key"`
	Timestamp   int64               `json:"timestamp"`
	Value       string              `json:"value,omitempty"`
	NativeCode  string              `json:"native_code,omitempty"`
	Faults      []adapter.FaultState `json:"faults,omitempty"`
	Samples     []float64           `json:"samples,omitempty"`
	SampleRate  float64             `json:"sample_rate,omitempty"`
	Entries     []adapter.SetEntry  `json:"entries,omitempty"`
	Rows        []adapter.TableRow  `json:"rows,omitempty"`
}

// Bridge subscribes to a NATS subject and submits decoded envelopes to an
// Adapter.
type Bridge struct {
	cfg             Config
	logger          *slog.Logger
	a               *adapter.Adapter
	metricsRegistry *metric.MetricsRegistry

	client *natsclient.Client
	pool   *worker.Pool[Envelope]
}

// New constructs a Bridge that will submit decoded observations to a.
// metricsRegistry may be nil to disable worker pool metrics.
func New(cfg Config, a *adapter.Adapter, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{cfg: cfg, a: a, metricsRegistry: metricsRegistry, logger: logger.With("component", "nats-bridge")}
}

// Initialize validates configuration without connecting.
func (b *Bridge) Initialize() error {
	if len(b.cfg.URLs) == 0 {
		return errors.WrapInvalid(fmt.Errorf("nats bridge requires at least one URL"), "nats-bridge", "Initialize", "urls validation")
	}
	if b.cfg.Subject == "" {
		return errors.WrapInvalid(fmt.Errorf("nats bridge requires a subject"), "nats-bridge", "Initialize", "subject validation")
	}
	return nil
}

// Start connects to NATS and subscribes to the configured subject.
func (b *Bridge) Start(ctx context.Context) error {
	client, err := natsclient.NewClient(b.cfg.URLs[0])
	if err != nil {
		return errors.WrapTransient(err, "nats-bridge", "Start", "create client")
	}

	// NATS may still be starting up alongside the adapter (both often land
	// in the same compose/k8s rollout), so the initial connect gets a few
	// backoff attempts instead of failing the whole component on the first
	// try.
	connectErr := retry.Do(ctx, retry.DefaultConfig(), func() error {
		if err := client.Connect(ctx); err != nil {
			return err
		}
		return client.WaitForConnection(ctx)
	})
	if connectErr != nil {
		return errors.WrapTransient(connectErr, "nats-bridge", "Start", "connect")
	}
	b.client = client

	workers := b.cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queueSize := b.cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	opts := []worker.Option[Envelope]{}
	if b.metricsRegistry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Envelope](b.metricsRegistry, "nats_bridge"))
	}
	b.pool = worker.NewPool(workers, queueSize, b.dispatch, opts...)
	if err := b.pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, "nats-bridge", "Start", "start worker pool")
	}

	if err := client.Subscribe(ctx, b.cfg.Subject, b.handle); err != nil {
		return errors.WrapTransient(err, "nats-bridge", "Start", "subscribe")
	}

	b.logger.Info("nats bridge subscribed", "subject", b.cfg.Subject, "urls", b.cfg.URLs, "workers", workers)
	<-ctx.Done()
	return nil
}

// handle decodes an envelope off the subscription callback and hands it to
// the worker pool; it never dispatches inline, so a slow adapter Submit
// can't back up NATS message delivery for the whole subject.
func (b *Bridge) handle(_ context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Warn("malformed observation envelope", "error", err)
		return
	}

	if err := b.pool.Submit(env); err != nil {
		b.logger.Warn("dropped observation envelope", "kind", env.Kind, "error", err)
	}
}

// dispatch is the worker pool's processor: it submits one decoded envelope
// to the adapter and flushes it to connected agents immediately. Without
// the SendCurrent call, an envelope would only ever reach current[] —
// this is the bridge's equivalent of a producer's submit-then-flush
// cycle over the in-process API, just collapsed to one envelope per call
// since NATS delivery has no natural "batch end" marker of its own.
func (b *Bridge) dispatch(_ context.Context, env Envelope) error {
	switch env.Kind {
	case "data_item":
		b.a.AddDataItem(env.DeviceKey, env.DataItemKey, env.Value, env.Timestamp)
	case "unavailable":
		b.a.AddUnavailableDataItem(env.DeviceKey, env.DataItemKey, env.Timestamp)
	case "message":
		b.a.AddMessage(env.DeviceKey, env.DataItemKey, env.Value, env.NativeCode, env.Timestamp)
	case "condition":
		b.a.AddCondition(env.DeviceKey, env.DataItemKey, env.Faults, env.Timestamp)
	case "time_series":
		b.a.AddTimeSeries(env.DeviceKey, env.DataItemKey, env.Samples, env.SampleRate, env.Timestamp)
	case "data_set":
		b.a.AddDataSet(env.DeviceKey, env.DataItemKey, env.Entries, env.Timestamp)
	case "table":
		b.a.AddTable(env.DeviceKey, env.DataItemKey, env.Rows, env.Timestamp)
	default:
		b.logger.Warn("unknown observation envelope kind", "kind", env.Kind)
		return fmt.Errorf("unknown observation envelope kind %q", env.Kind)
	}
	b.a.SendCurrent()
	return nil
}

// Stop drains the worker pool and closes the NATS connection, each bounded
// by timeout.
func (b *Bridge) Stop(timeout time.Duration) error {
	if b.pool != nil {
		if err := b.pool.Stop(timeout); err != nil {
			b.logger.Warn("worker pool did not drain cleanly", "error", err)
		}
	}
	if b.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := b.client.Close(ctx); err != nil {
		return errors.WrapTransient(err, "nats-bridge", "Stop", "close connection")
	}
	return nil
}
