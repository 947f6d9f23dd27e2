package adapter

import (
	"log/slog"

	"github.com/c360/shdr-adapter/metric"
)

// Adapter is the producer-facing entry point named in spec.md §6: one
// method per observation kind plus asset/device publication and removal.
// It is a thin wrapper over Core that builds the tagged-union Observation
// records api callers should never construct by hand, keeping the
// internal representation (Kind, the six payload shapes) out of the public
// surface.
type Adapter struct {
	core *Core
}

// NewAdapter constructs an Adapter over a fresh Core, its Connection
// Listener, State Store, and Client Registry. A nil logger falls back to
// slog.Default(); a nil metricsRegistry disables Prometheus metrics.
func NewAdapter(cfg Config, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) *Adapter {
	return &Adapter{core: NewCore(cfg, logger, metricsRegistry)}
}

// Core exposes the underlying Core for wiring into cmd/shdr-adapter
// (lifecycle registration, admin server stats, event subscription).
func (a *Adapter) Core() *Core { return a.core }

// AddDataItem submits a simple scalar observation. timestamp of 0 means
// "stamp on submit."
func (a *Adapter) AddDataItem(deviceKey, key, value string, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindDataItem,
		Value:       value,
	})
}

// AddUnavailableDataItem submits an UNAVAILABLE data item.
func (a *Adapter) AddUnavailableDataItem(deviceKey, key string, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:     deviceKey,
		DataItemKey:   key,
		Timestamp:     timestamp,
		Kind:          KindDataItem,
		IsUnavailable: true,
	})
}

// AddMessage submits a message observation with an optional native code.
func (a *Adapter) AddMessage(deviceKey, key, value, nativeCode string, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindMessage,
		Value:       value,
		NativeCode:  nativeCode,
	})
}

// AddCondition submits an ordered list of fault states for one condition
// key.
func (a *Adapter) AddCondition(deviceKey, key string, faults []FaultState, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindCondition,
		Faults:      faults,
	})
}

// AddTimeSeries submits a sample vector with its sample rate in Hz.
func (a *Adapter) AddTimeSeries(deviceKey, key string, samples []float64, rateHz float64, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindTimeSeries,
		Samples:     samples,
		SampleRate:  rateHz,
	})
}

// AddDataSet submits a set of key-value entries, each optionally a
// tombstone (Removed).
func (a *Adapter) AddDataSet(deviceKey, key string, entries []SetEntry, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindDataSet,
		Entries:     entries,
	})
}

// AddTable submits a set of row entries, each row a set of cells.
func (a *Adapter) AddTable(deviceKey, key string, rows []TableRow, timestamp int64) {
	a.core.Submit(&Observation{
		DeviceKey:   deviceKey,
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        KindTable,
		Rows:        rows,
	})
}

// SendAsset publishes an asset body, replacing any previously published
// asset with the same asset_id if its change_id differs.
func (a *Adapter) SendAsset(assetID, assetType, body string, timestamp int64) {
	a.core.SendAsset(&Asset{AssetID: assetID, AssetType: assetType, Body: body, Timestamp: timestamp})
}

// RemoveAsset emits @REMOVE_ASSET@ for assetID.
func (a *Adapter) RemoveAsset(assetID string, timestamp int64) {
	a.core.RemoveAsset(assetID, timestamp)
}

// RemoveAllAssets emits @REMOVE_ALL_ASSETS@ for assetType.
func (a *Adapter) RemoveAllAssets(assetType string, timestamp int64) {
	a.core.RemoveAllAssets(assetType, timestamp)
}

// SendDevice publishes a device description body.
func (a *Adapter) SendDevice(deviceUUID, body string, timestamp int64) {
	a.core.SendDevice(&Device{DeviceUUID: deviceUUID, Body: body, Timestamp: timestamp})
}

// RemoveDevice emits @REMOVE_DEVICE@ for deviceUUID.
func (a *Adapter) RemoveDevice(deviceUUID string, timestamp int64) {
	a.core.RemoveDevice(deviceUUID, timestamp)
}

// RemoveAllDevices emits @REMOVE_ALL_DEVICES@.
func (a *Adapter) RemoveAllDevices(timestamp int64) {
	a.core.RemoveAllDevices(timestamp)
}

// SendCurrent flushes every unsent current observation to connected
// clients. A producer's scan cycle typically calls AddDataItem/AddMessage/
// etc. for every point it just read, then calls SendCurrent once to flush
// the batch, mirroring the begin/end-gather pattern of the SHDR protocol's
// reference adapters.
func (a *Adapter) SendCurrent() {
	a.core.SendCurrent()
}

// SetUnavailable marks every current observation UNAVAILABLE, the
// mechanism producers call when a device connection is lost and every
// reading it owns must be invalidated at once.
func (a *Adapter) SetUnavailable(timestamp int64) {
	a.core.SetUnavailable(timestamp)
}

// Subscribe returns a channel of adapter events (AgentConnected,
// LineSent, etc.) and an unsubscribe function.
func (a *Adapter) Subscribe(buffer int) (<-chan Event, func()) {
	return a.core.Subscribe(buffer)
}
