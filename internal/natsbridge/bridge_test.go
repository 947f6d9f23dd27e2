package natsbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/shdr-adapter/internal/adapter"
)

func testAdapter(t *testing.T) *adapter.Adapter {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Port = 0
	return adapter.NewAdapter(cfg, nil, nil)
}

func TestInitialize_RequiresURLs(t *testing.T) {
	b := New(Config{Subject: "shdr.observations"}, testAdapter(t), nil, nil)
	assert.Error(t, b.Initialize())
}

func TestInitialize_RequiresSubject(t *testing.T) {
	b := New(Config{URLs: []string{"nats://localhost:4222"}}, testAdapter(t), nil, nil)
	assert.Error(t, b.Initialize())
}

func TestInitialize_ValidConfigPasses(t *testing.T) {
	b := New(Config{URLs: []string{"nats://localhost:4222"}, Subject: "shdr.observations"}, testAdapter(t), nil, nil)
	require.NoError(t, b.Initialize())
}

func TestDispatch_DataItemEnvelopeReachesAdapter(t *testing.T) {
	a := testAdapter(t)
	b := New(Config{}, a, nil, nil)

	env := Envelope{Kind: "data_item", DeviceKey: "Mill01", DataItemKey: "Xact", Value: "12.5", Timestamp: 1000}
	require.NoError(t, b.dispatch(context.Background(), env))
}

func TestDispatch_UnknownKindErrors(t *testing.T) {
	a := testAdapter(t)
	b := New(Config{}, a, nil, nil)

	err := b.dispatch(context.Background(), Envelope{Kind: "bogus", DataItemKey: "x"})
	assert.Error(t, err)
}

func TestDispatch_EveryKindRoutesWithoutError(t *testing.T) {
	a := testAdapter(t)
	b := New(Config{}, a, nil, nil)

	envelopes := []Envelope{
		{Kind: "data_item", DataItemKey: "Xact", Value: "1"},
		{Kind: "unavailable", DataItemKey: "Xact"},
		{Kind: "message", DataItemKey: "msg", Value: "hello"},
		{Kind: "condition", DataItemKey: "servo", Faults: []adapter.FaultState{{Level: adapter.LevelFault}}},
		{Kind: "time_series", DataItemKey: "ts", Samples: []float64{1, 2, 3}, SampleRate: 10},
		{Kind: "data_set", DataItemKey: "ds", Entries: []adapter.SetEntry{{Key: "k", Value: "v"}}},
		{Kind: "table", DataItemKey: "tbl", Rows: []adapter.TableRow{{Key: "r1", Cells: []adapter.SetEntry{{Key: "c", Value: "v"}}}}},
	}
	for _, env := range envelopes {
		assert.NoError(t, b.dispatch(context.Background(), env), "kind %s", env.Kind)
	}
}
