package adapter

import "sync"

// store holds six "current" and six "last-sent" observation maps keyed by
// (kind, data_item_key), plus an asset table and a device table. One mutex
// guards all of it; critical sections are limited to map operations, never
// I/O or hashing, so lock hold time stays O(1) regardless of socket or hash
// latency.
type store struct {
	mu      sync.Mutex
	current map[Kind]map[string]*Observation
	last    map[Kind]map[string]*Observation
	assets  map[string]*Asset
	devices map[string]*Device
}

func newStore() *store {
	s := &store{
		current: make(map[Kind]map[string]*Observation),
		last:    make(map[Kind]map[string]*Observation),
		assets:  make(map[string]*Asset),
		devices: make(map[string]*Device),
	}
	for _, k := range allKinds {
		s.current[k] = make(map[string]*Observation)
		s.last[k] = make(map[string]*Observation)
	}
	return s
}

var allKinds = []Kind{KindDataItem, KindMessage, KindCondition, KindTimeSeries, KindDataSet, KindTable}

// submitCurrent applies the filter_duplicates comparison and the insert
// as one atomic critical section: when filterDuplicates is set and the
// existing entry's change_id matches o's, current[key] is left untouched
// and dropped is true. Otherwise o replaces current[key]. Doing the
// compare and the write under a single lock acquisition closes the
// window insert-then-revert would otherwise leave open, where a
// concurrent snapshotUnsent could observe the duplicate between the
// insert and its compensating revert.
func (s *store) submitCurrent(o *Observation, filterDuplicates bool) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.current[o.Kind]
	previous, existed := table[o.DataItemKey]
	if filterDuplicates && existed && previous.ChangeID == o.ChangeID {
		return true
	}
	table[o.DataItemKey] = o
	return false
}

// snapshotUnsent copies out every current observation across all kinds
// whose IsSent flag is false, flipping the flag to true in place before
// releasing the lock. This is the "send_current" precondition: once
// snapshotted, an observation will not be handed to dispatch again until a
// later submit marks it unsent once more.
func (s *store) snapshotUnsent() []*Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Observation
	for _, k := range allKinds {
		for _, o := range s.current[k] {
			if !o.IsSent {
				o.IsSent = true
				out = append(out, o)
			}
		}
	}
	return out
}

// updateLast records the most recently transmitted observation for a key,
// called after a successful write, or when no client is connected so that
// the next connection's replay carries it.
func (s *store) updateLast(o *Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[o.Kind][o.DataItemKey] = o
}

// snapshotLast copies out every last-sent observation across all kinds,
// the mechanism behind reconnect replay.
func (s *store) snapshotLast() []*Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Observation
	for _, k := range allKinds {
		for _, o := range s.last[k] {
			out = append(out, o)
		}
	}
	return out
}

// snapshotCurrentKeys copies out every current observation regardless of
// IsSent, used by set_unavailable to synthesize an UNAVAILABLE record per
// live key.
func (s *store) snapshotCurrentKeys() []*Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Observation
	for _, k := range allKinds {
		for _, o := range s.current[k] {
			out = append(out, o)
		}
	}
	return out
}

// getAsset returns the stored asset, if any.
func (s *store) getAsset(id string) (*Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok
}

// setAsset replaces the stored asset unconditionally.
func (s *store) setAsset(a *Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.AssetID] = a
}

// getDevice returns the stored device, if any.
func (s *store) getDevice(uuid string) (*Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[uuid]
	return d, ok
}

// setDevice replaces the stored device unconditionally.
func (s *store) setDevice(d *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.DeviceUUID] = d
}
