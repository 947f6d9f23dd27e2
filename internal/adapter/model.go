// Package adapter implements the SHDR line protocol adapter: the state
// store, client registry, connection listener, and submission API that
// stream manufacturing device observations to MTConnect agents.
package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which of the six observation shapes a record carries.
// A tagged union collapses what the donor domain modeled as six parallel
// type hierarchies into one type with one encoder dispatch.
type Kind int

const (
	KindDataItem Kind = iota
	KindMessage
	KindCondition
	KindTimeSeries
	KindDataSet
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindDataItem:
		return "data_item"
	case KindMessage:
		return "message"
	case KindCondition:
		return "condition"
	case KindTimeSeries:
		return "time_series"
	case KindDataSet:
		return "data_set"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// FaultLevel is the severity of one condition fault state.
type FaultLevel string

const (
	LevelNormal      FaultLevel = "NORMAL"
	LevelWarning     FaultLevel = "WARNING"
	LevelFault       FaultLevel = "FAULT"
	LevelUnavailable FaultLevel = "UNAVAILABLE"
)

// FaultState is a single entry in a Condition observation's fault list.
type FaultState struct {
	Level          FaultLevel
	NativeCode     string
	NativeSeverity string
	Qualifier      string
	Message        string
}

// SetEntry is one key/value pair in a DataSet, or one cell in a Table row.
// Removed marks a tombstone: the value is dropped and the codec emits
// "key=" instead of "key=value".
type SetEntry struct {
	Key     string
	Value   string
	Removed bool
}

// TableRow is one row of a Table observation: a row key plus its cells.
type TableRow struct {
	Key     string
	Cells   []SetEntry
	Removed bool
}

// Observation is the tagged-union value record for all six SHDR
// observation kinds. Only the fields relevant to Kind are populated; the
// zero value of the rest is ignored by the codec and the hasher.
type Observation struct {
	DeviceKey     string
	DataItemKey   string
	Timestamp     int64 // milliseconds since Unix epoch; 0 means "stamp on submit"
	Kind          Kind
	IsUnavailable bool
	IsSent        bool // transient, maintained by the State Store only

	// KindDataItem, KindMessage
	Value string

	// KindMessage
	NativeCode string

	// KindCondition
	Faults []FaultState

	// KindTimeSeries
	SampleRate float64
	Samples    []float64

	// KindDataSet
	Entries []SetEntry

	// KindTable
	Rows []TableRow

	// ChangeID is a content hash over the payload, excluding Timestamp.
	// Computed lazily and cached by EnsureChangeID; callers that mutate a
	// payload field after construction must clear ChangeID and call
	// EnsureChangeID again.
	ChangeID string
}

// EnsureChangeID computes and caches the observation's change id if it has
// not already been set.
func (o *Observation) EnsureChangeID() string {
	if o.ChangeID == "" {
		o.ChangeID = computeChangeID(o)
	}
	return o.ChangeID
}

// computeChangeID derives a 32-byte SHA-256 digest, hex-encoded, over a
// canonical serialization of the observation's payload. Canonical form
// sorts keyed collections (DataSet entries, Table rows and their cells) so
// that equal sets hash equally regardless of submission order, matching
// the invariant that change_id is a pure function of the payload. The
// UNAVAILABLE sentinel is folded into the hashed form so toggling
// availability always changes the hash, even though the concrete value is
// otherwise discarded.
func computeChangeID(o *Observation) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", o.Kind, o.DeviceKey, o.DataItemKey)

	if o.IsUnavailable {
		h.Write([]byte("UNAVAILABLE"))
		return hex.EncodeToString(h.Sum(nil))
	}

	switch o.Kind {
	case KindDataItem:
		h.Write([]byte(o.Value))
	case KindMessage:
		fmt.Fprintf(h, "%s|%s", o.Value, o.NativeCode)
	case KindCondition:
		for _, f := range o.Faults {
			fmt.Fprintf(h, "%s|%s|%s|%s|%s;", f.Level, f.NativeCode, f.NativeSeverity, f.Qualifier, f.Message)
		}
	case KindTimeSeries:
		fmt.Fprintf(h, "%d|%g|", len(o.Samples), o.SampleRate)
		for _, s := range o.Samples {
			fmt.Fprintf(h, "%g,", s)
		}
	case KindDataSet:
		entries := sortedEntries(o.Entries)
		for _, e := range entries {
			fmt.Fprintf(h, "%s=%s,%t;", e.Key, e.Value, e.Removed)
		}
	case KindTable:
		rows := append([]TableRow(nil), o.Rows...)
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
		for _, r := range rows {
			fmt.Fprintf(h, "%s[%t]{", r.Key, r.Removed)
			for _, c := range sortedEntries(r.Cells) {
				fmt.Fprintf(h, "%s=%s,%t;", c.Key, c.Value, c.Removed)
			}
			h.Write([]byte("}"))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedEntries(entries []SetEntry) []SetEntry {
	sorted := append([]SetEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

// Asset is a producer-published MTConnect asset. Assets are not resampled
// like observations: each change is an explicit publish, so there is no
// current/last split, only a change_id comparison against what was last
// stored.
type Asset struct {
	AssetID   string
	AssetType string
	Timestamp int64
	Body      string
	ChangeID  string
}

// EnsureChangeID computes and caches the asset's change id.
func (a *Asset) EnsureChangeID() string {
	if a.ChangeID == "" {
		h := sha256.New()
		fmt.Fprintf(h, "%s|%s|%s", a.AssetID, a.AssetType, a.Body)
		a.ChangeID = hex.EncodeToString(h.Sum(nil))
	}
	return a.ChangeID
}

// Device is a producer-published device description body.
type Device struct {
	DeviceUUID string
	Timestamp  int64
	Body       string
	ChangeID   string
}

// EnsureChangeID computes and caches the device's change id.
func (d *Device) EnsureChangeID() string {
	if d.ChangeID == "" {
		h := sha256.New()
		fmt.Fprintf(h, "%s|%s", d.DeviceUUID, d.Body)
		d.ChangeID = hex.EncodeToString(h.Sum(nil))
	}
	return d.ChangeID
}

// isASCII reports whether every byte in s is within the 7-bit ASCII range,
// matching the wire contract that SHDR text is interpreted as ASCII by
// agents.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// hasEmbeddedPipe reports whether s contains the '|' field separator.
// The source left `|`-escaping unspecified; this adapter rejects embedded
// pipes outright rather than guess an escaping scheme the agent side does
// not expect.
func hasEmbeddedPipe(s string) bool {
	return strings.ContainsRune(s, '|')
}
