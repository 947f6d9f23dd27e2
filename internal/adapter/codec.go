package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360/shdr-adapter/errors"
)

const (
	unavailable = "UNAVAILABLE"

	tokenPing             = "* PING"
	tokenPongFormat       = "* PONG %d"
	tokenAsset            = "@ASSET@"
	tokenRemoveAsset      = "@REMOVE_ASSET@"
	tokenRemoveAllAssets  = "@REMOVE_ALL_ASSETS@"
	tokenDevice           = "@DEVICE@"
	tokenRemoveDevice     = "@REMOVE_DEVICE@"
	tokenRemoveAllDevices = "@REMOVE_ALL_DEVICES@"
)

// CodecConfig carries the per-adapter settings the Line Codec needs: the
// default device key used to decide whether a data item key must be
// qualified, and whether asset/device bodies are wrapped in multiline
// sentinels.
type CodecConfig struct {
	DefaultDeviceKey string
	MultilineAssets  bool
	MultilineDevices bool
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// qualifiedKey returns data_item_key, or device_key:data_item_key when the
// observation names a device key that differs from the adapter's default.
func qualifiedKey(cfg CodecConfig, deviceKey, dataItemKey string) string {
	if deviceKey != "" && deviceKey != cfg.DefaultDeviceKey {
		return deviceKey + ":" + dataItemKey
	}
	return dataItemKey
}

// validateField rejects embedded '|' separators and non-ASCII bytes in
// any value bound for the wire, per the adapter's resolution of the
// source's unspecified '|'-escaping behavior.
func validateField(value string) error {
	if hasEmbeddedPipe(value) {
		return errors.ErrEmbeddedPipe
	}
	if !isASCII(value) {
		return errors.ErrNonASCII
	}
	return nil
}

// EncodeLines renders one observation into the SHDR line(s) that carry it.
// Most kinds produce exactly one line; Condition produces one line per
// fault state sharing the same timestamp and key.
func EncodeLines(cfg CodecConfig, o *Observation) ([]string, error) {
	ts := formatTimestamp(o.Timestamp)
	key := qualifiedKey(cfg, o.DeviceKey, o.DataItemKey)

	switch o.Kind {
	case KindDataItem:
		value := o.Value
		if o.IsUnavailable {
			value = unavailable
		}
		if err := validateField(value); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s|%s|%s", ts, key, value)}, nil

	case KindMessage:
		value := o.Value
		if o.IsUnavailable {
			value = unavailable
		}
		if err := validateField(value); err != nil {
			return nil, err
		}
		if err := validateField(o.NativeCode); err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s|%s|%s|%s", ts, key, value, o.NativeCode)}, nil

	case KindCondition:
		if o.IsUnavailable {
			return []string{fmt.Sprintf("%s|%s|%s|||||", ts, key, LevelUnavailable)}, nil
		}
		lines := make([]string, 0, len(o.Faults))
		for _, f := range o.Faults {
			for _, field := range []string{f.NativeCode, f.NativeSeverity, f.Qualifier, f.Message} {
				if err := validateField(field); err != nil {
					return nil, err
				}
			}
			lines = append(lines, fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
				ts, key, f.Level, f.NativeCode, f.NativeSeverity, f.Qualifier, f.Message))
		}
		return lines, nil

	case KindTimeSeries:
		if o.IsUnavailable {
			return []string{fmt.Sprintf("%s|%s|0|0|%s", ts, key, unavailable)}, nil
		}
		samples := make([]string, len(o.Samples))
		for i, s := range o.Samples {
			samples[i] = strconv.FormatFloat(s, 'g', -1, 64)
		}
		return []string{fmt.Sprintf("%s|%s|%d|%g|%s", ts, key, len(o.Samples), o.SampleRate, strings.Join(samples, " "))}, nil

	case KindDataSet:
		if o.IsUnavailable {
			return []string{fmt.Sprintf("%s|%s|%s", ts, key, unavailable)}, nil
		}
		pairs := make([]string, len(o.Entries))
		for i, e := range o.Entries {
			if err := validateField(e.Key); err != nil {
				return nil, err
			}
			if e.Removed {
				pairs[i] = e.Key + "="
				continue
			}
			if err := validateField(e.Value); err != nil {
				return nil, err
			}
			pairs[i] = e.Key + "=" + e.Value
		}
		return []string{fmt.Sprintf("%s|%s|%s", ts, key, strings.Join(pairs, " "))}, nil

	case KindTable:
		if o.IsUnavailable {
			return []string{fmt.Sprintf("%s|%s|%s", ts, key, unavailable)}, nil
		}
		rows := make([]string, len(o.Rows))
		for i, r := range o.Rows {
			if err := validateField(r.Key); err != nil {
				return nil, err
			}
			if r.Removed {
				rows[i] = r.Key + "="
				continue
			}
			cells := make([]string, len(r.Cells))
			for j, c := range r.Cells {
				if err := validateField(c.Key); err != nil {
					return nil, err
				}
				if c.Removed {
					cells[j] = c.Key + "="
					continue
				}
				if err := validateField(c.Value); err != nil {
					return nil, err
				}
				cells[j] = c.Key + "=" + c.Value
			}
			rows[i] = fmt.Sprintf("%s={%s}", r.Key, strings.Join(cells, " "))
		}
		return []string{fmt.Sprintf("%s|%s|%s", ts, key, strings.Join(rows, " "))}, nil

	default:
		return nil, errors.ErrUnknownObservation
	}
}

// EncodeAsset renders an asset publish line, wrapping the body between
// "--multiline--<hash>" sentinels when multiline mode is enabled so agents
// can parse multi-line XML bodies.
func EncodeAsset(cfg CodecConfig, a *Asset) string {
	ts := formatTimestamp(a.Timestamp)
	body := a.Body
	if cfg.MultilineAssets {
		marker := multilineMarker(body)
		return fmt.Sprintf("%s|%s|%s|%s|--multiline--%s\n%s\n--multiline--%s",
			ts, tokenAsset, a.AssetID, a.AssetType, marker, body, marker)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", ts, tokenAsset, a.AssetID, a.AssetType, escapeNewlines(body))
}

// EncodeRemoveAsset renders an asset-removal line. Removal never mutates
// the stored asset table; it is the agent's authoritative action.
func EncodeRemoveAsset(timestamp int64, assetID string) string {
	return fmt.Sprintf("%s|%s|%s", formatTimestamp(timestamp), tokenRemoveAsset, assetID)
}

// EncodeRemoveAllAssets renders a remove-all-assets-of-type line.
func EncodeRemoveAllAssets(timestamp int64, assetType string) string {
	return fmt.Sprintf("%s|%s|%s", formatTimestamp(timestamp), tokenRemoveAllAssets, assetType)
}

// EncodeDevice renders a device publish line.
func EncodeDevice(cfg CodecConfig, d *Device) string {
	ts := formatTimestamp(d.Timestamp)
	body := d.Body
	if cfg.MultilineDevices {
		marker := multilineMarker(body)
		return fmt.Sprintf("%s|%s|%s|--multiline--%s\n%s\n--multiline--%s",
			ts, tokenDevice, d.DeviceUUID, marker, body, marker)
	}
	return fmt.Sprintf("%s|%s|%s|%s", ts, tokenDevice, d.DeviceUUID, escapeNewlines(body))
}

// EncodeRemoveDevice renders a device-removal line.
func EncodeRemoveDevice(timestamp int64, deviceUUID string) string {
	return fmt.Sprintf("%s|%s|%s", formatTimestamp(timestamp), tokenRemoveDevice, deviceUUID)
}

// EncodeRemoveAllDevices renders a remove-all-devices line.
func EncodeRemoveAllDevices(timestamp int64) string {
	return fmt.Sprintf("%s|%s", formatTimestamp(timestamp), tokenRemoveAllDevices)
}

// EncodePong renders the heartbeat reply, carrying the configured
// heartbeat interval in milliseconds.
func EncodePong(heartbeatMS int64) string {
	return fmt.Sprintf(tokenPongFormat, heartbeatMS)
}

// multilineMarker derives a short hash-based sentinel that is exceedingly
// unlikely to occur inside body, matching the donor-style hex-digest
// idiom used elsewhere in the codebase for content fingerprints.
func multilineMarker(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:8])
}

// escapeNewlines collapses embedded newlines in a single-line body so a
// non-multiline asset or device publish never breaks SHDR line framing.
func escapeNewlines(body string) string {
	return strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", " "), "\n", " ")
}

// DecodedLine is one line recovered from a client's inbound stream.
type DecodedLine struct {
	Raw    string
	IsPing bool
}

// DecodeLines splits a raw inbound buffer on CRLF (bare LF tolerated),
// trims whitespace, discards empty lines, and flags the only
// semantically-interpreted inbound line: the ping request. Anything else
// is treated as an unexpected protocol line and surfaced to the caller for
// logging, not acted upon.
func DecodeLines(buf string) []DecodedLine {
	raw := strings.Split(strings.ReplaceAll(buf, "\r\n", "\n"), "\n")
	lines := make([]DecodedLine, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, DecodedLine{
			Raw:    trimmed,
			IsPing: trimmed == tokenPing,
		})
	}
	return lines
}
