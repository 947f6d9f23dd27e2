package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/shdr-adapter/errors"
)

// configSchema is the JSON Schema every loaded config must satisfy, checked
// in addition to Validate's cross-field rules. Field-level range and enum
// checks live here so an out-of-range value (a port above 65535, a
// negative heartbeat) is rejected with a schema error pointing at the exact
// field, the way the donor's component schema validation does for
// component configs. A value of the wrong type (a string where a port
// number belongs) never reaches this check: the YAML decoder in Load
// already rejects it.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "bind": {"type": "string"},
    "port": {"type": "integer", "minimum": 0, "maximum": 65535},
    "device_key": {"type": "string"},
    "heartbeat_ms": {"type": "integer", "minimum": 1},
    "timeout_ms": {"type": "integer", "minimum": 1},
    "filter_duplicates": {"type": "boolean"},
    "multiline_assets": {"type": "boolean"},
    "multiline_devices": {"type": "boolean"},
    "log_level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
    "admin": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "bind": {"type": "string"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535}
      }
    },
    "nats": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "urls": {"type": "array", "items": {"type": "string"}},
        "subject": {"type": "string"},
        "queue": {"type": "string"},
        "workers": {"type": "integer", "minimum": 0},
        "queue_size": {"type": "integer", "minimum": 0}
      }
    },
    "observer": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "bind": {"type": "string"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "path": {"type": "string"}
      }
    },
    "tls": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "mode": {"type": "string"},
        "cert_file": {"type": "string"},
        "key_file": {"type": "string"}
      }
    }
  }
}`

// validateSchema checks cfg's JSON projection against configSchema. The
// projection is built from typed Go fields, so what it catches are
// out-of-range and out-of-enum values; type mismatches such as
// "port: \"7878\"" are already reported as unmarshal errors by yaml.v3.
func validateSchema(cfg *Config) error {
	asJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateSchema", "marshal for validation")
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(asJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateSchema", "run validation")
	}
	if !result.Valid() {
		msg := "config failed schema validation:"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf(" %s: %s;", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(fmt.Errorf("%s", msg), "config", "validateSchema", "schema check")
	}
	return nil
}
