// Package config loads and validates the SHDR adapter's own configuration:
// the TCP listener, the admin/metrics server, the optional NATS ingestion
// bridge, and TLS. It follows the donor config package's layering idiom
// (file defaults, then a YAML file, then environment overrides) but trades
// JSON and NATS KV persistence for a single local YAML file, since the
// adapter has no distributed config store of its own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/internal/tlsopt"
)

// envPrefix namespaces every environment variable override this package
// recognizes.
const envPrefix = "SHDR_ADAPTER_"

// Config is the adapter process's complete configuration: the SHDR
// listener, the admin/metrics HTTP server, an optional NATS ingestion
// bridge, and TLS for the listener socket.
type Config struct {
	Bind             string `yaml:"bind" json:"bind"`
	Port             int    `yaml:"port" json:"port"`
	DeviceKey        string `yaml:"device_key" json:"device_key"`
	HeartbeatMillis  int64  `yaml:"heartbeat_ms" json:"heartbeat_ms"`
	TimeoutMillis    int64  `yaml:"timeout_ms" json:"timeout_ms"`
	FilterDuplicates bool   `yaml:"filter_duplicates" json:"filter_duplicates"`
	MultilineAssets  bool   `yaml:"multiline_assets" json:"multiline_assets"`
	MultilineDevices bool   `yaml:"multiline_devices" json:"multiline_devices"`

	Admin    AdminConfig    `yaml:"admin" json:"admin"`
	NATS     NATSConfig     `yaml:"nats,omitempty" json:"nats,omitempty"`
	Observer ObserverConfig `yaml:"observer,omitempty" json:"observer,omitempty"`
	TLS      TLSConfig      `yaml:"tls,omitempty" json:"tls,omitempty"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// AdminConfig configures the read-only HTTP admin/metrics server.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Bind    string `yaml:"bind" json:"bind"`
	Port    int    `yaml:"port" json:"port"`
}

// ObserverConfig configures the optional read-only WebSocket event feed.
type ObserverConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Bind    string `yaml:"bind" json:"bind"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// NATSConfig configures the optional NATS ingestion bridge that decodes
// observation envelopes off a subject and submits them to the adapter.
type NATSConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	URLs    []string `yaml:"urls,omitempty" json:"urls,omitempty"`
	Subject string   `yaml:"subject,omitempty" json:"subject,omitempty"`
	Queue   string   `yaml:"queue,omitempty" json:"queue,omitempty"`

	// Workers and QueueSize bound the pool that decodes and dispatches
	// envelopes off the NATS subscription goroutine, so a slow Submit
	// can't back up message delivery for the whole subject. Zero takes
	// the bridge's own defaults.
	Workers   int `yaml:"workers,omitempty" json:"workers,omitempty"`
	QueueSize int `yaml:"queue_size,omitempty" json:"queue_size,omitempty"`
}

// TLSConfig configures TLS for the adapter's own listener. Only cert-file
// ("manual") mode is wired to a real implementation (internal/tlsopt); an
// "acme" mode is rejected by Validate until an ACME client is wired in, so
// operators get a clear configuration error instead of a silent plaintext
// fallback.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Mode     string `yaml:"mode" json:"mode"` // "manual" is the only mode Validate accepts today
	CertFile string `yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
}

// Default returns the adapter's out-of-the-box configuration.
func Default() *Config {
	return &Config{
		Bind:             "",
		Port:             7878,
		HeartbeatMillis:  10_000,
		TimeoutMillis:    5_000,
		FilterDuplicates: true,
		Admin: AdminConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    7879,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file, falling back to Default() for every field
// the file omits, applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := safeReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse yaml")
		}
	}

	applyEnvOverrides(cfg)

	if err := validateSchema(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides mirrors the donor Loader's env-override step, scoped to
// the fields an operator most often needs to flip per-deployment without
// editing the file (port, bind address, device identity, admin port, NATS
// URLs, log level).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv(envPrefix + "BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv(envPrefix + "DEVICE_KEY"); v != "" {
		cfg.DeviceKey = v
	}
	if v := os.Getenv(envPrefix + "ADMIN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Admin.Port = p
		}
	}
	if v := os.Getenv(envPrefix + "NATS_URLS"); v != "" {
		cfg.NATS.URLs = strings.Split(v, ",")
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks field ranges and cross-field requirements before the
// config is handed to the adapter core.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("port %d out of range", c.Port), "config", "Validate", "port")
	}
	if c.HeartbeatMillis <= 0 {
		return errors.WrapInvalid(fmt.Errorf("heartbeat_ms must be positive"), "config", "Validate", "heartbeat_ms")
	}
	if c.TimeoutMillis <= 0 {
		return errors.WrapInvalid(fmt.Errorf("timeout_ms must be positive"), "config", "Validate", "timeout_ms")
	}
	if c.Admin.Enabled && (c.Admin.Port < 0 || c.Admin.Port > 65535) {
		return errors.WrapInvalid(fmt.Errorf("admin.port %d out of range", c.Admin.Port), "config", "Validate", "admin.port")
	}
	if c.Observer.Enabled && (c.Observer.Port < 0 || c.Observer.Port > 65535) {
		return errors.WrapInvalid(fmt.Errorf("observer.port %d out of range", c.Observer.Port), "config", "Validate", "observer.port")
	}
	if c.NATS.Enabled && len(c.NATS.URLs) == 0 {
		return errors.WrapInvalid(fmt.Errorf("nats.urls is required when nats.enabled is true"), "config", "Validate", "nats.urls")
	}
	if c.TLS.Enabled {
		switch c.TLS.Mode {
		case "", "manual":
			if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
				return errors.WrapInvalid(fmt.Errorf("tls.cert_file and tls.key_file are required in manual mode"),
					"config", "Validate", "tls")
			}
			if _, err := os.Stat(c.TLS.CertFile); err != nil {
				return errors.WrapInvalid(fmt.Errorf("tls.cert_file: %w", err), "config", "Validate", "tls.cert_file")
			}
			if _, err := os.Stat(c.TLS.KeyFile); err != nil {
				return errors.WrapInvalid(fmt.Errorf("tls.key_file: %w", err), "config", "Validate", "tls.key_file")
			}
		default:
			return errors.WrapInvalid(fmt.Errorf("tls.mode %q not supported (only \"manual\")", c.TLS.Mode),
				"config", "Validate", "tls.mode")
		}
	}
	return nil
}

// AdapterConfig projects this config onto the adapter core's own Config
// type, the only fields internal/adapter needs to know about.
func (c *Config) AdapterConfig() adapter.Config {
	return adapter.Config{
		Bind:             c.Bind,
		DeviceKey:        c.DeviceKey,
		Port:             c.Port,
		HeartbeatMillis:  c.HeartbeatMillis,
		TimeoutMillis:    c.TimeoutMillis,
		FilterDuplicates: c.FilterDuplicates,
		MultilineAssets:  c.MultilineAssets,
		MultilineDevices: c.MultilineDevices,
		TLS: tlsopt.Config{
			Enabled:  c.TLS.Enabled,
			CertFile: c.TLS.CertFile,
			KeyFile:  c.TLS.KeyFile,
		},
	}
}

// SafeConfig is a thread-safe, deep-copy-on-read wrapper, mirrored from the
// donor config package's SafeConfig: reads never observe a config mid-swap
// and cannot mutate the shared instance through the returned pointer.
type SafeConfig struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewSafeConfig wraps cfg for concurrent access. A nil cfg is replaced with
// Default().
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{cfg: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg.clone()
}

// Update validates and atomically swaps in a new configuration.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
	return nil
}

func (c *Config) clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}
