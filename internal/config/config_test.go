package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 7878, cfg.Port)
	assert.Equal(t, int64(10_000), cfg.HeartbeatMillis)
	assert.Equal(t, int64(5_000), cfg.TimeoutMillis)
	assert.True(t, cfg.FilterDuplicates)
	assert.True(t, cfg.Admin.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Port, cfg.Port)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
device_key: Mill01
filter_duplicates: false
admin:
  enabled: false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "Mill01", cfg.DeviceKey)
	assert.False(t, cfg.FilterDuplicates)
	assert.False(t, cfg.Admin.Enabled)
}

func TestLoad_RejectsNonYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsPathTraversal(t *testing.T) {
	_, err := Load("../../../etc/passwd.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: 7878`), 0o600))

	t.Setenv(envPrefix+"PORT", "9100")
	t.Setenv(envPrefix+"DEVICE_KEY", "EnvDevice")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "EnvDevice", cfg.DeviceKey)
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveHeartbeat(t *testing.T) {
	cfg := Default()
	cfg.HeartbeatMillis = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_NATSRequiresURLs(t *testing.T) {
	cfg := Default()
	cfg.NATS.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.NATS.URLs = []string{"nats://localhost:4222"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TLSRejectsUnsupportedMode(t *testing.T) {
	cfg := Default()
	cfg.TLS.Enabled = true
	cfg.TLS.Mode = "acme"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "manual")
}

func TestValidate_TLSManualRequiresFiles(t *testing.T) {
	cfg := Default()
	cfg.TLS.Enabled = true
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestLoad_RejectsWrongType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adapter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: "not-a-number"`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAdapterConfig_Projection(t *testing.T) {
	cfg := Default()
	cfg.DeviceKey = "Mill01"
	cfg.MultilineAssets = true

	ac := cfg.AdapterConfig()
	assert.Equal(t, cfg.Port, ac.Port)
	assert.Equal(t, "Mill01", ac.DeviceKey)
	assert.True(t, ac.MultilineAssets)
}

func TestSafeConfig_GetIsADeepCopy(t *testing.T) {
	sc := NewSafeConfig(Default())
	got := sc.Get()
	got.Port = 1

	again := sc.Get()
	assert.Equal(t, 7878, again.Port)
}

func TestSafeConfig_UpdateValidates(t *testing.T) {
	sc := NewSafeConfig(Default())
	bad := Default()
	bad.Port = -1
	assert.Error(t, sc.Update(bad))

	good := Default()
	good.Port = 9200
	require.NoError(t, sc.Update(good))
	assert.Equal(t, 9200, sc.Get().Port)
}
