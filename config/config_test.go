package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
device:
  mac: "AA:BB:CC:DD:EE:FF"
`), 0o644))

	cfg, err := Load(yamlPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Device.MAC)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotZero(t, cfg.Device.ReconnectDelay)
}

func TestLoadRespectsExplicitReconnectDelay(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
device:
  mac: "AA:BB:CC:DD:EE:FF"
  reconnect_delay: 10s
`), 0o644))

	cfg, err := Load(yamlPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "10s", cfg.Device.ReconnectDelay.String())
}

func TestLoadMissingYAMLFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "missing.env"))
	require.Error(t, err)
}
