package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STATSIG_SDK_KEY", "secret-key")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "secret-key", cfg.SDKKey)
	require.Equal(t, int64(10_000), cfg.Network.SpecsSyncIntervalMs)
	require.Equal(t, 1000, cfg.Events.MaxQueueSize)
	require.Equal(t, int64(60), cfg.Events.DedupTTLSeconds)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsig.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
sdk_key = "from-file"

[network]
specs_sync_interval_ms = 5000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.SDKKey)
	require.Equal(t, int64(5000), cfg.Network.SpecsSyncIntervalMs)

	t.Setenv("STATSIG_SDK_KEY", "from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.SDKKey, "env var must win over file value")
}

func TestLoad_MissingSDKKeyWithNetworkEnabled(t *testing.T) {
	t.Setenv("STATSIG_SDK_KEY", "")
	t.Setenv("STATSIG_DISABLE_NETWORK", "")
	path := filepath.Join(t.TempDir(), "statsig.toml")
	require.NoError(t, os.WriteFile(path, []byte("environment = \"staging\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_DisableNetworkSkipsSDKKeyRequirement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsig.toml")
	require.NoError(t, os.WriteFile(path, []byte("disable_network = true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, cfg.SDKKey)
	require.True(t, cfg.DisableNetwork)
}
