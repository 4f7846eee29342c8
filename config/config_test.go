package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseTOML = `
[packstore]
prefix = "packs/"
cache_size = "64MB"
cache_ttl_s = 300

[retry]
max_retries = 5
initial_delay_ms = 100
max_delay_ms = 5000
backoff_multiplier = 2.0
jitter = true

[lock]
timeout_ms = 10000
ttl_ms = 30000

[pipeline]
batch_size = 1000
flush_interval_ms = 500
output_path = "/var/lib/cdc"
`

const localTOML = `
[packstore]
prefix = "packs-local/"

[lock]
holder = "node-2"
`

func TestLoadDecodesAllSections(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(baseTOML), 0o644))

	cfg, err := Load(base)
	require.NoError(t, err)
	require.Equal(t, "packs/", cfg.PackStore.Prefix)
	require.EqualValues(t, 64*1024*1024, cfg.PackStore.CacheSize.Bytes)
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.True(t, cfg.Retry.Jitter)
	require.Equal(t, 1000, cfg.Pipeline.BatchSize)
}

func TestLoadLayeredOverwritesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")
	require.NoError(t, os.WriteFile(base, []byte(baseTOML), 0o644))
	require.NoError(t, os.WriteFile(local, []byte(localTOML), 0o644))

	cfg, err := LoadLayered(base, local)
	require.NoError(t, err)
	require.Equal(t, "packs-local/", cfg.PackStore.Prefix)
	require.Equal(t, "node-2", cfg.Lock.Holder)
	// Fields absent from the local layer keep the base layer's value.
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.EqualValues(t, 30000, cfg.Lock.TTLMS)
}

func TestLoadLayeredMissingLocalFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(baseTOML), 0o644))

	cfg, err := LoadLayered(base, filepath.Join(dir, "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, "packs/", cfg.PackStore.Prefix)
}
