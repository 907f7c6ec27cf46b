package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/castero/pkg/errors"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "castero.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConf = `seek_distance = 30
max_episodes = 100
reload_on_start = true
restrict_memory_usage = true
request_timeout = 1.5
proxy_http = http://proxy:8080
proxy_https =
custom_download_dir =
add_only_unplayed_episodes = true
disable_vertical_borders = false
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConf(t, validConf))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.SeekDistance)
	assert.Equal(t, 100, cfg.MaxEpisodes)
	assert.True(t, cfg.ReloadOnStart)
	assert.True(t, cfg.RestrictMemoryUsage)
	assert.InDelta(t, 1.5, cfg.RequestTimeout, 1e-9)
	assert.Equal(t, "http://proxy:8080", cfg.ProxyHTTP)
	assert.Empty(t, cfg.ProxyHTTPS)
	assert.True(t, cfg.AddOnlyUnplayedEpisodes)
	assert.False(t, cfg.DisableVerticalBorders)
	assert.Equal(t, 1500*int64(1e6), cfg.Timeout().Nanoseconds())
}

func TestLoad_MissingKey(t *testing.T) {
	// Drop the first line of the valid config.
	content := validConf[len("seek_distance = 30\n"):]
	_, err := Load(writeConf(t, content))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigMissingKey))
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConf(t, validConf+"mystery_key = 1\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigUnknownKey))
}

func TestLoad_MaterializesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "castero.conf")
	cfg, err := Load(path)
	require.NoError(t, err)

	// The default file now exists and is complete.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, 5, cfg.SeekDistance)
	assert.Equal(t, -1, cfg.MaxEpisodes)
	assert.False(t, cfg.RestrictMemoryUsage)
}

func TestConfig_DownloadDir(t *testing.T) {
	t.Setenv("CASTERO_TEST_DL", "/tmp/dl")
	cfg := &Config{CustomDownloadDir: "$CASTERO_TEST_DL/podcasts"}
	assert.Equal(t, "/tmp/dl/podcasts", cfg.DownloadDir())

	cfg = &Config{}
	assert.Equal(t, filepath.Join(DataDir(), "downloaded"), cfg.DownloadDir())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pods"), ExpandPath("~/pods"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
