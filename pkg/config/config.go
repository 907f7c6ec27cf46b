package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/killallgit/castero/pkg/errors"
)

// recognizedKeys is the complete key set of the config file. Every key
// must be present and no other key may appear; both violations are
// fatal at startup.
var recognizedKeys = []string{
	"seek_distance",
	"max_episodes",
	"reload_on_start",
	"restrict_memory_usage",
	"request_timeout",
	"proxy_http",
	"proxy_https",
	"custom_download_dir",
	"add_only_unplayed_episodes",
	"disable_vertical_borders",
}

// Config is the immutable application configuration, constructed once
// at startup and passed explicitly to everything that needs it.
type Config struct {
	SeekDistance            int
	MaxEpisodes             int
	ReloadOnStart           bool
	RestrictMemoryUsage     bool
	RequestTimeout          float64
	ProxyHTTP               string
	ProxyHTTPS              string
	CustomDownloadDir       string
	AddOnlyUnplayedEpisodes bool
	DisableVerticalBorders  bool
}

// Load reads and validates the config file at path. A missing file is
// first materialized from built-in defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigParse, "writing default config")
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeConfigParse, "reading config file %s", path)
	}

	seen := make(map[string]bool)
	for _, key := range v.AllKeys() {
		seen[normalizeKey(key)] = true
	}

	known := make(map[string]bool, len(recognizedKeys))
	for _, key := range recognizedKeys {
		known[key] = true
		if !seen[key] {
			return nil, errors.ConfigError(errors.ErrCodeConfigMissingKey, key, "key is missing")
		}
	}

	var unknown []string
	for key := range seen {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.ConfigError(errors.ErrCodeConfigUnknownKey, unknown[0], "key is not recognized")
	}

	get := func(key string) string { return "default." + key }

	cfg := &Config{
		SeekDistance:            v.GetInt(get("seek_distance")),
		MaxEpisodes:             v.GetInt(get("max_episodes")),
		ReloadOnStart:           v.GetBool(get("reload_on_start")),
		RestrictMemoryUsage:     v.GetBool(get("restrict_memory_usage")),
		RequestTimeout:          v.GetFloat64(get("request_timeout")),
		ProxyHTTP:               v.GetString(get("proxy_http")),
		ProxyHTTPS:              v.GetString(get("proxy_https")),
		CustomDownloadDir:       v.GetString(get("custom_download_dir")),
		AddOnlyUnplayedEpisodes: v.GetBool(get("add_only_unplayed_episodes")),
		DisableVerticalBorders:  v.GetBool(get("disable_vertical_borders")),
	}
	return cfg, nil
}

// normalizeKey strips the INI default-section prefix viper adds to
// section-less keys.
func normalizeKey(key string) string {
	return strings.TrimPrefix(key, "default.")
}

// Timeout returns the HTTP request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout * float64(time.Second))
}

// DownloadDir resolves the downloads root: the configured custom dir
// with ~ and $VAR expansion, or downloaded/ under the data dir.
func (c *Config) DownloadDir() string {
	if c.CustomDownloadDir != "" {
		return ExpandPath(c.CustomDownloadDir)
	}
	return filepath.Join(DataDir(), "downloaded")
}

// ExpandPath expands a leading ~ and any $VAR references in p.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
		}
	}
	return os.ExpandEnv(p)
}

// writeDefault materializes the built-in default config file at path.
func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(defaultConf), 0644)
}

const defaultConf = `; castero configuration

; number of seconds to skip forward/backward when seeking
seek_distance = 5

; maximum number of episodes to retain per feed; -1 for unbounded
max_episodes = -1

; reload all feeds when the client starts
reload_on_start = false

; keep the database on disk instead of mirroring it in memory
restrict_memory_usage = false

; seconds before an HTTP request is abandoned
request_timeout = 3.05

; proxy servers for feed requests; leave empty for none
proxy_http =
proxy_https =

; download episodes to this directory instead of the data dir
custom_download_dir =

; adding a feed to the queue skips episodes already played
add_only_unplayed_episodes = false

; draw the interface without vertical borders
disable_vertical_borders = false
`
