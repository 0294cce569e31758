// Package config loads recast.toml, the optional project configuration
// consumed by the CLI and the server.
//
// Lookup order: the RECAST_CONFIG environment variable, ./recast.toml,
// then ~/.config/recast/recast.toml. A missing file is not an error -
// every field has a working default.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/recastops/recast/pkg/errors"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "RECAST_CONFIG"

// Config is the root of recast.toml.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Cache    CacheConfig    `toml:"cache"`
	Store    StoreConfig    `toml:"store"`
	Server   ServerConfig   `toml:"server"`
}

// DefaultsConfig sets the source/target tags used when flags are omitted.
type DefaultsConfig struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// CacheConfig selects and tunes the parse-result cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend"` // "file", "redis", or "none"
	Dir     string      `toml:"dir"`     // file backend root
	TTL     string      `toml:"ttl"`     // Go duration string
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StoreConfig holds graph store settings.
type StoreConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// ServerConfig holds `recast serve` settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from path, or from the lookup order when
// path is empty. A missing file yields the defaults; an unreadable or
// malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "parse config %s", path)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// CacheTTL parses the configured cache TTL, falling back to the default
// when unset or unparsable.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 24 * time.Hour
	}
	return d
}

func (c *Config) applyDefaults() {
	if c.Defaults.Source == "" {
		c.Defaults.Source = "chef"
	}
	if c.Defaults.Target == "" {
		c.Defaults.Target = "ansible"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Store.Database == "" {
		c.Store.Database = "recast"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// findConfig walks the lookup order and returns the first existing path.
func findConfig() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if _, err := os.Stat("recast.toml"); err == nil {
		return "recast.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "recast", "recast.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "recast")
	}
	return filepath.Join(os.TempDir(), "recast-cache")
}
