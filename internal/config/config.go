// Package config loads server settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with GALLERY_ (for example GALLERY_PORT,
// GALLERY_STORE_DSN or GALLERY_CACHE_REDIS_ADDR). PORT is also honoured on
// its own.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GALLERY"

type Config struct {
	Port   int          `yaml:"port" envconfig:"PORT"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	API    APIConfig    `yaml:"api"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" split_words:"true"`
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `yaml:"dsn" split_words:"true"`
}

// CacheConfig enables the redis list cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr" split_words:"true"`
	TTL       time.Duration `yaml:"ttl" split_words:"true"`
}

type APIConfig struct {
	// StrictNotFound turns update/delete of a missing id into a 404.
	StrictNotFound bool `yaml:"strictNotFound" split_words:"true"`
}

type LogConfig struct {
	Format string `yaml:"format" split_words:"true"` // text or json
	Level  string `yaml:"level" split_words:"true"`   // debug, info, warn, error
}

type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port: 3000,
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "data/gallery.db",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Server: ServerConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		errs = append(errs, errors.New("store dsn is empty"))
	}

	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache ttl is negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
