// Package config loads dopflow configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML file,
// then DOPFLOW_* environment variables. The file lives at
// $XDG_CONFIG_HOME/dopflow/config.toml (or ~/.config/dopflow/config.toml):
//
//	[server]
//	addr = ":8080"
//
//	[cache]
//	backend = "redis"          # file, redis or none
//	redis_addr = "localhost:6379"
//	ttl = "24h"                # caps the per-kind entry lifetimes
//	prefix = "staging:"
//
//	[store]
//	backend = "mongo"          # memory or mongo
//	mongo_uri = "mongodb://localhost:27017"
//
//	[render]
//	width = 1200
//	height = 600
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/render/sankey"
)

const appName = "dopflow"

// Backend names.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Render RenderConfig `toml:"render"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

// CacheConfig selects and configures the pipeline cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// TTL caps the lifetime of cache entries; zero keeps the per-kind defaults.
	TTL Duration `toml:"ttl"`

	// Prefix namespaces cache keys so deployments can share a backend.
	Prefix string `toml:"prefix"`
}

// StoreConfig selects and configures graph record storage.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// RenderConfig holds default layout dimensions.
type RenderConfig struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	NodeWidth   float64 `toml:"node_width"`
	NodePadding float64 `toml:"node_padding"`
}

// Duration is a time.Duration decoded from strings such as "24h".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		Cache:  CacheConfig{Backend: CacheFile},
		Store:  StoreConfig{Backend: StoreMemory, Database: "dopflow", Collection: "graphs"},
		Render: RenderConfig{
			Width:       sankey.DefaultWidth,
			Height:      sankey.DefaultHeight,
			NodeWidth:   sankey.DefaultNodeWidth,
			NodePadding: sankey.DefaultNodePadding,
		},
	}
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path means [DefaultPath]; a missing file at
// the default path is not an error, a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		_, err := toml.DecodeFile(path, cfg)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "config file %s", path)
		default:
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "decode %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and dimensions.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "unknown cache backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "unknown store backend %q (must be one of: memory, mongo)", c.Store.Backend)
	}

	r := c.Render
	if r.Width <= 0 || r.Height <= 0 || r.NodeWidth <= 0 || r.NodePadding < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "render dimensions must be positive")
	}
	if r.NodeWidth >= r.Width {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "render.node_width must be smaller than render.width")
	}
	if c.Cache.TTL.Duration < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	return nil
}

// applyEnv overrides file values with DOPFLOW_* environment variables.
func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "DOPFLOW_ADDR")
	setString(&c.Cache.Backend, "DOPFLOW_CACHE")
	setString(&c.Cache.Dir, "DOPFLOW_CACHE_DIR")
	setString(&c.Cache.RedisAddr, "DOPFLOW_REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "DOPFLOW_REDIS_PASSWORD")
	setString(&c.Cache.Prefix, "DOPFLOW_CACHE_PREFIX")
	setString(&c.Store.Backend, "DOPFLOW_STORE")
	setString(&c.Store.MongoURI, "DOPFLOW_MONGO_URI")
	setString(&c.Store.Database, "DOPFLOW_MONGO_DATABASE")

	if v := os.Getenv("DOPFLOW_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "DOPFLOW_REDIS_DB")
		}
		c.Cache.RedisDB = db
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/dopflow/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the file cache directory: cache.dir when set, else the
// XDG cache location (~/.cache/dopflow/).
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
