// Package config loads runtime settings: defaults, then an optional TOML
// file, then environment variables (a .env file in the working directory is
// read first and never overrides the real environment).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CAREPOINTS_"

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

var drivers = []string{DriverMemory, DriverFile, DriverBolt, DriverSQLite}

type Config struct {
	HTTP    HTTPConfig    `toml:"http"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`

	// Location is the IANA zone used for date keys and hours. Empty means
	// the host's local zone.
	Location string `toml:"location"`
}

type HTTPConfig struct {
	Host            string        `toml:"host"`
	Port            string        `toml:"port"`
	ReadTimeout     time.Duration `toml:"read-timeout"`
	WriteTimeout    time.Duration `toml:"write-timeout"`
	IdleTimeout     time.Duration `toml:"idle-timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown-timeout"`
	CORSOrigins     []string      `toml:"cors-origins"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
	// Path is a directory for "file" and a database file for "bolt" and
	// "sqlite".
	Path string `toml:"path"`
	// HistoryKeep is how many superseded values per key the sqlite driver
	// retains.
	HistoryKeep int `toml:"history-keep"`
	// PruneInterval is how often history is trimmed to HistoryKeep.
	PruneInterval time.Duration `toml:"prune-interval"`
}

type LogConfig struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string { return h.Host + ":" + h.Port }

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			Driver:        DriverSQLite,
			Path:          "./data/carepoints.db",
			HistoryKeep:   50,
			PruneInterval: time.Hour,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load builds the configuration. path may be empty; a missing file at path
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load(".env")
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.HTTP.Host = getString("HTTP_HOST", c.HTTP.Host)
	c.HTTP.Port = getString("HTTP_PORT", c.HTTP.Port)
	c.HTTP.ReadTimeout = getDuration("HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.IdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", c.HTTP.IdleTimeout)
	c.HTTP.ShutdownTimeout = getDuration("HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)
	c.HTTP.CORSOrigins = getList("CORS_ORIGINS", c.HTTP.CORSOrigins)

	c.Storage.Driver = getString("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getString("STORAGE_PATH", c.Storage.Path)
	c.Storage.HistoryKeep = getInt("STORAGE_HISTORY_KEEP", c.Storage.HistoryKeep)
	c.Storage.PruneInterval = getDuration("STORAGE_PRUNE_INTERVAL", c.Storage.PruneInterval)

	c.Log.Level = getString("LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getString("LOG_ENCODING", c.Log.Encoding)

	c.Location = getString("LOCATION", c.Location)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	known := false
	for _, d := range drivers {
		if c.Storage.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown storage driver %q (want one of %s)", c.Storage.Driver, strings.Join(drivers, ", "))
	}
	if c.Storage.Driver != DriverMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.PruneInterval <= 0 {
		return fmt.Errorf("storage prune-interval must be positive")
	}
	if _, err := c.LoadLocation(); err != nil {
		return err
	}
	return nil
}

// LoadLocation resolves Location.
func (c *Config) LoadLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Location, err)
	}
	return loc, nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
