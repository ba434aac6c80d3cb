// Package config loads NextSong configuration with layered sources:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"nextsong.yaml",
	"nextsong.yml",
	"/etc/nextsong/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "NEXTSONG_CONFIG"

// envPrefix namespaces the override variables, e.g. NEXTSONG_SERVER_ADDR.
const envPrefix = "NEXTSONG_"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig selects and configures the behavior store.
type StorageConfig struct {
	// Driver picks the session-scoped (memory) or persistent (sqlite) variant.
	Driver string `koanf:"driver" validate:"oneof=memory sqlite"`
	Path   string `koanf:"path"`
}

// CatalogConfig locates the song catalog file.
type CatalogConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// RecommendConfig tunes eligibility gating and display suppression.
type RecommendConfig struct {
	MinVisits     int           `koanf:"min_visits" validate:"min=0"`
	MinClicks     int           `koanf:"min_clicks" validate:"min=0"`
	SuppressFor   time.Duration `koanf:"suppress_for"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	PurgeSchedule string        `koanf:"purge_schedule" validate:"required"`
	Seed          int64         `koanf:"seed"`
}

// AnalyticsConfig configures the click-event collector.
type AnalyticsConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Endpoint     string        `koanf:"endpoint" validate:"required_if=Enabled true,omitempty,url"`
	TokenURL     string        `koanf:"token_url" validate:"omitempty,url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	MaxRetries   int           `koanf:"max_retries" validate:"min=0"`
	BaseBackoff  time.Duration `koanf:"base_backoff"`
	QueueSize    int           `koanf:"queue_size" validate:"min=1"`
	Workers      int           `koanf:"workers" validate:"min=1"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in defaults: in-memory storage, the gating
// thresholds of the reference heuristic, and a 24h suppression window.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "memory",
			Path:   "nextsong.db",
		},
		Catalog: CatalogConfig{
			Path: "songs.yaml",
		},
		Recommend: RecommendConfig{
			MinVisits:     3,
			MinClicks:     2,
			SuppressFor:   24 * time.Hour,
			SessionTTL:    24 * time.Hour,
			PurgeSchedule: "@hourly",
			Seed:          0, // 0 = time-seeded
		},
		Analytics: AnalyticsConfig{
			Enabled:     false,
			MaxRetries:  3,
			BaseBackoff: 500 * time.Millisecond,
			QueueSize:   100,
			Workers:     2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional config file and
// NEXTSONG_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	// NEXTSONG_STORAGE_DRIVER -> storage.driver
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("config: storage.path is required for the sqlite driver")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
