// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, then ECM_* environment variables.
//
//	ECM_STORAGE_DRIVER=badger   -> storage.driver
//	ECM_FEED_CLIENT_ID=abc      -> feed.client_id
//	ECM_SERVER_CORS_ORIGINS=a,b -> server.cors_origins
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ewilliams-labs/ecmcatalog/internal/validation"
)

const (
	// ConfigPathEnvVar names an explicit config file.
	ConfigPathEnvVar = "CONFIG_PATH"
	envPrefix        = "ECM_"
)

// DefaultConfigPaths are searched when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"ecm.yaml", "ecm.yml", "/etc/ecmcatalog/ecm.yaml"}

// Config is the full service configuration.
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Worker  WorkerConfig  `koanf:"worker"`
	Feed    FeedConfig    `koanf:"feed"`
	Seed    SeedConfig    `koanf:"seed"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite badger"`
	// Path is the sqlite file or badger directory. Empty or ":memory:"
	// keeps everything in memory.
	Path string `koanf:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit   int      `koanf:"rate_limit" validate:"min=0"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// WorkerConfig sizes the import worker pool.
type WorkerConfig struct {
	Workers   int `koanf:"workers" validate:"min=1,max=64"`
	QueueSize int `koanf:"queue_size" validate:"min=1"`
}

// FeedConfig configures the remote catalogue feed. An empty URL disables it.
type FeedConfig struct {
	URL          string        `koanf:"url" validate:"omitempty,url"`
	TokenURL     string        `koanf:"token_url" validate:"omitempty,url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Scopes       []string      `koanf:"scopes"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries" validate:"min=1,max=10"`
	Backoff      time.Duration `koanf:"backoff"`
	// BreakerFailures is the consecutive failure count that opens the
	// circuit breaker.
	BreakerFailures uint32 `koanf:"breaker_failures" validate:"min=1"`
}

// SeedConfig names a catalogue document imported at startup.
type SeedConfig struct {
	Path string `koanf:"path"`
}

// Enabled reports whether a feed URL is configured.
func (f FeedConfig) Enabled() bool { return f.URL != "" }

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: "sqlite", Path: "ecm.db"},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       600,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Worker:  WorkerConfig{Workers: 2, QueueSize: 16},
		Feed: FeedConfig{
			Interval:        time.Hour,
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			Backoff:         500 * time.Millisecond,
			BreakerFailures: 5,
		},
	}
}

// Load builds the configuration. Precedence is ENV > file > defaults.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file; an empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.Feed.ClientID != "" && c.Feed.TokenURL == "" {
		return fmt.Errorf("feed.token_url is required when feed.client_id is set")
	}
	if c.Feed.Enabled() && c.Feed.Interval < 0 {
		return fmt.Errorf("feed.interval must not be negative")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps ECM_SECTION_SOME_KEY to section.some_key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"feed.scopes",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
