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

	"medadherence/internal/validation"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys,
// so APP_LISTEN_ADDR sets listen_addr.
const EnvPrefix = "APP_"

// ConfigPathEnvVar names an optional YAML file loaded between defaults and env.
const ConfigPathEnvVar = "APP_CONFIG_PATH"

// Config holds the core runtime configuration for the service. Values come from
// built-in defaults, then an optional YAML file, then APP_* environment variables.
// See .env.example.
type Config struct {
	ListenAddr string `koanf:"listen_addr" validate:"required"`

	// DatabaseURL is a Postgres DSN. Empty runs the service without persistence; the
	// dose log and snapshot routes then answer 503.
	DatabaseURL string `koanf:"database_url"`

	// RetentionDays is how long stored dose logs are kept.
	RetentionDays int `koanf:"retention_days" validate:"min=1"`

	// SnapshotInterval is how often the stored logs are assembled into a report
	// snapshot. Zero disables the worker.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// ModelPath is a JSON model file; empty uses the bundled model.
	ModelPath string `koanf:"model_path"`

	TrendWindow int    `koanf:"trend_window" validate:"min=1"`
	TrendMode   string `koanf:"trend_mode" validate:"oneof=insertion chronological"`
	TopUsers    int    `koanf:"top_users" validate:"min=1"`

	// ValidationPolicy is fail-open (out-of-range features pass through to the model)
	// or fail-closed (rejected with 400).
	ValidationPolicy string `koanf:"validation_policy" validate:"oneof=fail-open fail-closed"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	// CORSOrigin is sent as Access-Control-Allow-Origin; empty disables CORS headers.
	CORSOrigin string `koanf:"cors_origin"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8080",
		RetentionDays:    90,
		SnapshotInterval: time.Hour,
		TrendWindow:      4,
		TrendMode:        "insertion",
		TopUsers:         5,
		ValidationPolicy: "fail-open",
		LogLevel:         "info",
		LogFormat:        "json",
		CORSOrigin:       "*",
	}
}

// Load layers defaults, the optional config file and the environment, then validates
// the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps APP_RETENTION_DAYS to retention_days.
func envTransformFunc(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
}

// Validate checks field rules and the cross-field constraints tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if c.SnapshotInterval < 0 {
		return fmt.Errorf("snapshot_interval must not be negative, got %s", c.SnapshotInterval)
	}
	return nil
}

// HasDatabase reports whether persistence is configured.
func (c *Config) HasDatabase() bool { return c.DatabaseURL != "" }
