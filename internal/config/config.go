// Package config loads service settings in three layers: built-in
// defaults, an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"catalog-service/internal/validation"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalog-service/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Media    MediaConfig    `koanf:"media"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	// Backend selects the catalog sink: json, postgres or badger.
	Backend     string `koanf:"backend" validate:"oneof=json postgres badger"`
	DataFile    string `koanf:"data_file"`
	DatabaseURL string `koanf:"database_url"`
	BadgerDir   string `koanf:"badger_dir"`
	// SeedSamples loads two sample tracks when no catalog was ever saved.
	SeedSamples bool `koanf:"seed_samples"`
}

type MediaConfig struct {
	UploadDir string `koanf:"upload_dir" validate:"required"`
}

// RedisConfig: an empty URL disables event publishing; websocket clients
// then only get the welcome frame.
type RedisConfig struct {
	URL     string `koanf:"url"`
	Channel string `koanf:"channel" validate:"required"`
}

type AuthConfig struct {
	JWTSecret    string        `koanf:"jwt_secret" validate:"required,min=16"`
	SessionTTL   time.Duration `koanf:"session_ttl" validate:"gt=0"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

type SecurityConfig struct {
	CORSOrigins []string `koanf:"cors_origins"`
	// RateLimitRPS is per client IP; 0 disables limiting.
	RateLimitRPS int `koanf:"rate_limit_rps" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:     "json",
			DataFile:    "songs_data.json",
			BadgerDir:   "data/badger",
			SeedSamples: true,
		},
		Media: MediaConfig{UploadDir: "uploads"},
		Redis: RedisConfig{Channel: "broadcast"},
		Auth: AuthConfig{
			JWTSecret:  "change-me-in-production",
			SessionTTL: 24 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:  []string{"http://localhost:5000", "http://127.0.0.1:5000"},
			RateLimitRPS: 50,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration: defaults, then the first config file
// found, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitList turns a comma-separated env value into a list; YAML lists are
// left alone.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if err := k.Set(path, parts); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

var envMappings = map[string]string{
	"port":                 "server.port",
	"read_timeout":         "server.read_timeout",
	"write_timeout":        "server.write_timeout",
	"request_timeout":      "server.request_timeout",
	"shutdown_timeout":     "server.shutdown_timeout",
	"storage_backend":      "storage.backend",
	"data_file":            "storage.data_file",
	"database_url":         "storage.database_url",
	"badger_dir":           "storage.badger_dir",
	"seed_samples":         "storage.seed_samples",
	"upload_dir":           "media.upload_dir",
	"redis_url":            "redis.url",
	"redis_channel":        "redis.channel",
	"jwt_secret":           "auth.jwt_secret",
	"session_ttl":          "auth.session_ttl",
	"cookie_secure":        "auth.cookie_secure",
	"cors_allowed_origins": "security.cors_origins",
	"rate_limit_rps":       "security.rate_limit_rps",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
}

// envTransformFunc maps known variables (PORT, REDIS_URL, ...) to config
// paths. Anything else is dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Validate checks field rules and the backend-specific requirements.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "json":
		if c.Storage.DataFile == "" {
			return errors.New("storage.data_file is required for the json backend")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url is required for the postgres backend")
		}
	case "badger":
		if c.Storage.BadgerDir == "" {
			return errors.New("storage.badger_dir is required for the badger backend")
		}
	}
	return nil
}
