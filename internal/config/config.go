// Package config loads and validates crawlhub configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends understood by StorageConfig.Backend.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// IngestConfig bounds submissions and fixes the archive key layout.
type IngestConfig struct {
	MaxBatchSize    int    `mapstructure:"max_batch_size"`
	UserIDLength    int    `mapstructure:"user_id_length"`
	SchemaVersion   string `mapstructure:"schema_version"`
	Shard           string `mapstructure:"shard"`
	PublicURLPrefix string `mapstructure:"public_url_prefix"`
	// RateLimitRPS caps submissions per owner per second; 0 disables it.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// StorageConfig selects the object store that holds archived batches.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Bucket  string             `mapstructure:"bucket"`
	Local   LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig configures the filesystem backend.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// DatabaseConfig controls the Postgres frontier. An empty DSN selects the
// in-memory frontier.
type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
}

// PubSubConfig holds metadata for batch notifications. Publishing is off
// unless both fields are set.
type PubSubConfig struct {
	ProjectID             string `mapstructure:"project_id"`
	TopicName             string `mapstructure:"topic_name"`
	PublishTimeoutSeconds int    `mapstructure:"publish_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("ingest.max_batch_size", 100)
	v.SetDefault("ingest.user_id_length", 36)
	v.SetDefault("ingest.schema_version", "1/v1")
	v.SetDefault("ingest.shard", "1")
	v.SetDefault("ingest.public_url_prefix", "")
	v.SetDefault("ingest.rate_limit_rps", 0)
	v.SetDefault("ingest.rate_limit_burst", 5)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.local.base_dir", "data/batches")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "urls")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime_minutes", 30)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("pubsub.publish_timeout_seconds", 10)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("ingest.max_batch_size must be > 0")
	}
	if c.Ingest.UserIDLength <= 0 {
		return fmt.Errorf("ingest.user_id_length must be > 0")
	}
	if strings.Trim(c.Ingest.SchemaVersion, "/") == "" {
		return fmt.Errorf("ingest.schema_version must be set")
	}
	if c.Ingest.Shard == "" || strings.Contains(c.Ingest.Shard, "/") {
		return fmt.Errorf("ingest.shard must be a single path segment")
	}
	if c.Ingest.RateLimitRPS < 0 {
		return fmt.Errorf("ingest.rate_limit_rps must be >= 0")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLocal:
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir must be set for the local backend")
		}
	case BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, local, gcs", c.Storage.Backend)
	}
	if c.Database.DSN != "" && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns must be >= database.min_conns")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.PubSub.PublishTimeoutSeconds < 0 {
		return fmt.Errorf("pubsub.publish_timeout_seconds must be >= 0")
	}
	return nil
}

// RequestTimeout returns the per-request handler budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// PublishTimeout returns the budget for one background event publish.
func (c Config) PublishTimeout() time.Duration {
	return time.Duration(c.PubSub.PublishTimeoutSeconds) * time.Second
}

// MaxConnLifetime returns the pool connection lifetime.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.Database.MaxConnLifetimeMinutes) * time.Minute
}
