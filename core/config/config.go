package config

import (
	"fmt"
	"reflect"
	"strings"

	"resource-exporter/core/blob"
	"resource-exporter/core/cache"
	"resource-exporter/core/catalog"
	"resource-exporter/core/database"
	"resource-exporter/core/ingest"
	"resource-exporter/core/logger"
	"resource-exporter/core/messaging"
	"resource-exporter/core/metrics"
	"resource-exporter/core/server"
	"resource-exporter/core/storage"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProviderConfig holds configuration for the cloud provider SDK.
type ProviderConfig struct {
	// Region is used when a resource config does not name one.
	Region string `mapstructure:"region" default:"us-east-1" validate:"required"`
	// Profile selects a shared credentials profile. Empty uses the default chain.
	Profile string `mapstructure:"profile" default:""`
}

// CheckpointConfig holds configuration for resume points between invocations.
type CheckpointConfig struct {
	// Enabled persists the remaining resources document when a run defers work.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Key names the checkpoints; each source document is stored under the key
	// with its id inserted before the extension.
	Key string `mapstructure:"key" default:"checkpoint/resources.json" validate:"required_if=Enabled true"`
}

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP trigger.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Catalog selects and configures the entity sink.
	Catalog catalog.Config `mapstructure:"catalog"`
	// Provider holds cloud provider settings.
	Provider ProviderConfig `mapstructure:"provider"`
	// Sync holds ingestion run settings.
	Sync ingest.Config `mapstructure:"sync"`
	// Cache holds bulk result cache settings.
	Cache cache.Config `mapstructure:"cache"`
	// State selects where caches and checkpoints are kept.
	State blob.Config `mapstructure:"state"`
	// Checkpoint holds resume point settings.
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	// Messaging holds NATS re-invocation settings.
	Messaging messaging.Config `mapstructure:"messaging"`
	// Metrics holds Prometheus settings.
	Metrics metrics.Config `mapstructure:"metrics"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SYNC_WORKERS -> sync.workers)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the validate tags of every section.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
