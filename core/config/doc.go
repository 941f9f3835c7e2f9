// Package config provides configuration management for the resource exporter.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file, with defaults taken from `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP trigger settings (port, API key, body limit)
//   - Log: Logging level and format
//   - Storage: S3/MinIO credentials and the state bucket
//   - Database: SQL connection used by the database catalog
//   - Catalog: Port API credentials or database mirror mode
//   - Provider: default AWS region and profile
//   - Sync: worker pool size, time budget, resources document
//   - Cache, State, Checkpoint: bulk cache TTL and where state lives
//   - Messaging: NATS re-invocation
//   - Metrics: Prometheus collection
//
// Each section is checked with its `validate` tags after loading.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Workers)
package config
