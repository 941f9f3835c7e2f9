package ingest

import "time"

// Config holds configuration for ingestion runs.
type Config struct {
	// Workers is the size of the per-run worker pool.
	Workers int `mapstructure:"workers" default:"10" validate:"gte=1"`
	// ThresholdMillis is the remaining budget below which a run defers work.
	ThresholdMillis int64 `mapstructure:"threshold_ms" default:"60000" validate:"gte=0"`
	// MaxDurationSeconds is the budget of one invocation.
	MaxDurationSeconds int `mapstructure:"max_duration_seconds" default:"900" validate:"gte=1"`
	// ResourcesFile is the YAML or JSON document listing resource configs.
	ResourcesFile string `mapstructure:"resources_file" default:"resources.yaml"`
	// Dialect selects the expression language: "jq" or "path".
	Dialect string `mapstructure:"dialect" default:"jq" validate:"oneof=jq path"`
	// Prune deletes unseen catalog entities after a complete run.
	Prune bool `mapstructure:"prune" default:"false"`
}

// MaxDuration returns the invocation budget.
func (c Config) MaxDuration() time.Duration {
	if c.MaxDurationSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.MaxDurationSeconds) * time.Second
}
