package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is returned when the catalog rejects the credentials.
	ErrUnauthorized = errors.New("catalog rejected credentials")
)

// Client persists entities into the catalog.
type Client interface {
	// Upsert creates or merges entities and returns the external ids that were written.
	// On partial failure the written ids are returned together with the error.
	Upsert(ctx context.Context, entities []Entity) ([]string, error)
	// Delete removes entities. Entities that do not exist are ignored.
	Delete(ctx context.Context, entities []Entity) error
}

// Pruner removes entities of a blueprint that were not seen by a complete run.
type Pruner interface {
	// Prune deletes every entity of blueprint whose identifier is not in keep
	// and returns how many were removed.
	Prune(ctx context.Context, blueprint string, keep map[string]struct{}) (int, error)
}

const (
	// ModePort sends entities to the Port REST API.
	ModePort = "port"
	// ModeDatabase mirrors entities into the SQL database.
	ModeDatabase = "database"
)

// Config holds configuration for the catalog sink.
type Config struct {
	// Mode selects the sink: "port" or "database".
	Mode string `mapstructure:"mode" default:"port" validate:"oneof=port database"`
	// BaseURL is the Port API base URL.
	BaseURL string `mapstructure:"base_url" default:"https://api.getport.io" validate:"omitempty,url"`
	// ClientID is the Port API client id.
	ClientID string `mapstructure:"client_id" default:""`
	// ClientSecret is the Port API client secret.
	ClientSecret string `mapstructure:"client_secret" default:""`
	// RateLimit is the maximum number of API requests per second.
	RateLimit float64 `mapstructure:"rate_limit" default:"20"`
	// RateBurst is the burst size of the rate limiter.
	RateBurst int `mapstructure:"rate_burst" default:"10"`
	// TimeoutSeconds bounds each API request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// CreateMissingRelated lets Port create placeholder entities for unknown relation targets.
	CreateMissingRelated bool `mapstructure:"create_missing_related" default:"true"`
}

// New builds the catalog client selected by cfg. db is required for the database mode.
func New(cfg Config, db *gorm.DB, logger *zap.Logger) (Client, error) {
	switch cfg.Mode {
	case ModePort, "":
		return NewPortClient(cfg, logger), nil
	case ModeDatabase:
		if db == nil {
			return nil, fmt.Errorf("database catalog requires a database connection")
		}
		return NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", cfg.Mode)
	}
}
