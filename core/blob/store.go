package blob

import (
	"context"
	"errors"
	"fmt"

	"resource-exporter/core/storage"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Get when no object is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a small key/value store for exporter state shared across invocations.
type Store interface {
	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

const (
	// BackendFile keeps state on the local filesystem.
	BackendFile = "file"
	// BackendStorage keeps state in the configured object storage bucket.
	BackendStorage = "storage"
)

// Config selects and configures a Store backend.
type Config struct {
	// Backend is either "file" or "storage".
	Backend string `mapstructure:"backend" default:"file" validate:"oneof=file storage"`
	// Dir is the root directory of the file backend.
	Dir string `mapstructure:"dir" default:"/tmp/resource-exporter"`
	// Prefix is prepended to object names of the storage backend.
	Prefix string `mapstructure:"prefix" default:"state"`
}

// New builds the Store selected by cfg. client and bucket are only used by the storage backend.
func New(cfg Config, client storage.Client, bucket string) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(afero.NewOsFs(), cfg.Dir), nil
	case BackendStorage:
		if client == nil {
			return nil, fmt.Errorf("storage backend requires a storage client")
		}
		return NewObjectStore(client, bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
