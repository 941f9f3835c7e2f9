package exporter

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"resource-exporter/core/blob"

	"github.com/goccy/go-json"
)

// Checkpoints keeps the unfinished part of a document between invocations.
// Each source document has its own checkpoint.
type Checkpoints struct {
	store blob.Store
	key   string
}

// NewCheckpoints stores checkpoints in store. key is a template: the source
// id is inserted before its extension.
func NewCheckpoints(store blob.Store, key string) *Checkpoints {
	return &Checkpoints{store: store, key: key}
}

// Key returns the state key of the checkpoint for source.
func (c *Checkpoints) Key(source string) string {
	ext := path.Ext(c.key)
	return strings.TrimSuffix(c.key, ext) + "-" + source + ext
}

// Load returns the saved document of source, or false when there is none.
func (c *Checkpoints) Load(ctx context.Context, source string) (*Document, bool, error) {
	data, err := c.store.Get(ctx, c.Key(source))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &doc, true, nil
}

// Save replaces the checkpoint of source with doc.
func (c *Checkpoints) Save(ctx context.Context, source string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := c.store.Put(ctx, c.Key(source), data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint of source. A missing checkpoint is not an error.
func (c *Checkpoints) Clear(ctx context.Context, source string) error {
	if err := c.store.Delete(ctx, c.Key(source)); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
