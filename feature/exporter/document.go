package exporter

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"resource-exporter/core/ingest"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Document lists the resource configs of one invocation, run in order.
type Document struct {
	Resources []ingest.ResourceConfig `json:"resources" yaml:"resources" validate:"dive"`
	// Progress is set on the remaining part of a deferred document.
	Progress *Progress `json:"progress,omitempty" yaml:"-"`
}

// Progress carries what earlier invocations of a deferred document did, so
// the invocation that finishes it sees the whole entity set.
type Progress struct {
	// Source identifies the document the remaining work was split from.
	Source string `json:"source"`
	// Seen holds every entity written by earlier invocations.
	Seen ingest.EntitySet `json:"seen,omitempty"`
	// Blueprints lists every blueprint of the source document.
	Blueprints []string `json:"blueprints,omitempty"`
	// SkipDelete is true once any invocation produced an incomplete entity set.
	SkipDelete bool `json:"skip_delete,omitempty"`
}

// ParseDocument decodes a JSON or YAML document and validates it.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml document: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadDocument reads and parses the document at path.
func LoadDocument(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Validate checks every resource config.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid resources document: %w", err)
	}
	return nil
}

// Find returns the first config for kind. A region, when given, must match too.
func (d *Document) Find(kind, region string) (ingest.ResourceConfig, bool) {
	for _, cfg := range d.Resources {
		if !strings.EqualFold(cfg.Kind, kind) {
			continue
		}
		if region != "" && cfg.Region != region {
			continue
		}
		return cfg.Clone(), true
	}
	return ingest.ResourceConfig{}, false
}

// Source identifies the document across invocations: the source recorded in
// its progress, or a hash of its resources.
func (d *Document) Source() string {
	if d.Progress != nil && d.Progress.Source != "" {
		return d.Progress.Source
	}
	data, err := json.Marshal(d.Resources)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Blueprints returns every blueprint the document maps into.
func (d *Document) Blueprints() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cfg := range d.Resources {
		for _, spec := range cfg.Mappings() {
			if _, ok := seen[spec.Blueprint]; ok || spec.Blueprint == "" {
				continue
			}
			seen[spec.Blueprint] = struct{}{}
			out = append(out, spec.Blueprint)
		}
	}
	return out
}
