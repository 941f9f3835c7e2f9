package ingest

import (
	"sort"

	"resource-exporter/core/catalog"
	"resource-exporter/core/mapping"

	"github.com/goccy/go-json"
)

// RawResource is one resource as returned by the provider.
type RawResource = map[string]any

// IdentifierField is the raw resource field that holds the provider identifier
// handed to FetchOne.
const IdentifierField = "identifier"

// Selector filters raw resources before mapping.
type Selector struct {
	// Query is an expression; resources for which it yields nil or false are skipped.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
	// AWS spreads the listing over regions and resource models.
	AWS *AWSSelector `json:"aws,omitempty" yaml:"aws,omitempty"`
}

// AWSSelector lists where a kind is enumerated. Regions are walked in order;
// a config without regions uses its own region.
type AWSSelector struct {
	Regions       []string                `json:"regions,omitempty" yaml:"regions,omitempty"`
	RegionsConfig map[string]RegionConfig `json:"regions_config,omitempty" yaml:"regions_config,omitempty"`
}

// RegionConfig holds the listing options of one region.
type RegionConfig struct {
	// ResourcesModels are handed to the listing call one at a time. Kinds whose
	// listing needs a parent (EKS node groups, for one) require them.
	ResourcesModels []string `json:"resources_models,omitempty" yaml:"resources_models,omitempty"`
	// StackStatusFilter restricts stack listings to these statuses.
	StackStatusFilter []string `json:"stack_status_filter,omitempty" yaml:"stack_status_filter,omitempty"`
}

func (rc RegionConfig) clone() RegionConfig {
	return RegionConfig{
		ResourcesModels:   cloneStrings(rc.ResourcesModels),
		StackStatusFilter: cloneStrings(rc.StackStatusFilter),
	}
}

func (rc RegionConfig) empty() bool {
	return len(rc.ResourcesModels) == 0 && len(rc.StackStatusFilter) == 0
}

func (a *AWSSelector) clone() *AWSSelector {
	if a == nil {
		return nil
	}
	out := &AWSSelector{Regions: cloneStrings(a.Regions)}
	if a.RegionsConfig != nil {
		out.RegionsConfig = make(map[string]RegionConfig, len(a.RegionsConfig))
		for region, rc := range a.RegionsConfig {
			out.RegionsConfig[region] = rc.clone()
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// EntityMappings lists the specs applied to every selected resource.
type EntityMappings struct {
	Mappings []mapping.Spec `json:"mappings" yaml:"mappings" validate:"required,min=1,dive"`
}

// PortMapping is the catalog side of a resource config.
type PortMapping struct {
	Entity EntityMappings `json:"entity" yaml:"entity"`
}

// ResourceConfig drives one run for one resource kind.
type ResourceConfig struct {
	Kind      string      `json:"kind" yaml:"kind" validate:"required"`
	Region    string      `json:"region,omitempty" yaml:"region,omitempty"`
	Selector  *Selector   `json:"selector,omitempty" yaml:"selector,omitempty"`
	Port      PortMapping `json:"port" yaml:"port"`
	NextToken *string     `json:"next_token,omitempty" yaml:"next_token,omitempty"`
}

// SelectorQuery returns the selector expression, or "" when none is set.
func (c ResourceConfig) SelectorQuery() string {
	if c.Selector == nil {
		return ""
	}
	return c.Selector.Query
}

// Mappings returns the entity specs of the config.
func (c ResourceConfig) Mappings() []mapping.Spec {
	return c.Port.Entity.Mappings
}

// Clone returns a deep copy of c.
func (c ResourceConfig) Clone() ResourceConfig {
	out := c
	if c.Selector != nil {
		sel := *c.Selector
		sel.AWS = c.Selector.AWS.clone()
		out.Selector = &sel
	}
	if c.NextToken != nil {
		tok := *c.NextToken
		out.NextToken = &tok
	}
	if c.Port.Entity.Mappings != nil {
		out.Port.Entity.Mappings = make([]mapping.Spec, len(c.Port.Entity.Mappings))
		for i, spec := range c.Port.Entity.Mappings {
			out.Port.Entity.Mappings[i] = spec.Clone()
		}
	}
	return out
}

// EntitySet is a set of entity external ids.
type EntitySet map[string]struct{}

// NewEntitySet returns a set holding ids.
func NewEntitySet(ids ...string) EntitySet {
	s := make(EntitySet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids.
func (s EntitySet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Union inserts every id of other.
func (s EntitySet) Union(other EntitySet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in lexical order.
func (s EntitySet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByBlueprint groups identifiers by blueprint. Malformed ids are skipped.
func (s EntitySet) ByBlueprint() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for id := range s {
		bp, identifier, err := catalog.ParseExternalID(id)
		if err != nil {
			continue
		}
		if out[bp] == nil {
			out[bp] = make(map[string]struct{})
		}
		out[bp][identifier] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (s EntitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a list of ids.
func (s *EntitySet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewEntitySet(ids...)
	return nil
}

// ExecutionResult is the outcome of one run.
type ExecutionResult struct {
	// Entities holds the external ids produced by the run.
	Entities EntitySet `json:"entities"`
	// NextResourceConfig is set when the budget ran short; it is the config to run next.
	NextResourceConfig *ResourceConfig `json:"next_resource_config"`
	// SkipDelete is true when the entity set may be incomplete and must not drive pruning.
	SkipDelete bool `json:"skip_delete"`
	// Exhausted is true when every region and resource model was enumerated.
	// A NextResourceConfig returned with it carries no remaining work.
	Exhausted bool `json:"-"`
}

// Batch is the merged outcome of a fan-out.
type Batch struct {
	Entities   EntitySet
	SkipDelete bool
}

// Action is what the coordinator does with each item.
type Action string

const (
	// ActionUpsert fetches, maps and upserts the resource.
	ActionUpsert Action = "upsert"
	// ActionDelete maps the bare identifier and deletes the entities.
	ActionDelete Action = "delete"
)
