package ingest

// Scope is one region and resource model a config is listed in.
type Scope struct {
	Region string
	// Model is the resource model handed to the listing call, "" for none.
	Model string
}

func (s Scope) String() string {
	if s.Model == "" {
		return s.Region
	}
	return s.Region + " " + s.Model
}

func (c ResourceConfig) aws() *AWSSelector {
	if c.Selector == nil {
		return nil
	}
	return c.Selector.AWS
}

// Regions returns selector.aws.regions, or the config region when none are listed.
func (c ResourceConfig) Regions() []string {
	if a := c.aws(); a != nil && len(a.Regions) > 0 {
		return cloneStrings(a.Regions)
	}
	return []string{c.Region}
}

// RegionConfig returns the listing options of region.
func (c ResourceConfig) RegionConfig(region string) RegionConfig {
	a := c.aws()
	if a == nil {
		return RegionConfig{}
	}
	return a.RegionsConfig[region].clone()
}

// ResourceModel returns the first resource model of the config region.
func (c ResourceConfig) ResourceModel() string {
	models := c.RegionConfig(c.Region).ResourcesModels
	if len(models) == 0 {
		return ""
	}
	return models[0]
}

// Scopes lists every region and resource model in enumeration order.
func (c ResourceConfig) Scopes() []Scope {
	var out []Scope
	for _, region := range c.Regions() {
		models := c.RegionConfig(region).ResourcesModels
		if len(models) == 0 {
			out = append(out, Scope{Region: region})
			continue
		}
		for _, m := range models {
			out = append(out, Scope{Region: region, Model: m})
		}
	}
	return out
}

// Scoped returns a copy of c narrowed to s, without a cursor.
func (c ResourceConfig) Scoped(s Scope) ResourceConfig {
	out := c.Clone()
	out.Region = s.Region
	out.NextToken = nil
	if out.aws() == nil {
		return out
	}

	rc := c.RegionConfig(s.Region)
	rc.ResourcesModels = nil
	if s.Model != "" {
		rc.ResourcesModels = []string{s.Model}
	}
	out.Selector.AWS = &AWSSelector{Regions: []string{s.Region}}
	if !rc.empty() {
		out.Selector.AWS.RegionsConfig = map[string]RegionConfig{s.Region: rc}
	}
	return out
}

// Remaining returns a copy of c that only lists scopes, a suffix of
// c.Scopes(). The cursor is cleared.
func (c ResourceConfig) Remaining(scopes []Scope) ResourceConfig {
	out := c.Clone()
	out.NextToken = nil
	a := out.aws()
	if a == nil || len(scopes) == 0 {
		return out
	}

	var regions []string
	configs := make(map[string]RegionConfig)
	for _, s := range scopes {
		rc, seen := configs[s.Region]
		if !seen {
			regions = append(regions, s.Region)
			rc = c.RegionConfig(s.Region)
			rc.ResourcesModels = nil
		}
		if s.Model != "" {
			rc.ResourcesModels = append(rc.ResourcesModels, s.Model)
		}
		configs[s.Region] = rc
	}
	for region, rc := range configs {
		if rc.empty() {
			delete(configs, region)
		}
	}

	a.Regions = regions
	a.RegionsConfig = nil
	if len(configs) > 0 {
		a.RegionsConfig = configs
	}
	return out
}
