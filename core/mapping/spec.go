package mapping

// Spec describes how a raw resource becomes a catalog entity.
// Every field except Blueprint holds an expression evaluated against the resource.
type Spec struct {
	Identifier            string            `json:"identifier" yaml:"identifier" validate:"required"`
	Title                 string            `json:"title,omitempty" yaml:"title,omitempty"`
	Blueprint             string            `json:"blueprint" yaml:"blueprint" validate:"required"`
	Properties            map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Relations             map[string]string `json:"relations,omitempty" yaml:"relations,omitempty"`
	MirrorProperties      map[string]string `json:"mirrorProperties,omitempty" yaml:"mirrorProperties,omitempty"`
	CalculationProperties map[string]string `json:"calculationProperties,omitempty" yaml:"calculationProperties,omitempty"`
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	out := s
	out.Properties = cloneMap(s.Properties)
	out.Relations = cloneMap(s.Relations)
	out.MirrorProperties = cloneMap(s.MirrorProperties)
	out.CalculationProperties = cloneMap(s.CalculationProperties)
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
