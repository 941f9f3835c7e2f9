package catalog

import (
	"fmt"
	"strings"
)

// Entity is a normalized catalog record produced from one raw resource.
type Entity struct {
	Identifier            string         `json:"identifier"`
	Title                 string         `json:"title,omitempty"`
	Blueprint             string         `json:"blueprint"`
	Properties            map[string]any `json:"properties"`
	Relations             map[string]any `json:"relations"`
	MirrorProperties      map[string]any `json:"mirrorProperties,omitempty"`
	CalculationProperties map[string]any `json:"calculationProperties,omitempty"`
}

// ExternalID is the idempotency key of the entity: "<blueprint>;<identifier>".
func (e Entity) ExternalID() string {
	return ExternalID(e.Blueprint, e.Identifier)
}

// ExternalID joins a blueprint and an identifier into an external id.
func ExternalID(blueprint, identifier string) string {
	return blueprint + ";" + identifier
}

// ParseExternalID splits an external id into blueprint and identifier.
func ParseExternalID(id string) (blueprint, identifier string, err error) {
	blueprint, identifier, ok := strings.Cut(id, ";")
	if !ok || blueprint == "" || identifier == "" {
		return "", "", fmt.Errorf("malformed external id %q", id)
	}
	return blueprint, identifier, nil
}
