package aws

import (
	"errors"
	"fmt"
	"strings"

	"resource-exporter/core/ingest"

	"github.com/aws/smithy-go"
	"github.com/goccy/go-json"
)

// toRaw flattens an SDK shape into a raw resource. Field names are kept as
// the SDK exports them, e.g. VpcId or GroupName.
func toRaw(v any) (ingest.RawResource, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode resource: %w", err)
	}
	var out ingest.RawResource
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	return out, nil
}

// isAPINotFound reports whether err is a service error for a missing resource.
func isAPINotFound(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	if strings.HasSuffix(code, ".NotFound") || strings.HasSuffix(code, "NotFoundException") {
		return true
	}
	return code == "ValidationError" && strings.Contains(ae.ErrorMessage(), "does not exist")
}
