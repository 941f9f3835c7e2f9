package mapping

import (
	"context"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/tidwall/gjson"
)

// Document is a serialized resource ready for evaluation.
// Raw holds the JSON bytes and Value the decoded tree of maps, slices and scalars.
type Document struct {
	Raw   []byte
	Value any
}

// Evaluator runs one expression against a document and returns every result it emits.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, doc Document) ([]any, error)
}

// JQEvaluator evaluates jq expressions.
type JQEvaluator struct {
	programs sync.Map // expr -> *gojq.Code
}

// NewJQEvaluator creates a jq evaluator with an empty program cache.
func NewJQEvaluator() *JQEvaluator {
	return &JQEvaluator{}
}

func (e *JQEvaluator) compile(expr string) (*gojq.Code, error) {
	if code, ok := e.programs.Load(expr); ok {
		return code.(*gojq.Code), nil
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}

	actual, _ := e.programs.LoadOrStore(expr, code)
	return actual.(*gojq.Code), nil
}

// Evaluate compiles expr (memoized) and collects its outputs.
func (e *JQEvaluator) Evaluate(ctx context.Context, expr string, doc Document) ([]any, error) {
	code, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, doc.Value)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if halt, isHalt := err.(*gojq.HaltError); isHalt && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("evaluate %q: %w", expr, err)
		}
		results = append(results, v)
	}
	return results, nil
}

// PathEvaluator evaluates gjson path expressions such as "Tags.#.Key".
type PathEvaluator struct{}

// Evaluate resolves expr against the raw JSON. A path that matches nothing is an error.
func (PathEvaluator) Evaluate(_ context.Context, expr string, doc Document) ([]any, error) {
	if !gjson.ValidBytes(doc.Raw) {
		return nil, fmt.Errorf("document is not valid json")
	}
	res := gjson.GetBytes(doc.Raw, expr)
	if !res.Exists() {
		return nil, fmt.Errorf("path %q not found", expr)
	}
	return []any{res.Value()}, nil
}

// NewEvaluator returns the evaluator for a dialect name: "jq" (default) or "path".
func NewEvaluator(dialect string) (Evaluator, error) {
	switch dialect {
	case "jq", "":
		return NewJQEvaluator(), nil
	case "path":
		return PathEvaluator{}, nil
	default:
		return nil, fmt.Errorf("unknown expression dialect %q", dialect)
	}
}
