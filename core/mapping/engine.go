package mapping

import (
	"context"
	"errors"
	"fmt"

	"resource-exporter/core/catalog"
	"resource-exporter/core/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrEmptyIdentifier is returned when a spec's identifier evaluates to an empty string.
var ErrEmptyIdentifier = errors.New("entity identifier is empty")

// ErrInvalidIdentifier is returned when a spec's identifier evaluates to a
// list or an object instead of a single value.
var ErrInvalidIdentifier = errors.New("entity identifier is not a single value")

// Engine turns raw resources into catalog entities.
type Engine struct {
	evaluator Evaluator
	logger    *zap.Logger
}

// NewEngine creates an engine. A nil evaluator selects jq.
func NewEngine(evaluator Evaluator, logger *zap.Logger) *Engine {
	if evaluator == nil {
		evaluator = NewJQEvaluator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{evaluator: evaluator, logger: logger}
}

// Serialize round-trips raw through JSON so that values such as time.Time
// become the strings an expression can match on.
func (e *Engine) Serialize(raw any) (Document, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return Document{}, fmt.Errorf("serialize resource: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return Document{}, fmt.Errorf("deserialize resource: %w", err)
	}
	return Document{Raw: data, Value: value}, nil
}

// Evaluate runs expr against doc. One result is returned as is, several as a
// slice, none as nil. An expression that fails is returned verbatim, which is
// how literal values are written in a spec.
func (e *Engine) Evaluate(ctx context.Context, expr string, doc Document) any {
	results, err := e.evaluator.Evaluate(ctx, expr, doc)
	if err != nil {
		e.logger.Debug("Expression fell back to literal", zap.String("expr", expr), zap.Error(err))
		return expr
	}

	switch len(results) {
	case 0:
		return nil
	case 1:
		return results[0]
	default:
		return results
	}
}

// BuildEntity maps one raw resource with spec.
func (e *Engine) BuildEntity(ctx context.Context, raw any, spec Spec) (catalog.Entity, error) {
	doc, err := e.Serialize(raw)
	if err != nil {
		return catalog.Entity{}, err
	}
	return e.build(ctx, doc, spec)
}

func (e *Engine) build(ctx context.Context, doc Document, spec Spec) (catalog.Entity, error) {
	id := e.Evaluate(ctx, spec.Identifier, doc)
	switch id.(type) {
	case []any, map[string]any:
		return catalog.Entity{}, fmt.Errorf("blueprint %s: %w", spec.Blueprint, ErrInvalidIdentifier)
	}

	entity := catalog.Entity{
		Identifier:            utils.ToString(id),
		Blueprint:             spec.Blueprint,
		Properties:            e.evaluateAll(ctx, spec.Properties, doc),
		Relations:             e.evaluateAll(ctx, spec.Relations, doc),
		MirrorProperties:      e.evaluateAll(ctx, spec.MirrorProperties, doc),
		CalculationProperties: e.evaluateAll(ctx, spec.CalculationProperties, doc),
	}
	if spec.Title != "" {
		entity.Title = utils.ToString(e.Evaluate(ctx, spec.Title, doc))
	}

	if entity.Identifier == "" {
		return catalog.Entity{}, fmt.Errorf("blueprint %s: %w", spec.Blueprint, ErrEmptyIdentifier)
	}
	return entity, nil
}

func (e *Engine) evaluateAll(ctx context.Context, exprs map[string]string, doc Document) map[string]any {
	out := make(map[string]any, len(exprs))
	for field, expr := range exprs {
		out[field] = e.Evaluate(ctx, expr, doc)
	}
	return out
}

// BuildEntities maps raw with every spec. When selector is set it is evaluated
// first and a nil or false result selects no entities. Unlike field
// expressions, a selector that fails to evaluate is an error.
func (e *Engine) BuildEntities(ctx context.Context, raw any, selector string, specs []Spec) ([]catalog.Entity, error) {
	doc, err := e.Serialize(raw)
	if err != nil {
		return nil, err
	}

	if selector != "" {
		results, err := e.evaluator.Evaluate(ctx, selector, doc)
		if err != nil {
			return nil, fmt.Errorf("selector: %w", err)
		}
		if len(results) == 0 || !utils.Truthy(results[0]) {
			return nil, nil
		}
	}

	entities := make([]catalog.Entity, 0, len(specs))
	for _, spec := range specs {
		entity, err := e.build(ctx, doc, spec)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// BuildDeleteEntities builds the entities to remove for a resource that only
// has an identifier left. The specs see the document {"identifier": id}.
func (e *Engine) BuildDeleteEntities(ctx context.Context, id string, selector string, specs []Spec) ([]catalog.Entity, error) {
	return e.BuildEntities(ctx, map[string]any{"identifier": id}, selector, specs)
}
