package exporter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"resource-exporter/core/catalog"
	"resource-exporter/core/ingest"
	"resource-exporter/core/logger"
	"resource-exporter/core/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownKind is returned for single item requests on a kind missing from the document.
var ErrUnknownKind = errors.New("kind not configured")

// Reinvoker hands the remaining document to another invocation.
type Reinvoker interface {
	Reinvoke(ctx context.Context, payload any) error
}

// Options wires the optional parts of a Service.
type Options struct {
	// Checkpoints persists the remaining document when it is not re-invoked;
	// nil disables resuming.
	Checkpoints *Checkpoints
	// Reinvoker publishes the remaining document; nil disables re-invocation.
	Reinvoker Reinvoker
	// Prune deletes catalog entities not seen by a complete run.
	Prune   bool
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// ResourceSummary is the outcome of one resource config.
type ResourceSummary struct {
	Kind       string `json:"kind"`
	Region     string `json:"region,omitempty"`
	Entities   int    `json:"entities"`
	SkipDelete bool   `json:"skip_delete"`
	Deferred   bool   `json:"deferred"`
}

// Summary is the outcome of one document run.
type Summary struct {
	Resources []ResourceSummary `json:"resources"`
	// Entities holds what this invocation wrote.
	Entities ingest.EntitySet `json:"entities"`
	// Remaining is the work left for the next invocation, nil when the document completed.
	Remaining *Document `json:"remaining,omitempty"`
	// Complete is true when the source document finished and no invocation
	// of it saw SkipDelete.
	Complete bool `json:"complete"`
	Pruned   int  `json:"pruned"`
}

// Service runs resources documents through the orchestrator.
type Service struct {
	orch        *ingest.Orchestrator
	catalog     catalog.Client
	checkpoints *Checkpoints
	reinvoker   Reinvoker
	prune       bool
	metrics     *metrics.Metrics
	logger      *zap.Logger

	// mu serializes document runs; checkpoints assume a single writer.
	mu sync.Mutex
}

// NewService creates a new exporter service.
func NewService(orch *ingest.Orchestrator, client catalog.Client, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		orch:        orch,
		catalog:     client,
		checkpoints: opts.Checkpoints,
		reinvoker:   opts.Reinvoker,
		prune:       opts.Prune,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// Kinds returns the kinds with a dedicated fetcher.
func (s *Service) Kinds() []string {
	return s.orch.Registry().Kinds()
}

// Resume returns the saved checkpoint of doc when there is one, else doc.
func (s *Service) Resume(ctx context.Context, doc *Document) (*Document, error) {
	if s.checkpoints == nil {
		return doc, nil
	}
	saved, ok, err := s.checkpoints.Load(ctx, doc.Source())
	if err != nil {
		return nil, err
	}
	if !ok {
		return doc, nil
	}
	s.logger.Info("Resuming from checkpoint", zap.Int("resources", len(saved.Resources)))
	return saved, nil
}

// Run handles every config of doc in order until one defers work. The
// deferred config and everything after it become the remaining document,
// which carries the progress so far and is checkpointed or re-invoked.
// Pruning runs only once the whole source document has finished.
func (s *Service) Run(ctx context.Context, doc *Document, budget ingest.ExecutionContext) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := doc.Source()
	seen := ingest.NewEntitySet()
	blueprints := doc.Blueprints()
	skipDelete := false
	if p := doc.Progress; p != nil {
		seen.Union(p.Seen)
		blueprints = mergeBlueprints(p.Blueprints, blueprints)
		skipDelete = p.SkipDelete
	}

	summary := &Summary{Entities: ingest.NewEntitySet()}

	for i, cfg := range doc.Resources {
		res := s.orch.Handle(ctx, cfg, budget)
		pending := res.NextResourceConfig != nil && !res.Exhausted

		summary.Entities.Union(res.Entities)
		summary.Resources = append(summary.Resources, ResourceSummary{
			Kind:       cfg.Kind,
			Region:     cfg.Region,
			Entities:   len(res.Entities),
			SkipDelete: res.SkipDelete,
			Deferred:   pending,
		})
		skipDelete = skipDelete || res.SkipDelete

		if res.NextResourceConfig == nil {
			continue
		}

		var remaining []ingest.ResourceConfig
		if pending {
			remaining = append(remaining, *res.NextResourceConfig)
		}
		for _, rest := range doc.Resources[i+1:] {
			remaining = append(remaining, rest.Clone())
		}
		if len(remaining) > 0 {
			summary.Remaining = &Document{Resources: remaining}
		}
		break
	}

	seen.Union(summary.Entities)
	summary.Complete = summary.Remaining == nil && !skipDelete
	if summary.Remaining != nil {
		summary.Remaining.Progress = &Progress{
			Source:     source,
			Seen:       seen,
			Blueprints: blueprints,
			SkipDelete: skipDelete,
		}
	}

	if err := s.finish(ctx, source, summary); err != nil {
		return summary, err
	}

	if summary.Complete && s.prune {
		pruned, err := s.pruneUnseen(ctx, blueprints, seen)
		summary.Pruned = pruned
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// finish hands the remaining work on and keeps the checkpoint of source in
// step. A published document is the resume point, so the checkpoint is only
// kept when there is no re-invoker or publishing failed.
func (s *Service) finish(ctx context.Context, source string, summary *Summary) error {
	if summary.Remaining == nil {
		return s.clearCheckpoint(ctx, source)
	}

	s.logger.Info("Deferring remaining resources", zap.Int("resources", len(summary.Remaining.Resources)))
	if s.reinvoker == nil {
		return s.saveCheckpoint(ctx, source, summary.Remaining)
	}

	err := s.reinvoker.Reinvoke(ctx, summary.Remaining)
	if err == nil {
		return s.clearCheckpoint(ctx, source)
	}
	s.logger.Error("Re-invocation failed, keeping checkpoint", zap.Error(err))
	return errors.Join(fmt.Errorf("re-invoke: %w", err), s.saveCheckpoint(ctx, source, summary.Remaining))
}

func (s *Service) saveCheckpoint(ctx context.Context, source string, doc *Document) error {
	if s.checkpoints == nil {
		return nil
	}
	return s.checkpoints.Save(ctx, source, doc)
}

func (s *Service) clearCheckpoint(ctx context.Context, source string) error {
	if s.checkpoints == nil {
		return nil
	}
	return s.checkpoints.Clear(ctx, source)
}

// pruneUnseen deletes, per blueprint, the catalog entities not in seen.
func (s *Service) pruneUnseen(ctx context.Context, blueprints []string, seen ingest.EntitySet) (int, error) {
	pruner, ok := s.catalog.(catalog.Pruner)
	if !ok {
		s.logger.Warn("Catalog does not support pruning")
		return 0, nil
	}

	keep := seen.ByBlueprint()

	var mu sync.Mutex
	total := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, bp := range blueprints {
		g.Go(func() error {
			n, err := pruner.Prune(gctx, bp, keep[bp])
			if err != nil {
				return fmt.Errorf("prune %s: %w", bp, err)
			}
			s.metrics.ObservePruned(bp, n)
			s.logger.Info("Pruned stale entities", zap.String("blueprint", bp), zap.Int("count", n))

			mu.Lock()
			total += n
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return total, err
}

func mergeBlueprints(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, bp := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[bp]; ok {
			continue
		}
		seen[bp] = struct{}{}
		out = append(out, bp)
	}
	return out
}

// RunItem upserts or deletes a single resource using the config for kind in doc.
func (s *Service) RunItem(ctx context.Context, doc *Document, kind, region, id string, action ingest.Action) (ingest.ExecutionResult, error) {
	cfg, ok := doc.Find(kind, region)
	if !ok {
		return ingest.ExecutionResult{}, fmt.Errorf("%s: %w", kind, ErrUnknownKind)
	}
	if region != "" {
		cfg.Region = region
	}

	l := logger.WithResource(s.logger, cfg.Kind, cfg.Region)
	l.Info("Handling single resource", zap.String("identifier", id), zap.String("action", string(action)))
	return s.orch.HandleItem(ctx, cfg, id, action), nil
}
