package ingest

import (
	"context"
	"fmt"
	"time"

	"resource-exporter/core/catalog"
	"resource-exporter/core/logger"
	"resource-exporter/core/mapping"
	"resource-exporter/core/metrics"
	"resource-exporter/core/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator runs one resource config through fetch, fan-out, cleanup and
// the continuation decision.
type Orchestrator struct {
	registry  *Registry
	engine    *mapping.Engine
	catalog   catalog.Client
	workers   int
	threshold int64
	retry     *retry.Executor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Options tunes an Orchestrator.
type Options struct {
	Workers         int
	ThresholdMillis int64
	Retry           *retry.Executor
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(registry *Registry, engine *mapping.Engine, client catalog.Client, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retry == nil {
		opts.Retry = retry.Default
	}
	return &Orchestrator{
		registry:  registry,
		engine:    engine,
		catalog:   client,
		workers:   opts.Workers,
		threshold: opts.ThresholdMillis,
		retry:     opts.Retry,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Registry returns the fetcher registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

type run struct {
	o       *Orchestrator
	cfg     ResourceConfig
	fetcher Fetcher
	batch   Batch
	cursor  *string
	log     *zap.Logger

	// pending is the work left when the budget runs short.
	pending   ResourceConfig
	exhausted bool
}

// Handle runs cfg once over every region and resource model it lists. It
// never fails: fetch errors and panics are logged, mark the result
// SkipDelete and still go through cleanup and the decision.
func (o *Orchestrator) Handle(ctx context.Context, cfg ResourceConfig, budget ExecutionContext) ExecutionResult {
	start := time.Now()
	r := o.newRun(cfg)
	r.log.Info("Starting run", zap.Stringp("next_token", cfg.NextToken))

	r.guard("fetch", func() { r.fetchAndFanOut(ctx, budget) })
	r.cleanup(ctx)

	result := Decide(budget.RemainingBudgetMillis(), o.threshold, r.cursor, r.pending, r.batch)
	result.Exhausted = r.exhausted

	outcome := metrics.OutcomeComplete
	switch {
	case result.NextResourceConfig != nil && !result.Exhausted:
		outcome = metrics.OutcomeContinued
	case result.SkipDelete:
		outcome = metrics.OutcomePartial
	}
	o.metrics.ObserveRun(cfg.Kind, outcome, time.Since(start))
	r.log.Info("Finished run",
		zap.Int("entities", len(result.Entities)),
		zap.Bool("skip_delete", result.SkipDelete),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)))

	return result
}

// HandleItem upserts or deletes a single resource. A config listing several
// regions is resolved in its first one unless Region is set.
func (o *Orchestrator) HandleItem(ctx context.Context, cfg ResourceConfig, id string, action Action) ExecutionResult {
	if cfg.Region == "" {
		cfg.Region = cfg.Regions()[0]
	}
	r := o.newRun(cfg)
	r.log = r.log.With(zap.String("identifier", id))

	r.guard("item", func() {
		if !r.resolve(ctx, r.cfg) {
			return
		}
		_, item := policiesFor(r.fetcher)
		r.merge(r.coordinator(r.cfg, r.log, item).Process(ctx, []string{id}, action))
	})
	r.cleanup(ctx)

	return ExecutionResult{Entities: r.batch.Entities, SkipDelete: r.batch.SkipDelete, Exhausted: true}
}

func (o *Orchestrator) newRun(cfg ResourceConfig) *run {
	log := logger.WithResource(o.logger, cfg.Kind, cfg.Region).With(zap.String("run_id", uuid.NewString()))
	cfg = cfg.Clone()
	return &run{
		o:       o,
		cfg:     cfg,
		batch:   Batch{Entities: NewEntitySet()},
		log:     log,
		pending: cfg,
	}
}

// guard runs fn, turning a panic into a logged SkipDelete. The scopes not
// reached yet are abandoned.
func (r *run) guard(stage string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Run aborted", zap.String("stage", stage), zap.Any("panic", p))
			r.batch.SkipDelete = true
			r.cursor = nil
			r.exhausted = true
		}
	}()
	fn()
}

func (r *run) merge(b Batch) {
	r.batch.Entities.Union(b.Entities)
	r.batch.SkipDelete = r.batch.SkipDelete || b.SkipDelete
}

func (r *run) fail(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	r.batch.SkipDelete = true
}

func (r *run) resolve(ctx context.Context, cfg ResourceConfig) bool {
	f, err := r.o.registry.Fetcher(ctx, cfg)
	if err != nil {
		r.fail(r.log, "Failed to resolve fetcher", err)
		return false
	}
	r.fetcher = f
	return true
}

func (r *run) coordinator(cfg ResourceConfig, log *zap.Logger, item retry.Policy) *Coordinator {
	return &Coordinator{
		Fetcher: r.fetcher,
		Config:  cfg,
		Engine:  r.o.engine,
		Catalog: r.o.catalog,
		Workers: r.o.workers,
		Retry:   r.o.retry,
		Policy:  item,
		Metrics: r.o.metrics,
		Logger:  log,
	}
}

// fetchAndFanOut walks the scopes of the config. The resume cursor applies to
// the first scope only. When the budget runs short the unfinished scopes
// become the pending config.
func (r *run) fetchAndFanOut(ctx context.Context, budget ExecutionContext) {
	scopes := r.cfg.Scopes()
	token := r.cfg.NextToken

	for i, scope := range scopes {
		cursor := r.fetchScope(ctx, scope, token, budget)
		r.cleanup(ctx)
		r.fetcher = nil
		token = nil

		if cursor != nil {
			r.pending = r.cfg.Remaining(scopes[i:])
			r.cursor = cursor
			return
		}
		if i < len(scopes)-1 && budget.RemainingBudgetMillis() < r.o.threshold {
			r.pending = r.cfg.Remaining(scopes[i+1:])
			return
		}
	}
	r.exhausted = true
}

// fetchScope lists one scope and returns the cursor to resume it from, nil
// when the scope is done.
func (r *run) fetchScope(ctx context.Context, scope Scope, token *string, budget ExecutionContext) *string {
	cfg := r.cfg.Scoped(scope)
	log := r.log
	if len(r.cfg.Scopes()) > 1 {
		log = log.With(zap.Stringer("scope", scope))
	}

	if !r.resolve(ctx, cfg) {
		return nil
	}
	bulk, item := policiesFor(r.fetcher)
	coord := r.coordinator(cfg, log, item)

	if pf, ok := r.fetcher.(PageFetcher); ok {
		return r.fanOutPages(ctx, log, pf, coord, bulk, token, budget)
	}

	resources, err := retry.Run(ctx, r.o.retry, bulk, r.fetcher.FetchAll)
	if err != nil {
		r.fail(log, "Failed to list resources", err)
		return nil
	}
	if len(resources) == 0 {
		log.Warn("Provider returned no resources")
		r.batch.SkipDelete = true
		return nil
	}

	r.merge(coord.Process(ctx, r.identifiers(log, resources), ActionUpsert))
	return nil
}

// fanOutPages processes one page at a time and checks the budget between
// pages. When it runs short the cursor of the next page is returned.
func (r *run) fanOutPages(ctx context.Context, log *zap.Logger, pf PageFetcher, coord *Coordinator, bulk retry.Policy, token *string, budget ExecutionContext) *string {
	fromStart := token == nil
	listed := 0
	for {
		page, err := retry.Run(ctx, r.o.retry, bulk, func(ctx context.Context) (Page, error) {
			return pf.FetchPage(ctx, token)
		})
		if err != nil {
			r.fail(log, "Failed to list resources", err)
			return nil
		}

		log.Debug("Fetched page", zap.Int("resources", len(page.Resources)), zap.Stringp("next_token", page.NextToken))
		listed += len(page.Resources)
		r.merge(coord.Process(ctx, r.identifiers(log, page.Resources), ActionUpsert))

		token = page.NextToken
		if token == nil {
			if fromStart && listed == 0 {
				log.Warn("Provider returned no resources")
				r.batch.SkipDelete = true
			}
			return nil
		}
		if budget.RemainingBudgetMillis() < r.o.threshold {
			return token
		}
	}
}

func (r *run) identifiers(log *zap.Logger, resources []RawResource) []string {
	ids := make([]string, 0, len(resources))
	for _, res := range resources {
		id, ok := res[IdentifierField].(string)
		if !ok || id == "" {
			r.fail(log, "Resource without identifier", fmt.Errorf("field %q missing", IdentifierField))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *run) cleanup(ctx context.Context) {
	c, ok := r.fetcher.(Cleaner)
	if !ok {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Cleanup panicked", zap.Any("panic", p))
		}
	}()
	if err := c.Cleanup(ctx); err != nil {
		r.log.Error("Cleanup failed", zap.Error(err))
	}
}
