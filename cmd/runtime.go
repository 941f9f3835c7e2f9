package cmd

import (
	"context"
	"fmt"
	"log"

	"resource-exporter/core/blob"
	"resource-exporter/core/catalog"
	"resource-exporter/core/config"
	"resource-exporter/core/database"
	"resource-exporter/core/ingest"
	"resource-exporter/core/logger"
	"resource-exporter/core/mapping"
	"resource-exporter/core/messaging"
	"resource-exporter/core/metrics"
	"resource-exporter/core/retry"
	"resource-exporter/core/storage"
	"resource-exporter/feature/aws"
	"resource-exporter/feature/exporter"

	"github.com/nats-io/nats.go"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	storage storage.Client
	db      *gorm.DB
	nc      *nats.Conn
	service *exporter.Service
	orch    *ingest.Orchestrator
}

// loadConfig loads configuration and installs the global logger.
func loadConfig() (*config.Config, *zap.Logger) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logg)
	return cfg, logg
}

// newRuntime connects the configured backends and builds the exporter service.
// connectMessaging is false for commands that never publish.
func newRuntime(ctx context.Context, cfg *config.Config, logg *zap.Logger, connectMessaging bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logg, metrics: metrics.New(cfg.Metrics)}

	// Object storage is optional; it serves the S3 kind and the storage state backend.
	if cfg.Storage.AccessKey != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		rt.storage = client
	}

	state, err := blob.New(cfg.State, rt.storage, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("create state store: %w", err)
	}

	if cfg.Catalog.Mode == catalog.ModeDatabase {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		rt.db = db
	}
	client, err := catalog.New(cfg.Catalog, rt.db, logg)
	if err != nil {
		return nil, err
	}
	if store, ok := client.(*catalog.Store); ok {
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		logg.Info("Catalog mirrored to database", zap.String("driver", cfg.Database.Driver))
	}

	evaluator, err := mapping.NewEvaluator(cfg.Sync.Dialect)
	if err != nil {
		return nil, err
	}
	engine := mapping.NewEngine(evaluator, logg)

	registry := aws.NewRegistry(aws.Deps{
		DefaultRegion: cfg.Provider.Region,
		Clients:       aws.SDKClients{Profile: cfg.Provider.Profile},
		Storage:       rt.storage,
		Cache:         state,
		CacheTTL:      cfg.Cache.TTL(),
		Metrics:       rt.metrics,
		Logger:        logg,
	})

	rt.orch = ingest.NewOrchestrator(registry, engine, client, ingest.Options{
		Workers:         cfg.Sync.Workers,
		ThresholdMillis: cfg.Sync.ThresholdMillis,
		Retry:           &retry.Executor{OnRetry: rt.metrics.RetryHook("fetch")},
		Metrics:         rt.metrics,
		Logger:          logg,
	})

	opts := exporter.Options{
		Prune:   cfg.Sync.Prune,
		Metrics: rt.metrics,
		Logger:  logg,
	}
	if cfg.Checkpoint.Enabled {
		opts.Checkpoints = exporter.NewCheckpoints(state, cfg.Checkpoint.Key)
	}
	if connectMessaging && cfg.Messaging.Enabled() {
		nc, err := messaging.Connect(cfg.Messaging, logg)
		if err != nil {
			return nil, err
		}
		rt.nc = nc
		opts.Reinvoker = messaging.NewReinvoker(nc, cfg.Messaging.Subject, logg)
	}
	rt.service = exporter.NewService(rt.orch, client, opts)
	return rt, nil
}

// documents loads the configured resources document from disk.
func (rt *runtime) documents() (*exporter.Document, error) {
	return exporter.LoadDocument(afero.NewOsFs(), rt.cfg.Sync.ResourcesFile)
}

// close releases connections.
func (rt *runtime) close() {
	if rt.nc != nil {
		if err := rt.nc.Drain(); err != nil {
			rt.logger.Warn("Failed to drain NATS connection", zap.Error(err))
		}
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = rt.logger.Sync()
}

// logSummary writes one line per resource and a final line for the run.
func logSummary(l *zap.Logger, s *exporter.Summary) {
	for _, r := range s.Resources {
		l.Info("Resource synced",
			zap.String("kind", r.Kind),
			zap.String("region", r.Region),
			zap.Int("entities", r.Entities),
			zap.Bool("skip_delete", r.SkipDelete),
			zap.Bool("deferred", r.Deferred),
		)
	}
	remaining := 0
	if s.Remaining != nil {
		remaining = len(s.Remaining.Resources)
	}
	l.Info("Sync finished",
		zap.Int("entities", len(s.Entities)),
		zap.Bool("complete", s.Complete),
		zap.Int("remaining", remaining),
		zap.Int("pruned", s.Pruned),
	)
}
