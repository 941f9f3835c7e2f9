package cmd

import (
	"fmt"

	"resource-exporter/core/ingest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncFile  string
	syncPrune bool
	syncFresh bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync invocation over the resources document",
	Long: `Enumerates every configured resource kind and upserts the mapped entities.
When the time budget runs short the remaining work is checkpointed and, if
messaging is configured, published so a worker continues it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logg := loadConfig()

		if cmd.Flags().Changed("prune") {
			cfg.Sync.Prune = syncPrune
		}
		if syncFile != "" {
			cfg.Sync.ResourcesFile = syncFile
		}

		rt, err := newRuntime(ctx, cfg, logg, true)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer rt.close()

		doc, err := rt.documents()
		if err != nil {
			return err
		}
		if !syncFresh {
			if doc, err = rt.service.Resume(ctx, doc); err != nil {
				return err
			}
		}

		logg.Info("Starting sync",
			zap.String("file", cfg.Sync.ResourcesFile),
			zap.Int("resources", len(doc.Resources)),
			zap.Duration("budget", cfg.Sync.MaxDuration()),
		)
		summary, err := rt.service.Run(ctx, doc, ingest.NewDeadlineBudget(cfg.Sync.MaxDuration()))
		if summary != nil {
			logSummary(logg, summary)
		}
		return err
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncFile, "file", "f", "", "resources document (overrides SYNC_RESOURCES_FILE)")
	syncCmd.Flags().BoolVar(&syncPrune, "prune", false, "delete catalog entities not seen by a complete run")
	syncCmd.Flags().BoolVar(&syncFresh, "fresh", false, "ignore any saved checkpoint")
	RootCmd.AddCommand(syncCmd)
}
