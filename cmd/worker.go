package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resource-exporter/core/ingest"
	"resource-exporter/core/messaging"
	"resource-exporter/feature/exporter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Continue deferred syncs published over NATS",
	Long: `Subscribes to the re-invocation subject and runs every remaining resources
document it receives with a fresh time budget. Work it cannot finish is
published again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg := loadConfig()
		if !cfg.Messaging.Enabled() {
			return errors.New("worker requires MESSAGING_URL")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg, logg, true)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer rt.close()

		handle := func(ctx context.Context, data []byte) error {
			doc, err := exporter.ParseDocument(data)
			if err != nil {
				return err
			}
			logg.Info("Received invocation", zap.Int("resources", len(doc.Resources)))
			summary, err := rt.service.Run(ctx, doc, ingest.NewDeadlineBudget(cfg.Sync.MaxDuration()))
			if summary != nil {
				logSummary(logg, summary)
			}
			return err
		}

		return messaging.Consume(ctx, rt.nc, cfg.Messaging, handle, logg)
	},
}

func init() {
	RootCmd.AddCommand(workerCmd)
}
