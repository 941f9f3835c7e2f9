package cmd

import (
	"fmt"
	"os"

	"resource-exporter/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "resource-exporter",
	Short: "Cloud resource exporter",
	Long: `Resource Exporter enumerates cloud resources, maps them into catalog
entities with jq expressions and keeps the catalog in sync. Long syncs are
split across invocations through checkpoints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// configPath is the directory holding the optional .env file.
var configPath string

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding at debug level gives readable CLI errors with ISO8601 timestamps
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing the .env file")
}
