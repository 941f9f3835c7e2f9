package cmd

import (
	"fmt"

	"resource-exporter/feature/aws"

	"github.com/spf13/cobra"
)

// kindsCmd represents the kinds command
var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List resource kinds with a dedicated fetcher",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := loadConfig()

		registry := aws.NewRegistry(aws.Deps{
			DefaultRegion: cfg.Provider.Region,
			Clients:       aws.SDKClients{Profile: cfg.Provider.Profile},
		})
		out := cmd.OutOrStdout()
		for _, kind := range registry.Kinds() {
			fmt.Fprintln(out, kind)
		}
		if registry.HasFallback() {
			fmt.Fprintln(out, "(any other kind supported by Cloud Control)")
		}
	},
}

func init() {
	RootCmd.AddCommand(kindsCmd)
}
