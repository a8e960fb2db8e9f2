package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Load the configured models and report their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, models, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		loadErr := models.EnsureReady(cmd.Context())

		fmt.Fprintf(cmd.OutOrStdout(), "model service: %s\n", cfg.ModelServiceURL)
		status := models.Status()
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %s\n", name, status[name])
		}
		return loadErr
	},
}
