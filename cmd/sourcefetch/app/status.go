package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ukstats/sourcefetch/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last fetch status of every source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		persistence := status.NewFileStatusPersistence(viper.GetString("status-dir"))
		statuses, err := persistence.LoadAllStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load status: %w", err)
		}
		return renderStatus(cmd.OutOrStdout(), statuses)
	},
}
