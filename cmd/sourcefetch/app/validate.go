package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the source list without fetching anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(viper.GetString("config"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d sources are valid\n", len(cfg.Sources))
		return err
	},
}

func init() {
	validateCmd.Flags().String("config", "", "Path to the source list (YAML format, required)")
}
