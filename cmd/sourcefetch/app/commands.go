// Package app provides the commands of the sourcefetch CLI.
package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/logger"
	"github.com/ukstats/sourcefetch/internal/versions"
)

// DefaultStatusDir is where fetch status and the run lock are kept
const DefaultStatusDir = ".sourcefetch"

var rootCmd = &cobra.Command{
	Use:               "sourcefetch",
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	Short:             "Fetch statistics sources and normalize them to CSV",
	Long: `sourcefetch downloads or scrapes the data sources declared in a YAML source list
and writes one normalized CSV file per source.

Sources are either downloaded directly or located through a link on an HTML page.
CSV, XLSX, ODS and ZIP files as well as inline HTML tables are supported.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Bind the flags of the command being run, so each flag can also be
		// set through its SOURCEFETCH_ environment variable
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		if viper.GetBool("debug") {
			logger.Initialize("debug", true)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the sourcefetch CLI.
func NewRootCmd() *cobra.Command {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("status-dir", DefaultStatusDir, "Directory holding fetch status files and the run lock")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to read format flag: %w", err)
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info as JSON: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return err
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
