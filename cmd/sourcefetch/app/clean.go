package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/internal/status"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the CSV files and status of the configured sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cmd.Context(), viper.GetString("config"), viper.GetString("status-dir"), cmd.OutOrStdout())
	},
}

func init() {
	cleanCmd.Flags().String("config", "", "Path to the source list (YAML format, required)")
}

// runClean removes the output file and stored status of every configured source
func runClean(ctx context.Context, configPath, statusDir string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	lock, err := status.AcquireRunLock(statusDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	storage := sources.NewFileStorageManager()
	persistence := status.NewFileStatusPersistence(statusDir)

	var errs []error
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		path := cfg.OutputPath(src)
		if err := storage.Delete(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		if err := persistence.DeleteStatus(ctx, src.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		if _, err := fmt.Fprintf(out, "Removed %s\n", path); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}
