package integration

import (
	"bytes"
	"encoding/csv"
	"os"
	"sync"
	"time"

	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/ukstats/sourcefetch/cmd/sourcefetch/app"
	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/fetcher"
	"github.com/ukstats/sourcefetch/internal/httpclient"
	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/internal/status"
)

var (
	rootCmdOnce sync.Once
	rootCmd     *cobra.Command
)

// fetchAll runs every source of the source list at configPath
func fetchAll(configPath, statusDir string) *fetcher.Report {
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	Expect(err).NotTo(HaveOccurred())

	client := httpclient.NewDefaultClient(5 * time.Second)
	manager := fetcher.NewDefaultManager(sources.NewSourceHandlerFactory(client), sources.NewFileStorageManager())
	runner := fetcher.NewRunner(manager,
		fetcher.WithStatusPersistence(status.NewFileStatusPersistence(statusDir)),
		fetcher.WithConcurrency(2),
	)

	report, err := runner.Run(ctx, cfg, nil)
	Expect(err).NotTo(HaveOccurred())
	return report
}

// runCLI executes the sourcefetch command line and returns its output
func runCLI(args ...string) (string, error) {
	rootCmdOnce.Do(func() {
		rootCmd = app.NewRootCmd()
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// readCSV parses the CSV file at path
func readCSV(path string) [][]string {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return parseCSV(data)
}

func parseCSV(data []byte) [][]string {
	r := csv.NewReader(bytes.NewReader(data))
	rows, err := r.ReadAll()
	Expect(err).NotTo(HaveOccurred())
	return rows
}
