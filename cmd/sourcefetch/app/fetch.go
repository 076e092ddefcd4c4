package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/fetcher"
	"github.com/ukstats/sourcefetch/internal/httpclient"
	"github.com/ukstats/sourcefetch/internal/logger"
	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/internal/status"
	"github.com/ukstats/sourcefetch/internal/telemetry"
	"github.com/ukstats/sourcefetch/internal/versions"
)

// ErrSourcesFailed is returned by fetch when at least one source failed
var ErrSourcesFailed = errors.New("sources failed")

// telemetryShutdownTimeout bounds flushing of traces and metrics at exit
const telemetryShutdownTimeout = 10 * time.Second

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every configured source and write its CSV",
	Long: `Fetch the sources declared in the source list and write one normalized CSV per source.

A failing source does not stop the others. The command prints a summary of the run
and exits with a non-zero status when any source failed.`,
	RunE: runFetchCmd,
}

func init() {
	fetchCmd.Flags().String("config", "", "Path to the source list (YAML format, required)")
	fetchCmd.Flags().StringSlice("only", nil, "Fetch only the named sources (comma separated)")
	fetchCmd.Flags().Int("concurrency", fetcher.DefaultConcurrency, "Number of sources fetched in parallel")
	fetchCmd.Flags().Duration("timeout", httpclient.DefaultTimeout, "Timeout of each HTTP request")
	fetchCmd.Flags().Uint("retries", 0, "Additional attempts after network errors, 429 and 5xx responses")
	fetchCmd.Flags().Float64("rate-limit", 0, "Maximum requests per second per host (0 disables limiting)")
	fetchCmd.Flags().Int64("max-response-size", httpclient.DefaultMaxResponseSize, "Maximum accepted response size in bytes")
}

// fetchOptions holds the settings of one fetch run
type fetchOptions struct {
	ConfigPath      string
	StatusDir       string
	Only            []string
	Concurrency     int
	Timeout         time.Duration
	Retries         uint
	RateLimit       float64
	MaxResponseSize int64
}

// fetchOptionsFromViper reads fetch options from flags and environment
func fetchOptionsFromViper() fetchOptions {
	only := lo.FlatMap(viper.GetStringSlice("only"), func(item string, _ int) []string {
		return strings.Split(item, ",")
	})
	only = lo.Compact(lo.Map(only, func(name string, _ int) string {
		return strings.TrimSpace(name)
	}))

	return fetchOptions{
		ConfigPath:      viper.GetString("config"),
		StatusDir:       viper.GetString("status-dir"),
		Only:            only,
		Concurrency:     viper.GetInt("concurrency"),
		Timeout:         viper.GetDuration("timeout"),
		Retries:         viper.GetUint("retries"),
		RateLimit:       viper.GetFloat64("rate-limit"),
		MaxResponseSize: viper.GetInt64("max-response-size"),
	}
}

func runFetchCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runFetch(ctx, fetchOptionsFromViper(), cmd.OutOrStdout())
}

// runFetch loads the source list, runs every selected source and prints the report
func runFetch(ctx context.Context, opts fetchOptions, out io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	lock, err := status.AcquireRunLock(opts.StatusDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Failed to release run lock: %v", err)
		}
	}()

	tel, err := telemetry.New(ctx, cfg.Telemetry, versions.GetVersionInfo().Version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to shutdown telemetry: %v", err)
		}
	}()

	metrics, err := tel.FetchMetrics()
	if err != nil {
		return fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	runner := newRunner(opts, metrics, tel)

	ctx = logger.WithContext(ctx, logger.NewLogr())
	report, err := runner.Run(ctx, cfg, opts.Only)
	if err != nil {
		return err
	}

	if err := renderReport(out, report); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if !report.OK() {
		return fmt.Errorf("%d %w: %s", len(report.Failed()), ErrSourcesFailed,
			strings.Join(report.FailedNames(), ", "))
	}
	return nil
}

// newRunner wires the HTTP client, handlers, storage and status persistence into a Runner
func newRunner(opts fetchOptions, metrics *telemetry.FetchMetrics, tel *telemetry.Telemetry) *fetcher.Runner {
	userAgent := fmt.Sprintf("Mozilla/5.0 (compatible; sourcefetch/%s)",
		versions.GetVersionInfo().UserAgentVersion())

	client := httpclient.NewDefaultClient(opts.Timeout,
		httpclient.WithUserAgent(userAgent),
		httpclient.WithRetries(opts.Retries),
		httpclient.WithRateLimit(opts.RateLimit),
		httpclient.WithMaxResponseSize(opts.MaxResponseSize),
	)

	manager := fetcher.NewDefaultManager(
		sources.NewSourceHandlerFactory(client),
		sources.NewFileStorageManager(),
	)

	return fetcher.NewRunner(manager,
		fetcher.WithStatusPersistence(status.NewFileStatusPersistence(opts.StatusDir)),
		fetcher.WithMetrics(metrics),
		fetcher.WithTracer(tel.Tracer()),
		fetcher.WithConcurrency(opts.Concurrency),
	)
}

// loadConfig loads and validates the source list at path
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded %d sources from %s", len(cfg.Sources), path)
	return cfg, nil
}
