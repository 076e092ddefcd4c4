package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/httpclient"
	"github.com/ukstats/sourcefetch/internal/logger"
	"github.com/ukstats/sourcefetch/internal/otel"
	"github.com/ukstats/sourcefetch/internal/sources"
	"github.com/ukstats/sourcefetch/internal/status"
	"github.com/ukstats/sourcefetch/internal/telemetry"
)

// DefaultConcurrency is the number of sources fetched in parallel
const DefaultConcurrency = 4

// ErrUnknownSource is returned when a requested source name is not configured
var ErrUnknownSource = errors.New("unknown source")

// Runner fetches every source of a configuration and collects the outcome
type Runner struct {
	manager           Manager
	statusPersistence status.StatusPersistence
	metrics           *telemetry.FetchMetrics
	tracer            trace.Tracer
	concurrency       int
	now               func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithStatusPersistence records per-source status through sp
func WithStatusPersistence(sp status.StatusPersistence) RunnerOption {
	return func(r *Runner) {
		r.statusPersistence = sp
	}
}

// WithMetrics records fetch metrics
func WithMetrics(m *telemetry.FetchMetrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer records a span for the run and one for each source
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithConcurrency sets how many sources are fetched in parallel
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner creates a new Runner on top of manager
func NewRunner(manager Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		manager:     manager,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectSources returns the configured sources, restricted to the given names when
// any are given. Requested names that are not configured are reported together.
func SelectSources(cfg *config.Config, only []string) ([]*config.SourceConfig, error) {
	if len(only) == 0 {
		return lo.Map(cfg.Sources, func(_ config.SourceConfig, i int) *config.SourceConfig {
			return &cfg.Sources[i]
		}), nil
	}

	unknown := lo.Without(lo.Uniq(only), cfg.SourceNames()...)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSource, unknown)
	}

	selected := make([]*config.SourceConfig, 0, len(only))
	for i := range cfg.Sources {
		if lo.Contains(only, cfg.Sources[i].Name) {
			selected = append(selected, &cfg.Sources[i])
		}
	}
	return selected, nil
}

// Run fetches the selected sources of cfg. A failing source is recorded in the
// report and does not stop the others. The returned error is only set when the
// run could not start; per-source failures are reported through Report.Err.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, only []string) (*Report, error) {
	selected, err := SelectSources(cfg, only)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Started: r.now(),
		Results: make([]SourceResult, len(selected)),
	}

	logger.Infof("Run %s: fetching %d sources (concurrency %d)", report.RunID, len(selected), r.concurrency)

	ctx, span := otel.StartRunSpan(ctx, r.tracer, report.RunID, len(selected))
	defer span.End()

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, src := range selected {
		g.Go(func() error {
			report.Results[i] = r.fetchSource(ctx, report.RunID, src, cfg.OutputPath(src))
			return nil
		})
	}
	// Tasks never return errors, failures live in the results
	_ = g.Wait()

	report.Duration = r.now().Sub(report.Started)
	logger.Infof("Run %s: %s in %s", report.RunID, report.Summary(), report.Duration.Round(time.Millisecond))

	return report, nil
}

// fetchSource runs one source through the manager, keeping its status up to date
func (r *Runner) fetchSource(
	ctx context.Context, runID string, src *config.SourceConfig, outputFile string,
) SourceResult {
	ctx, span := otel.StartSourceSpan(ctx, r.tracer, runID, src)
	defer span.End()

	log := logger.FromContext(ctx).WithValues("source", src.Name, "runID", runID)
	ctx = logger.WithContext(ctx, log)

	result := SourceResult{
		Name:       src.Name,
		Type:       src.Type,
		OutputFile: outputFile,
	}

	fetchStatus := r.loadStatus(ctx, src.Name)
	previousHash := fetchStatus.LastHash

	started := r.now()
	fetchStatus.Phase = status.FetchPhaseFetching
	fetchStatus.Message = "Fetch in progress"
	fetchStatus.RunID = runID
	fetchStatus.LastAttempt = &started
	fetchStatus.OutputFile = outputFile
	r.saveStatus(ctx, src.Name, fetchStatus)

	// The final status is saved however the fetch ends
	defer r.saveStatus(ctx, src.Name, fetchStatus)

	logger.Infof("Source '%s': starting fetch", src.Name)

	var (
		fetched *Result
		err     = ctx.Err()
	)
	if err == nil {
		fetched, err = r.manager.PerformFetch(ctx, src, outputFile)
	} else {
		err = sources.NewError(sources.ErrFetch, src.Name, err)
	}
	result.Duration = r.now().Sub(started)

	r.metrics.RecordFetchDuration(ctx, src.Name, src.Type, result.Duration, err == nil)

	if err != nil {
		result.Err = err
		otel.MarkFailed(span, sources.KindOf(err), err)

		fetchStatus.Phase = status.FetchPhaseFailed
		fetchStatus.Message = err.Error()
		fetchStatus.ErrorKind = sources.KindOf(err)
		fetchStatus.AttemptCount++

		logger.Errorf("Source '%s': fetch failed: %v", src.Name, err)
		if httpclient.IsNotFound(err) {
			logger.Warnf("Source '%s': publishers move files between releases, check url and link_text", src.Name)
		}
		return result
	}

	result.Result = fetched
	result.Changed = fetched.Hash != previousHash

	otel.MarkFetched(span, fetched.ResolvedURL, fetched.RowCount, fetched.Bytes)
	r.metrics.RecordRowsWritten(ctx, src.Name, int64(fetched.RowCount))
	r.metrics.RecordBytesDownloaded(ctx, src.Name, fetched.Bytes)

	completed := r.now()
	fetchStatus.Phase = status.FetchPhaseComplete
	fetchStatus.Message = fmt.Sprintf("Wrote %d rows to %s", fetched.RowCount, fetched.OutputFile)
	fetchStatus.ErrorKind = ""
	fetchStatus.AttemptCount = 0
	fetchStatus.LastSuccessTime = &completed
	fetchStatus.LastHash = fetched.Hash
	fetchStatus.RowCount = fetched.RowCount
	fetchStatus.ResolvedURL = fetched.ResolvedURL
	fetchStatus.OutputFile = fetched.OutputFile

	if result.Changed {
		logger.Infof("Source '%s': wrote %d rows to %s", src.Name, fetched.RowCount, fetched.OutputFile)
	} else {
		logger.Infof("Source '%s': wrote %d rows to %s (unchanged since last run)",
			src.Name, fetched.RowCount, fetched.OutputFile)
	}

	return result
}

// loadStatus returns the persisted status of a source, or an empty one
func (r *Runner) loadStatus(ctx context.Context, name string) *status.FetchStatus {
	if r.statusPersistence == nil {
		return &status.FetchStatus{}
	}
	st, err := r.statusPersistence.LoadStatus(ctx, name)
	if err != nil {
		logger.Warnf("Source '%s': failed to load status, starting fresh: %v", name, err)
		return &status.FetchStatus{}
	}
	return st
}

func (r *Runner) saveStatus(ctx context.Context, name string, st *status.FetchStatus) {
	if r.statusPersistence == nil {
		return
	}
	// Status writes must survive a cancelled run
	if err := r.statusPersistence.SaveStatus(context.WithoutCancel(ctx), name, st); err != nil {
		logger.Errorf("Source '%s': failed to persist status: %v", name, err)
	}
}
