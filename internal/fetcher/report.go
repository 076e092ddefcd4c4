package fetcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/ukstats/sourcefetch/internal/sources"
)

// SourceResult is the outcome of one source within a run
type SourceResult struct {
	Name       string
	Type       string
	OutputFile string
	Duration   time.Duration

	// Result is set when the fetch succeeded
	Result *Result
	// Changed reports whether the written CSV differs from the previous run
	Changed bool

	// Err is set when the fetch failed
	Err error
}

// Succeeded reports whether the source was fetched and written
func (r SourceResult) Succeeded() bool {
	return r.Err == nil
}

// Kind returns the failure kind, or an empty string on success
func (r SourceResult) Kind() string {
	if r.Err == nil {
		return ""
	}
	return sources.KindOf(r.Err)
}

// Report is the outcome of a run over a source list
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []SourceResult
}

// Failed returns the results of failed sources in configuration order
func (r *Report) Failed() []SourceResult {
	return lo.Filter(r.Results, func(res SourceResult, _ int) bool {
		return !res.Succeeded()
	})
}

// FailedNames returns the names of failed sources in configuration order
func (r *Report) FailedNames() []string {
	return lo.Map(r.Failed(), func(res SourceResult, _ int) string {
		return res.Name
	})
}

// SucceededCount returns the number of sources that completed
func (r *Report) SucceededCount() int {
	return lo.CountBy(r.Results, func(res SourceResult) bool {
		return res.Succeeded()
	})
}

// OK reports whether every source completed
func (r *Report) OK() bool {
	return r.SucceededCount() == len(r.Results)
}

// Summary returns the one line run summary
func (r *Report) Summary() string {
	return fmt.Sprintf("%d/%d sources completed extraction", r.SucceededCount(), len(r.Results))
}

// Err joins the errors of all failed sources, nil when all succeeded
func (r *Report) Err() error {
	return errors.Join(lo.Map(r.Failed(), func(res SourceResult, _ int) error {
		return res.Err
	})...)
}
