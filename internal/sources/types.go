package sources

import (
	"context"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/tabular"
)

//go:generate mockgen -destination=mocks/mock_source_handler.go -package=mocks -source=types.go SourceHandler,SourceHandlerFactory

// SourceHandler is an interface with methods to fetch data from external data sources
type SourceHandler interface {
	// Fetch retrieves the source and decodes it into a table
	Fetch(ctx context.Context, source *config.SourceConfig) (*FetchResult, error)

	// Validate validates the source configuration
	Validate(source *config.SourceConfig) error
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Table is the decoded data
	Table *tabular.Table

	// ResolvedURL is the URL the data was finally downloaded from.
	// For scraped links this is the resolved href.
	ResolvedURL string

	// Bytes is the total number of response bytes downloaded
	Bytes int64

	// Member is the archive member that was extracted, if any
	Member string
}

// NewFetchResult creates a new FetchResult
func NewFetchResult(table *tabular.Table, resolvedURL string, bytes int64, member string) *FetchResult {
	return &FetchResult{
		Table:       table,
		ResolvedURL: resolvedURL,
		Bytes:       bytes,
		Member:      member,
	}
}

// RowCount returns the number of decoded rows
func (r *FetchResult) RowCount() int {
	if r == nil {
		return 0
	}
	return r.Table.Len()
}

// SourceHandlerFactory creates source handlers based on source type
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source type
	CreateHandler(sourceType string) (SourceHandler, error)
}
