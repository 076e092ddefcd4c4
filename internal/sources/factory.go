package sources

import (
	"fmt"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/httpclient"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct {
	client httpclient.Client
}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// NewSourceHandlerFactory creates a new source handler factory whose handlers share client
func NewSourceHandlerFactory(client httpclient.Client) SourceHandlerFactory {
	return &defaultSourceHandlerFactory{client: client}
}

// CreateHandler creates a source handler for the given source type
func (f *defaultSourceHandlerFactory) CreateHandler(sourceType string) (SourceHandler, error) {
	switch sourceType {
	case config.SourceTypeDirectDownload:
		return NewDirectDownloadHandler(f.client), nil
	case config.SourceTypeWebScrape:
		return NewWebScrapeHandler(f.client), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
