package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/httpclient"
	"github.com/ukstats/sourcefetch/internal/logger"
)

// directDownloadHandler handles sources whose URL serves the data file itself
type directDownloadHandler struct {
	client httpclient.Client
}

// NewDirectDownloadHandler creates a new direct download handler
func NewDirectDownloadHandler(client httpclient.Client) SourceHandler {
	return &directDownloadHandler{client: client}
}

// Validate validates the direct download source configuration
func (*directDownloadHandler) Validate(source *config.SourceConfig) error {
	if source == nil {
		return errors.New("source configuration cannot be nil")
	}
	if source.Type != config.SourceTypeDirectDownload {
		return fmt.Errorf("source %s has type %s, expected %s", source.Name, source.Type, config.SourceTypeDirectDownload)
	}
	if source.URL == "" {
		return fmt.Errorf("source %s: url cannot be empty", source.Name)
	}
	if source.LinkText != "" {
		return fmt.Errorf("source %s: link_text is only valid for %s sources", source.Name, config.SourceTypeWebScrape)
	}
	return nil
}

// Fetch downloads the source URL with the declared method and decodes the body
func (h *directDownloadHandler) Fetch(ctx context.Context, source *config.SourceConfig) (*FetchResult, error) {
	if err := h.Validate(source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	log := logger.FromContext(ctx)
	log.V(1).Info("downloading", "url", source.URL, "method", source.GetMethod())

	resp, err := h.client.Do(ctx, httpclient.Request{
		Method:  source.GetMethod(),
		URL:     source.URL,
		Headers: source.Headers,
	})
	if err != nil {
		return nil, NewError(ErrFetch, source.Name, err)
	}

	dec, err := decode(source, resp.Body)
	if err != nil {
		return nil, err
	}

	return NewFetchResult(dec.table, resp.URL, int64(len(resp.Body)), dec.member), nil
}
