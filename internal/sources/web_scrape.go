package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"

	"github.com/ukstats/sourcefetch/internal/config"
	"github.com/ukstats/sourcefetch/internal/httpclient"
	"github.com/ukstats/sourcefetch/internal/logger"
	"github.com/ukstats/sourcefetch/internal/tabular"
)

// webScrapeHandler handles sources whose URL serves an HTML page that either
// links to the data file or carries the data as an inline table
type webScrapeHandler struct {
	client httpclient.Client
	policy *bluemonday.Policy
}

// NewWebScrapeHandler creates a new web scrape handler
func NewWebScrapeHandler(client httpclient.Client) SourceHandler {
	return &webScrapeHandler{
		client: client,
		policy: pagePolicy(),
	}
}

// pagePolicy strips scripts, styles and unsafe markup from pages carrying
// inline tables while keeping the ids and classes selectors rely on
func pagePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.RequireNoFollowOnLinks(false)
	return p
}

// Validate validates the web scrape source configuration
func (*webScrapeHandler) Validate(source *config.SourceConfig) error {
	if source == nil {
		return errors.New("source configuration cannot be nil")
	}
	if source.Type != config.SourceTypeWebScrape {
		return fmt.Errorf("source %s has type %s, expected %s", source.Name, source.Type, config.SourceTypeWebScrape)
	}
	if source.URL == "" {
		return fmt.Errorf("source %s: url cannot be empty", source.Name)
	}
	if source.IsScrapedTable() && source.FileType != config.FileTypeCSV {
		return fmt.Errorf("source %s: link_text is required for file_type %s", source.Name, source.FileType)
	}
	return nil
}

// Fetch requests the page and then either downloads the linked file or
// extracts the inline table
func (h *webScrapeHandler) Fetch(ctx context.Context, source *config.SourceConfig) (*FetchResult, error) {
	if err := h.Validate(source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}

	log := logger.FromContext(ctx)
	log.V(1).Info("requesting page", "url", source.URL)

	page, err := h.client.Do(ctx, httpclient.Request{
		Method:  source.GetMethod(),
		URL:     source.URL,
		Headers: source.Headers,
	})
	if err != nil {
		return nil, NewError(ErrFetch, source.Name, err)
	}

	if source.IsScrapedTable() {
		doc, err := h.parseTablePage(page.Body)
		if err != nil {
			return nil, NewError(ErrFormat, source.Name, err)
		}
		table, err := tabular.ExtractHTMLTable(doc, source.GetTableSelector())
		if err != nil {
			return nil, NewError(ErrFormat, source.Name, err)
		}
		return NewFetchResult(table, page.URL, int64(len(page.Body)), ""), nil
	}

	doc, err := parseLinkPage(page.Body)
	if err != nil {
		return nil, NewError(ErrFormat, source.Name, err)
	}

	base := source.BaseURL
	if base == "" {
		base = page.URL
	}
	target, err := FindLink(doc, source.LinkText, base)
	if err != nil {
		return nil, NewError(linkErrorKind(err), source.Name, err)
	}
	log.V(1).Info("resolved link", "link_text", source.LinkText, "url", target)

	// The linked file is always fetched with GET, the declared method applies to the page
	file, err := h.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: source.Headers,
	})
	if err != nil {
		return nil, NewError(ErrFetch, source.Name, err)
	}

	dec, err := decode(source, file.Body)
	if err != nil {
		return nil, err
	}

	return NewFetchResult(dec.table, target, int64(len(page.Body)+len(file.Body)), dec.member), nil
}

// parseTablePage sanitizes the page before table extraction
func (h *webScrapeHandler) parseTablePage(body []byte) (*goquery.Document, error) {
	return parsePage(h.policy.SanitizeBytes(body))
}

// parseLinkPage keeps hrefs as published. Only elements that are never
// rendered are removed before anchor text is compared.
func parseLinkPage(body []byte) (*goquery.Document, error) {
	doc, err := parsePage(body)
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, template").Remove()
	return doc, nil
}

func parsePage(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML page: %w", err)
	}
	return doc, nil
}

var (
	errLinkNotFound  = errors.New("no link with matching text")
	errAmbiguousLink = errors.New("several links with matching text point to different URLs")
)

func linkErrorKind(err error) error {
	if errors.Is(err, errAmbiguousLink) {
		return ErrAmbiguousMatch
	}
	return ErrLinkNotFound
}

// FindLink returns the absolute URL of the anchor whose visible text, with
// whitespace collapsed, equals linkText. Relative hrefs are resolved against
// base. Several matching anchors are accepted only when they resolve to the
// same URL.
func FindLink(doc *goquery.Document, linkText, base string) (string, error) {
	want := tabular.CollapseSpace(linkText)

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	var resolved []string
	var resolveErr error
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if tabular.CollapseSpace(a.Text()) != want {
			return
		}
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			resolveErr = fmt.Errorf("invalid href %q: %w", href, err)
			return
		}
		resolved = append(resolved, baseURL.ResolveReference(ref).String())
	})

	resolved = lo.Uniq(resolved)
	switch {
	case len(resolved) == 1:
		return resolved[0], nil
	case len(resolved) > 1:
		return "", fmt.Errorf("%w %q: %s", errAmbiguousLink, want, strings.Join(resolved, ", "))
	case resolveErr != nil:
		return "", resolveErr
	default:
		return "", fmt.Errorf("%w %q", errLinkNotFound, want)
	}
}
