// Package sources provides the retrieval strategies that turn a configured
// source into a table of rows.
//
// Each source type has a SourceHandler:
//   - directDownloadHandler: requests the source URL and decodes the body
//     according to the declared file type (csv, xlsx, ods, zip)
//   - webScrapeHandler: requests an HTML page, locates the anchor whose text
//     equals the configured link text, resolves its href and decodes the linked
//     file like a direct download. Pages without link text carry the data
//     inline and the table at the configured selector is extracted instead.
//
// Handlers are created through a SourceHandlerFactory keyed by source type.
// Failures are reported as *Error values whose kind can be tested with
// errors.Is against ErrFetch, ErrLinkNotFound, ErrAmbiguousMatch, ErrFormat
// and ErrWrite.
//
// StorageManager persists decoded tables as CSV files, replacing any existing
// file atomically.
package sources
