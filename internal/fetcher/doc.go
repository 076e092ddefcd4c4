// Package fetcher runs the configured sources through their retrieval
// strategy and writes one normalized CSV per source.
//
// Manager performs the pipeline for a single source (handler creation,
// validation, fetch and storage). Runner drives Manager over a whole source
// list with bounded concurrency, persisting per-source status and recording
// metrics and spans along the way. A failing source never stops the others;
// the outcome of every source is collected in a Report.
package fetcher
