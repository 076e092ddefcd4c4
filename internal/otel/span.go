// Package otel defines the spans recorded by a fetch run: one run span with a
// child span for each source.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ukstats/sourcefetch/internal/config"
)

// Span names
const (
	SpanRun         = "sourcefetch.run"
	SpanFetchSource = "sourcefetch.fetch_source"
)

// Attribute keys recorded on fetch spans
const (
	AttrRunID       = attribute.Key("run.id")
	AttrSourceCount = attribute.Key("run.sources")
	AttrSourceName  = attribute.Key("source.name")
	AttrSourceType  = attribute.Key("source.type")
	AttrFileType    = attribute.Key("source.file_type")
	AttrURL         = attribute.Key("url.full")
	AttrRowCount    = attribute.Key("result.rows")
	AttrBytes       = attribute.Key("result.bytes")
	AttrErrorKind   = attribute.Key("error.type")
)

// StartRunSpan opens the span that parents every source of a run.
// A nil tracer returns ctx unchanged along with the span already in it.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID string, sources int) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, SpanRun, trace.WithAttributes(
		AttrRunID.String(runID),
		AttrSourceCount.Int(sources),
	))
}

// StartSourceSpan opens the span of one source
func StartSourceSpan(
	ctx context.Context, tracer trace.Tracer, runID string, src *config.SourceConfig,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, SpanFetchSource, trace.WithAttributes(
		AttrRunID.String(runID),
		AttrSourceName.String(src.Name),
		AttrSourceType.String(src.Type),
		AttrFileType.String(src.FileType),
	))
}

// MarkFetched records where the data came from and what was written
func MarkFetched(span trace.Span, resolvedURL string, rows int, bytes int64) {
	span.SetAttributes(
		AttrURL.String(resolvedURL),
		AttrRowCount.Int(rows),
		AttrBytes.Int64(bytes),
	)
	span.SetStatus(codes.Ok, "")
}

// MarkFailed records err as an exception event. The status description is
// the error kind, such as "FetchError", so failures group by cause.
func MarkFailed(span trace.Span, kind string, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(AttrErrorKind.String(kind))
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
}
