package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FetchMetricsMeterName is the name used for the fetch metrics meter
	FetchMetricsMeterName = "github.com/ukstats/sourcefetch/fetch"
)

// FetchMetrics holds the OpenTelemetry instruments for per-source fetch metrics
type FetchMetrics struct {
	fetchDuration   metric.Float64Histogram
	rowsWritten     metric.Int64Gauge
	bytesDownloaded metric.Int64Counter
}

// NewFetchMetrics creates a new FetchMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFetchMetrics(provider metric.MeterProvider) (*FetchMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FetchMetricsMeterName)

	fetchDuration, err := meter.Float64Histogram(
		"sourcefetch_fetch_duration_seconds",
		metric.WithDescription("Duration of a source fetch in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Gauge(
		"sourcefetch_rows_written",
		metric.WithDescription("Number of CSV rows written for each source"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	bytesDownloaded, err := meter.Int64Counter(
		"sourcefetch_bytes_downloaded_total",
		metric.WithDescription("Bytes downloaded for each source"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{
		fetchDuration:   fetchDuration,
		rowsWritten:     rowsWritten,
		bytesDownloaded: bytesDownloaded,
	}, nil
}

// RecordFetchDuration records how long a source fetch took and whether it succeeded
func (m *FetchMetrics) RecordFetchDuration(
	ctx context.Context, sourceName, sourceType string, duration time.Duration, success bool,
) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", sourceName),
		attribute.String("type", sourceType),
		attribute.Bool("success", success),
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRowsWritten records the number of rows in the CSV written for a source
func (m *FetchMetrics) RecordRowsWritten(ctx context.Context, sourceName string, rows int64) {
	if m == nil || m.rowsWritten == nil {
		return
	}

	m.rowsWritten.Record(ctx, rows, metric.WithAttributes(attribute.String("source", sourceName)))
}

// RecordBytesDownloaded adds n downloaded bytes to the source's counter
func (m *FetchMetrics) RecordBytesDownloaded(ctx context.Context, sourceName string, n int64) {
	if m == nil || m.bytesDownloaded == nil || n <= 0 {
		return
	}

	m.bytesDownloaded.Add(ctx, n, metric.WithAttributes(attribute.String("source", sourceName)))
}
