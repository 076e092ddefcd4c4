package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ukstats/sourcefetch/internal/logger"
)

// TracerName is the instrumentation scope of fetch spans
const TracerName = "github.com/ukstats/sourcefetch/fetcher"

// Telemetry owns the trace and metric pipelines of one run.
// A pipeline that is switched off stays nil and records nothing.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	// registry is gathered into textfilePath on shutdown
	registry     *prometheus.Registry
	textfilePath string
}

// New starts the pipelines switched on in cfg. A nil or disabled cfg gives a
// Telemetry that records nothing. Shutdown must be called when the run ends.
func New(ctx context.Context, cfg *Config, serviceVersion string) (*Telemetry, error) {
	tel := &Telemetry{}

	if !cfg.tracingOn() && !cfg.metricsOn() {
		logger.Debugf("Telemetry disabled")
		return tel, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	res, err := newResource(ctx, cfg.serviceName(), serviceVersion)
	if err != nil {
		return nil, err
	}

	if cfg.tracingOn() {
		tel.tracerProvider, err = newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		logger.Infof("Exporting traces to %s", cfg.endpoint())
	}

	if cfg.metricsOn() {
		tel.meterProvider, tel.registry, err = newMeterProvider(ctx, cfg, res)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, err
		}
		tel.textfilePath = cfg.Metrics.TextfilePath
		logger.Infof("Exporting metrics with the %s exporter", cfg.Metrics.exporter())
	}

	if cfg.Insecure {
		logger.Warnf("Telemetry is sent to %s without TLS", cfg.endpoint())
	}
	return tel, nil
}

// Tracer returns the tracer for fetch spans
func (t *Telemetry) Tracer() trace.Tracer {
	if t.tracerProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(TracerName)
	}
	return t.tracerProvider.Tracer(TracerName)
}

// FetchMetrics returns the fetch instruments, or nil when metrics are off.
// A nil *FetchMetrics is safe to record on.
func (t *Telemetry) FetchMetrics() (*FetchMetrics, error) {
	if t.meterProvider == nil {
		return nil, nil
	}
	return NewFetchMetrics(t.meterProvider)
}

// Shutdown flushes pending spans and metrics. The textfile is written first,
// while the prometheus exporter can still be gathered. A second call is a no-op.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.registry != nil {
		if err := prometheus.WriteToTextfile(t.textfilePath, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics textfile: %w", err))
		} else {
			logger.Infof("Metrics written to %s", t.textfilePath)
		}
		t.registry = nil
	}

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
		t.tracerProvider = nil
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush metrics: %w", err))
		}
		t.meterProvider = nil
	}

	return errors.Join(errs...)
}
