package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// metricsPushInterval applies to the OTLP exporter. Most runs end sooner and
// are pushed once, on shutdown.
const metricsPushInterval = 30 * time.Second

// newMeterProvider builds the provider for the configured exporter. The
// registry is only returned for the prometheus exporter, which is pull based
// and is gathered into the textfile on shutdown.
func newMeterProvider(
	ctx context.Context, cfg *Config, res *resource.Resource,
) (*sdkmetric.MeterProvider, *prometheus.Registry, error) {
	var (
		reader   sdkmetric.Reader
		registry *prometheus.Registry
	)

	switch cfg.Metrics.exporter() {
	case MetricsExporterPrometheus:
		registry = prometheus.NewRegistry()
		// target_info would repeat host attributes in every textfile
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry), otelprom.WithoutTargetInfo())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint())}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricsPushInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return mp, registry, nil
}
