// Package telemetry exports traces and metrics of fetch runs. Traces go to an
// OTLP collector. Metrics go either to the collector or, for runs started by
// cron, to a Prometheus textfile picked up by node_exporter.
package telemetry

import (
	"cmp"
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies the fetcher when serviceName is unset
	DefaultServiceName = "sourcefetch"

	// DefaultEndpoint is the OTLP/HTTP collector address used when endpoint is unset
	DefaultEndpoint = "localhost:4318"
)

// Metrics exporters
const (
	MetricsExporterOTLP       = "otlp"
	MetricsExporterPrometheus = "prometheus"
)

// Config is the telemetry section of a source list
type Config struct {
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "sourcefetch"
	ServiceName string `yaml:"serviceName,omitempty"`

	// Endpoint is the collector's host:port
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends to the collector over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig switches span export on
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the fraction of runs traced, between 0 and 1.
	// Zero traces every run.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig selects where fetch metrics go
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp" (the default) or "prometheus"
	Exporter string `yaml:"exporter,omitempty"`

	// TextfilePath is the file the prometheus exporter writes at the end of a run
	TextfilePath string `yaml:"textfilePath,omitempty"`
}

func (c *Config) tracingOn() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsOn() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

func (c *Config) serviceName() string {
	return cmp.Or(c.ServiceName, DefaultServiceName)
}

func (c *Config) endpoint() string {
	return cmp.Or(c.Endpoint, DefaultEndpoint)
}

func (c *MetricsConfig) exporter() string {
	return cmp.Or(c.Exporter, MetricsExporterOTLP)
}

// Validate checks the sections that are switched on. A disabled section is
// never inspected.
func (c *Config) Validate() error {
	var errs []error

	if c.tracingOn() {
		if s := c.Tracing.Sampling; s < 0 || s > 1 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %g", s))
		}
	}

	if c.metricsOn() {
		switch c.Metrics.exporter() {
		case MetricsExporterOTLP:
		case MetricsExporterPrometheus:
			if c.Metrics.TextfilePath == "" {
				errs = append(errs, errors.New("metrics: textfilePath is required for the prometheus exporter"))
			}
		default:
			errs = append(errs, fmt.Errorf("metrics: unsupported exporter %q", c.Metrics.Exporter))
		}
	}

	return errors.Join(errs...)
}
