// Package telemetry provides OpenTelemetry instrumentation for the registry
// backend. Metrics are exported through a Prometheus registry scraped at
// /metrics.
package telemetry

import (
	"fmt"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/prometheus/client_golang/prometheus"
)

// meterProviderConfig holds configuration for the meter provider setup
type meterProviderConfig struct {
	registry *prometheus.Registry
	enabled  bool
}

// MeterProviderOption is a function that configures the meter provider setup
type MeterProviderOption func(*meterProviderConfig)

// WithPrometheusRegistry sets the Prometheus registry metrics are exported to.
func WithPrometheusRegistry(registry *prometheus.Registry) MeterProviderOption {
	return func(c *meterProviderConfig) {
		c.registry = registry
	}
}

// WithMetricsEnabled toggles metrics collection. When disabled a no-op
// provider is returned.
func WithMetricsEnabled(enabled bool) MeterProviderOption {
	return func(c *meterProviderConfig) {
		c.enabled = enabled
	}
}

// NewMeterProvider creates an OpenTelemetry MeterProvider backed by a
// Prometheus exporter. When metrics are disabled it returns a no-op provider,
// so callers never need to nil-check.
func NewMeterProvider(opts ...MeterProviderOption) (metric.MeterProvider, error) {
	cfg := &meterProviderConfig{enabled: true}
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.enabled {
		return noop.NewMeterProvider(), nil
	}

	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(cfg.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}
