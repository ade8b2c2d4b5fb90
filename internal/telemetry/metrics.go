package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/pricorephp/pricore/sync"
)

// SyncMetrics holds the OpenTelemetry instruments for sync run metrics
type SyncMetrics struct {
	runsTotal       metric.Int64Counter
	runDuration     metric.Float64Histogram
	unitOutcomes    metric.Int64Counter
	versionsRemoved metric.Int64Counter
	refsDiscovered  metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runsTotal, err := meter.Int64Counter(
		"pricore_sync_runs_total",
		metric.WithDescription("Total number of completed sync runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"pricore_sync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	unitOutcomes, err := meter.Int64Counter(
		"pricore_sync_unit_outcomes_total",
		metric.WithDescription("Terminal outcomes of per-ref sync units"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, err
	}

	versionsRemoved, err := meter.Int64Counter(
		"pricore_sync_versions_removed_total",
		metric.WithDescription("Package versions removed because their ref disappeared"),
		metric.WithUnit("{version}"),
	)
	if err != nil {
		return nil, err
	}

	refsDiscovered, err := meter.Int64Counter(
		"pricore_sync_refs_discovered_total",
		metric.WithDescription("Refs discovered during sync runs"),
		metric.WithUnit("{ref}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		unitOutcomes:    unitOutcomes,
		versionsRemoved: versionsRemoved,
		refsDiscovered:  refsDiscovered,
	}, nil
}

// RecordRun records a completed sync run with its final status and duration
func (m *SyncMetrics) RecordRun(ctx context.Context, repository string, success bool, duration time.Duration) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("repository", repository),
		attribute.Bool("success", success),
	}

	m.runsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordUnitOutcome records one terminal per-ref unit outcome
func (m *SyncMetrics) RecordUnitOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.unitOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordVersionsRemoved records versions deleted by the stale version reaper
func (m *SyncMetrics) RecordVersionsRemoved(ctx context.Context, repository string, count int64) {
	if m == nil || count == 0 {
		return
	}

	m.versionsRemoved.Add(ctx, count, metric.WithAttributes(
		attribute.String("repository", repository),
	))
}

// RecordRefsDiscovered records the number of refs discovered in a run
func (m *SyncMetrics) RecordRefsDiscovered(ctx context.Context, repository string, count int64) {
	if m == nil {
		return
	}

	m.refsDiscovered.Add(ctx, count, metric.WithAttributes(
		attribute.String("repository", repository),
	))
}
