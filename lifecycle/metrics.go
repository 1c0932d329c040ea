package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the scheduler's operational metrics
type Metrics struct {
	schedules      metric.Int64UpDownCounter
	actionRuns     metric.Int64Counter
	actionDuration metric.Float64Histogram
	orphansFound   metric.Int64Gauge
	cleanups       metric.Int64Counter
	reclaimedCost  metric.Float64Counter
	sweepDuration  metric.Float64Histogram
}

// NewMetrics creates the scheduler metrics on the global meter
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("vahti.lifecycle")

	schedules, err := meter.Int64UpDownCounter(
		"vahti.schedules",
		metric.WithDescription("Number of registered schedules"),
		metric.WithUnit("{schedule}"),
	)
	if err != nil {
		return nil, err
	}

	actionRuns, err := meter.Int64Counter(
		"vahti.action.runs",
		metric.WithDescription("Number of scheduled action firings"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	actionDuration, err := meter.Float64Histogram(
		"vahti.action.duration",
		metric.WithDescription("Duration of scheduled action executions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	orphansFound, err := meter.Int64Gauge(
		"vahti.orphans.found",
		metric.WithDescription("Orphaned resources found by the last scan"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	cleanups, err := meter.Int64Counter(
		"vahti.cleanups",
		metric.WithDescription("Orphaned resources cleaned up"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	reclaimedCost, err := meter.Float64Counter(
		"vahti.reclaimed.monthly_cost",
		metric.WithDescription("Monthly cost reclaimed by cleanups"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, err
	}

	sweepDuration, err := meter.Float64Histogram(
		"vahti.sweep.duration",
		metric.WithDescription("Duration of background sweeps"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		schedules:      schedules,
		actionRuns:     actionRuns,
		actionDuration: actionDuration,
		orphansFound:   orphansFound,
		cleanups:       cleanups,
		reclaimedCost:  reclaimedCost,
		sweepDuration:  sweepDuration,
	}, nil
}

// RecordScheduleChange tracks registrations and cancellations
func (m *Metrics) RecordScheduleChange(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.schedules.Add(ctx, delta)
}

// RecordActionRun tracks one schedule firing
func (m *Metrics) RecordActionRun(ctx context.Context, action, result string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("result", result),
	)
	m.actionRuns.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, seconds, attrs)
}

// RecordScan tracks one reconciled orphan scan
func (m *Metrics) RecordScan(ctx context.Context, found int) {
	if m == nil {
		return
	}
	m.orphansFound.Record(ctx, int64(found))
}

// RecordCleanup tracks one destroyed orphan
func (m *Metrics) RecordCleanup(ctx context.Context, resourceKind string, monthlyCost float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("resource_kind", resourceKind))
	m.cleanups.Add(ctx, 1, attrs)
	m.reclaimedCost.Add(ctx, monthlyCost, attrs)
}

// RecordSweep tracks one background sweep pass
func (m *Metrics) RecordSweep(ctx context.Context, sweep string, seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("sweep", sweep)))
}
