package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/layer-3/turnstile"
)

// Metrics holds the OpenTelemetry instruments used by the gate
type Metrics struct {
	VerdictsTotal       metric.Int64Counter
	SessionsIssuedTotal metric.Int64Counter
	StoreErrorsTotal    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// NewMetrics creates the instruments on the given meter
func NewMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.VerdictsTotal, _ = meter.Int64Counter(
		"turnstile.auth.verdicts.total",
		metric.WithDescription("Total number of authentication verdicts"),
		metric.WithUnit("{verdict}"),
	)

	m.SessionsIssuedTotal, _ = meter.Int64Counter(
		"turnstile.sessions.issued.total",
		metric.WithDescription("Total number of session records minted"),
		metric.WithUnit("{session}"),
	)

	m.StoreErrorsTotal, _ = meter.Int64Counter(
		"turnstile.store.errors.total",
		metric.WithDescription("Total number of credential store failures"),
		metric.WithUnit("{error}"),
	)

	return m
}

// RecordVerdict counts a verdict by outcome and reason
func (m *Metrics) RecordVerdict(ctx context.Context, verified bool, reason string) {
	m.VerdictsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("verified", verified),
		attribute.String("reason", reason),
	))
}

// RecordStoreError counts a failed store operation
func (m *Metrics) RecordStoreError(ctx context.Context, operation string) {
	m.StoreErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
