package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/draftforge/draftforge"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Ledger metrics
	CreditsPurchasedTotal   metric.Int64Counter
	CreditsChargedTotal     metric.Int64Counter
	CreditsTransferredTotal metric.Int64Counter
	UsageLogsTotal          metric.Int64Counter

	// Generator metrics
	GenerationsTotal      metric.Int64Counter
	GenerationErrorsTotal metric.Int64Counter
	GenerationDuration    metric.Float64Histogram

	// HTTP metrics
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Ledger metrics
	m.CreditsPurchasedTotal, _ = meter.Int64Counter(
		"draftforge.credits.purchased.total",
		metric.WithDescription("Total number of credits added through package purchases"),
		metric.WithUnit("{credit}"),
	)

	m.CreditsChargedTotal, _ = meter.Int64Counter(
		"draftforge.credits.charged.total",
		metric.WithDescription("Total number of credits charged for successful tool runs"),
		metric.WithUnit("{credit}"),
	)

	m.CreditsTransferredTotal, _ = meter.Int64Counter(
		"draftforge.credits.transferred.total",
		metric.WithDescription("Total number of credits moved between organization accounts"),
		metric.WithUnit("{credit}"),
	)

	m.UsageLogsTotal, _ = meter.Int64Counter(
		"draftforge.usage_logs.total",
		metric.WithDescription("Total number of usage log rows written, by status"),
		metric.WithUnit("{log}"),
	)

	// Generator metrics
	m.GenerationsTotal, _ = meter.Int64Counter(
		"draftforge.generations.total",
		metric.WithDescription("Total number of text generation attempts"),
		metric.WithUnit("{generation}"),
	)

	m.GenerationErrorsTotal, _ = meter.Int64Counter(
		"draftforge.generations.errors.total",
		metric.WithDescription("Total number of failed text generation attempts"),
		metric.WithUnit("{error}"),
	)

	m.GenerationDuration, _ = meter.Float64Histogram(
		"draftforge.generations.duration",
		metric.WithDescription("Duration of text generation calls"),
		metric.WithUnit("ms"),
	)

	// HTTP metrics
	m.RequestsTotal, _ = meter.Int64Counter(
		"draftforge.http.requests.total",
		metric.WithDescription("Total number of HTTP requests handled"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"draftforge.http.requests.duration",
		metric.WithDescription("Duration of HTTP request handling"),
		metric.WithUnit("ms"),
	)

	return m
}
