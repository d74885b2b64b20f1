package observability

import (
	"context"
	"time"

	"agritrust-workers/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records scoring and job events as OpenTelemetry metrics.
// With the Prometheus exporter they are served on the same /metrics endpoint
// as the client_golang collectors.
type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	evaluations   otelmetric.Int64Counter
	evalLatency   otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, otel metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}

	o := NewWithReader(serviceName, exporter)
	otel.SetMeterProvider(o.meterProvider)
	return o
}

// NewWithReader builds the instruments on top of an arbitrary reader.
func NewWithReader(serviceName string, reader metric.Reader) *Observability {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	evaluations, _ := meter.Int64Counter(
		"scoring.evaluations",
		otelmetric.WithDescription("Credit evaluations by risk category and decision"),
	)
	evalLatency, _ := meter.Float64Histogram(
		"scoring.latency",
		otelmetric.WithDescription("Inference plus scoring latency"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		evaluations:   evaluations,
		evalLatency:   evalLatency,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
		))
	}
}

// RecordEvaluation is called once per scored application.
func (o *Observability) RecordEvaluation(ctx context.Context, category string, approved bool, latency time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("risk_category", category),
		attribute.Bool("approved", approved),
	)
	if o.evaluations != nil {
		o.evaluations.Add(ctx, 1, attrs)
	}
	if o.evalLatency != nil {
		o.evalLatency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
