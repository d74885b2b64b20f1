package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordEvaluation(t *testing.T) {
	reader := metric.NewManualReader()
	o := NewWithReader("test", reader)
	defer o.Shutdown()

	ctx := context.Background()
	o.RecordEvaluation(ctx, "Low Risk", true, 3*time.Millisecond)
	o.RecordEvaluation(ctx, "Low Risk", true, 5*time.Millisecond)
	o.RecordEvaluation(ctx, "High Risk", false, 4*time.Millisecond)

	metrics := collect(t, reader)

	evals, ok := metrics["scoring.evaluations"]
	require.True(t, ok)
	sum, ok := evals.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, sum.DataPoints, 2)

	latency, ok := metrics["scoring.latency"]
	require.True(t, ok)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestZeroValueIsSafe(t *testing.T) {
	o := &Observability{}
	o.RecordEvaluation(context.Background(), "Low Risk", true, time.Millisecond)
	o.RecordJobProcessed(context.Background(), "evaluate-credit-score", "completed")
	o.RecordJobDuration(context.Background(), "evaluate-credit-score", time.Millisecond)
	o.Shutdown()
}
