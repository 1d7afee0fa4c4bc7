package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectMetrics flushes the reader and indexes the collected metrics by name.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestSearchMetrics_RecordSearch(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	metrics, err := NewSearchMetrics(meter)
	require.NoError(t, err)

	metrics.RecordSearch(context.Background(), "search", 7, 250*time.Millisecond)

	collected := collectMetrics(t, reader)

	requests, ok := collected[MetricNameSearchRequests].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	assert.Equal(t, int64(1), requests.DataPoints[0].Value)

	results, ok := collected[MetricNameSearchResults].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, results.DataPoints, 1)
	assert.Equal(t, uint64(1), results.DataPoints[0].Count)
	assert.Equal(t, int64(7), results.DataPoints[0].Sum)

	intent, ok := results.DataPoints[0].Attributes.Value(attribute.Key(AttrIntent))
	require.True(t, ok)
	assert.Equal(t, "search", intent.AsString())
}

func TestSearchMetrics_NilMeter(t *testing.T) {
	metrics, err := NewSearchMetrics(nil)

	require.NoError(t, err)
	assert.Nil(t, metrics)
}
