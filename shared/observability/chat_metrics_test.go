package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestChatMetricsRecordsStreams(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	m, err := NewChatMetrics(mp.Meter("test"))
	require.NoError(t, err)

	m.StreamStarted(ctx)
	m.StreamFinished(ctx, OutcomeCompleted, 3, time.Second)
	m.StreamStarted(ctx)
	m.StreamFinished(ctx, OutcomeFailed, 0, time.Millisecond)
	m.BufferedCall(ctx, OutcomeDegraded)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumValue(t, rm, "chat.streams"))
	assert.Equal(t, int64(0), sumValue(t, rm, "chat.streams.active"))
	assert.Equal(t, int64(3), sumValue(t, rm, "chat.fragments"))
	assert.Equal(t, int64(1), sumValue(t, rm, "chat.buffered"))
}

func TestNilChatMetricsIsNoop(t *testing.T) {
	var m *ChatMetrics
	assert.NotPanics(t, func() {
		m.StreamStarted(context.Background())
		m.StreamFinished(context.Background(), OutcomeCompleted, 1, time.Second)
		m.BufferedCall(context.Background(), OutcomeCompleted)
	})
}

func TestSetupMetricsHandler(t *testing.T) {
	tel, err := Setup(Options{ServiceName: "test", MetricsEnabled: true})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	assert.NotNil(t, tel.MetricsHandler())

	off, err := Setup(Options{ServiceName: "test"})
	require.NoError(t, err)
	assert.Nil(t, off.MetricsHandler())
}
