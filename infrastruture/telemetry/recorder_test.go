package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, agg metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	step := sim.StepRecord{
		EpisodeID: uuid.New(),
		Tick:      1,
		Agents: []sim.AgentStep{
			{AgentID: 0, Algorithm: "astar", Moved: true},
			{AgentID: 1, Algorithm: "astar", Collided: true},
			{AgentID: 2, Algorithm: "bfs", Collided: true},
		},
	}
	episode := sim.EpisodeRecord{
		EpisodeID:  step.EpisodeID,
		Algorithm:  sim.MixedAlgorithms,
		Outcome:    sim.StateSuccess,
		Ticks:      14,
		Expansions: 120,
		Runtime:    2500 * time.Microsecond,
		Success:    true,
	}

	t.Run("records into the sdk", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(ctx) }()

		r, err := NewRecorder(provider.Meter("ohrace-test"))
		require.NoError(t, err)
		require.NoError(t, r.RecordStep(ctx, step))
		require.NoError(t, r.RecordEpisode(ctx, episode))

		data := collect(t, reader)
		assert.Equal(t, int64(1), sumFor(t, data[MetricMoves], "algorithm", "astar"))
		assert.Equal(t, int64(1), sumFor(t, data[MetricCollisions], "algorithm", "astar"))
		assert.Equal(t, int64(1), sumFor(t, data[MetricCollisions], "algorithm", "bfs"))
		assert.Equal(t, int64(1), sumFor(t, data[MetricEpisodes], "outcome", "SUCCESS"))

		ticks, ok := data[MetricTicks].(metricdata.Histogram[int64])
		require.True(t, ok)
		require.Len(t, ticks.DataPoints, 1)
		assert.Equal(t, uint64(1), ticks.DataPoints[0].Count)
		assert.Equal(t, int64(14), ticks.DataPoints[0].Sum)

		runtime, ok := data[MetricRuntime].(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, runtime.DataPoints, 1)
		assert.InDelta(t, 2.5, runtime.DataPoints[0].Sum, 1e-9)
	})

	t.Run("noop provider", func(t *testing.T) {
		r, err := NewRecorder(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		assert.NoError(t, r.RecordStep(ctx, step))
		assert.NoError(t, r.RecordEpisode(ctx, episode))
	})

	t.Run("nil meter records nothing", func(t *testing.T) {
		r, err := NewRecorder(nil)
		require.NoError(t, err)
		assert.NoError(t, r.RecordStep(ctx, step))
		assert.NoError(t, r.RecordEpisode(ctx, episode))
	})
}
