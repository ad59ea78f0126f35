// Package telemetry reports episode metrics through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"github.com/beka-birhanu/ohrace/sim"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricEpisodes   = "ohrace.episodes"
	MetricTicks      = "ohrace.episode.ticks"
	MetricExpansions = "ohrace.episode.expansions"
	MetricRuntime    = "ohrace.episode.runtime"
	MetricCollisions = "ohrace.collisions"
	MetricMoves      = "ohrace.moves"
)

// Recorder is a sim.Recorder that turns records into metrics. A Recorder
// built without a meter records nothing. It is safe for concurrent use.
type Recorder struct {
	episodes   metric.Int64Counter
	ticks      metric.Int64Histogram
	expansions metric.Int64Histogram
	runtime    metric.Float64Histogram
	collisions metric.Int64Counter
	moves      metric.Int64Counter
}

// NewRecorder creates the instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		return &Recorder{}, nil
	}

	r := &Recorder{}
	var err error
	if r.episodes, err = meter.Int64Counter(MetricEpisodes,
		metric.WithDescription("Finished episodes by algorithm and outcome"),
		metric.WithUnit("{episode}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create episodes counter: %w", err)
	}
	if r.ticks, err = meter.Int64Histogram(MetricTicks,
		metric.WithDescription("Ticks until an episode ended"),
		metric.WithUnit("{tick}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ticks histogram: %w", err)
	}
	if r.expansions, err = meter.Int64Histogram(MetricExpansions,
		metric.WithDescription("Search expansions spent in an episode"),
		metric.WithUnit("{expansion}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create expansions histogram: %w", err)
	}
	if r.runtime, err = meter.Float64Histogram(MetricRuntime,
		metric.WithDescription("Wall time of an episode"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create runtime histogram: %w", err)
	}
	if r.collisions, err = meter.Int64Counter(MetricCollisions,
		metric.WithDescription("Denied moves"),
		metric.WithUnit("{collision}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create collisions counter: %w", err)
	}
	if r.moves, err = meter.Int64Counter(MetricMoves,
		metric.WithDescription("Granted moves"),
		metric.WithUnit("{move}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create moves counter: %w", err)
	}
	return r, nil
}

func (r *Recorder) RecordStep(ctx context.Context, s sim.StepRecord) error {
	if r.moves == nil {
		return nil
	}
	byAlgorithm := make(map[string][2]int64)
	for _, a := range s.Agents {
		n := byAlgorithm[a.Algorithm]
		if a.Moved {
			n[0]++
		}
		if a.Collided {
			n[1]++
		}
		byAlgorithm[a.Algorithm] = n
	}
	for algorithm, n := range byAlgorithm {
		attrs := metric.WithAttributes(attribute.String("algorithm", algorithm))
		if n[0] > 0 {
			r.moves.Add(ctx, n[0], attrs)
		}
		if n[1] > 0 {
			r.collisions.Add(ctx, n[1], attrs)
		}
	}
	return nil
}

func (r *Recorder) RecordEpisode(ctx context.Context, e sim.EpisodeRecord) error {
	if r.episodes == nil {
		return nil
	}
	algorithm := attribute.String("algorithm", e.Algorithm)
	r.episodes.Add(ctx, 1, metric.WithAttributes(algorithm, attribute.String("outcome", e.Outcome.String())))

	attrs := metric.WithAttributes(algorithm)
	r.ticks.Record(ctx, int64(e.Ticks), attrs)
	r.expansions.Record(ctx, int64(e.Expansions), attrs)
	r.runtime.Record(ctx, float64(e.Runtime.Microseconds())/1000, attrs)
	return nil
}
