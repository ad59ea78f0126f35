package telemetry

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Total is one collected series. Counters only fill Sum; histograms fill
// Count and Sum.
type Total struct {
	Name   string
	Labels string // encoded attributes, e.g. "algorithm=astar,outcome=SUCCESS"
	Count  uint64
	Sum    float64
}

func (t Total) String() string {
	if t.Count == 0 {
		return fmt.Sprintf("%s{%s} %g", t.Name, t.Labels, t.Sum)
	}
	return fmt.Sprintf("%s{%s} count=%d mean=%.2f", t.Name, t.Labels, t.Count, t.Sum/float64(t.Count))
}

// Provider is an SDK meter provider read on demand, so a process can report
// what its Recorders measured without an external collector.
type Provider struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider is the provider to install with otel.SetMeterProvider.
func (p *Provider) MeterProvider() metric.MeterProvider { return p.provider }

func (p *Provider) Meter(name string) metric.Meter { return p.provider.Meter(name) }

// Snapshot collects every series recorded so far, sorted by name then labels.
func (p *Provider) Snapshot(ctx context.Context) ([]Total, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	var out []Total
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Total{Name: m.Name, Labels: labels(dp.Attributes), Sum: float64(dp.Value)})
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Total{Name: m.Name, Labels: labels(dp.Attributes), Count: dp.Count, Sum: float64(dp.Sum)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Total{Name: m.Name, Labels: labels(dp.Attributes), Count: dp.Count, Sum: dp.Sum})
				}
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].Labels < out[b].Labels
	})
	return out, nil
}

// Shutdown flushes and stops the provider. Snapshot fails afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

func labels(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
