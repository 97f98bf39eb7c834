package metrics

import (
	"context"
	"fmt"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider is an SDK meter provider whose readings are collected on demand,
// for a process that reports its own events at exit.
type Provider struct {
	*sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// NewProvider creates a Provider backed by a manual reader.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		reader:        reader,
	}
}

// Total aggregates every recording of one event.
type Total struct {
	Event   string
	Count   int64
	Seconds float64
}

// Totals collects the events recorded through OTel instruments on p,
// sorted by event name.
func (p *Provider) Totals(ctx context.Context) ([]Total, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	byEvent := map[string]*Total{}
	total := func(name string) *Total {
		t, ok := byEvent[name]
		if !ok {
			t = &Total{Event: name}
			byEvent[name] = t
		}
		return t
	}

	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if v, ok := dp.Attributes.Value(eventKey); ok {
						total(v.AsString()).Count += dp.Value
					}
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					if v, ok := dp.Attributes.Value(eventKey); ok {
						total(v.AsString()).Seconds += dp.Sum
					}
				}
			}
		}
	}

	out := make([]Total, 0, len(byEvent))
	for _, t := range byEvent {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out, nil
}
