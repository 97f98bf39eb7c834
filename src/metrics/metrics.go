// Package metrics records timed observability events.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DockerPush is the event recorded once per successful push.
const DockerPush = "docker push"

const meterName = "github.com/sofmeright/dockpush"

var eventKey = attribute.Key("event")

// Recorder records named events with their duration.
type Recorder interface {
	TimedEvent(ctx context.Context, name string, elapsed time.Duration)
}

// OTel records events as an OpenTelemetry counter and duration histogram,
// both keyed by an "event" attribute.
type OTel struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTel creates instruments on mp. A nil provider uses the global one.
func NewOTel(mp metric.MeterProvider) (*OTel, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	count, err := meter.Int64Counter("dockpush.events",
		metric.WithDescription("Completed operations by event name."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("dockpush.event.duration",
		metric.WithDescription("Duration of completed operations."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &OTel{count: count, duration: duration}, nil
}

// TimedEvent implements Recorder.
func (o *OTel) TimedEvent(ctx context.Context, name string, elapsed time.Duration) {
	attrs := metric.WithAttributes(eventKey.String(name))
	o.count.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Nop discards events.
type Nop struct{}

// TimedEvent implements Recorder.
func (Nop) TimedEvent(context.Context, string, time.Duration) {}
