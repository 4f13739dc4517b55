package order

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/xenking/bookbazaar/internal/domain/order"

type telemetry struct {
	tracer      trace.Tracer
	placed      metric.Int64Counter
	transitions metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) telemetry {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	placed, err := meter.Int64Counter("bazaar.orders.placed",
		metric.WithDescription("Orders successfully placed"),
	)
	if err != nil {
		placed = metricnoop.Int64Counter{}
	}
	transitions, err := meter.Int64Counter("bazaar.orders.transitions",
		metric.WithDescription("Order status transitions by target status"),
	)
	if err != nil {
		transitions = metricnoop.Int64Counter{}
	}

	return telemetry{
		tracer:      tp.Tracer(instrumentationName),
		placed:      placed,
		transitions: transitions,
	}
}
