// Package telemetry configures OpenTelemetry context propagation.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Propagator returns the W3C trace context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// SetupPropagation registers Propagator as the global propagator so inbound
// traceparent headers flow through to published events.
func SetupPropagation() {
	otel.SetTextMapPropagator(Propagator())
}
