package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used for JWKS spans.
const InstrumentationName = "github.com/kidwatch/jwks-strategy"

// Span attribute keys.
const (
	AttrSource   = "jwks.source"
	AttrURL      = "jwks.url"
	AttrAttempts = "jwks.fetch.attempts"
	AttrOutcome  = "jwks.fetch.outcome"
	AttrKeys     = "jwks.keys"
)

// Tracer returns the JWKS tracer from tp, falling back to the global
// provider when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}
