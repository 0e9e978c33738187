// Package telemetry wraps OpenTelemetry spans around the dispatch loop's
// upstream attempts. Exporting
// those spans anywhere is a deployment concern outside the core; by default
// the tracer is a no-op so the core never depends on a configured exporter.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies this module's spans in any attached exporter.
const TracerName = "relaygate-gateway"

// Settings toggles whether real spans are recorded.
type Settings struct {
	IsEnabled bool
	Tracer    trace.Tracer
}

// GetTracer returns a no-op tracer when settings is nil or not enabled;
// otherwise settings.Tracer if set, else the global tracer.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if settings.Tracer != nil {
		return settings.Tracer
	}
	return otel.Tracer(TracerName)
}
