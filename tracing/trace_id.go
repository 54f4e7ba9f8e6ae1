package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// GetStartingTraceID returns the trace id of the span in ctx. Without a valid span a
// random id prefixed with "man-" is returned so logs can still be correlated.
func GetStartingTraceID(ctx context.Context) string {
	if ctx != nil {
		if traceID := trace.SpanFromContext(ctx).SpanContext().TraceID(); traceID.IsValid() {
			return traceID.String()
		}
	}
	return "man-" + uuid.NewString()
}
