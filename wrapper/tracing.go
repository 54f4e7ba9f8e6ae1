package wrapper

import (
	"context"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/meta"
	"github.com/rise-and-shine/evwrap/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingWrapper starts a span around every invocation.
type TracingWrapper struct {
	tracer trace.Tracer
	next   callback.Callback
}

// NewTracing returns a wrapper tracing invocations with the global tracer provider.
func NewTracing() callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &TracingWrapper{
			tracer: otel.Tracer(tracing.InstrumentationName),
			next:   next,
		}
	}
}

// Name returns the name of the wrapped callback.
func (w *TracingWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *TracingWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx = orBackground(ctx)
	ctx, span := w.tracer.Start(ctx, w.Name(),
		trace.WithAttributes(
			attribute.Int("evwrap.args", len(args)),
			attribute.String("evwrap.event_id", meta.Find(ctx, meta.EventID)),
		),
	)
	defer span.End()

	result, err := w.next.Invoke(ctx, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}
