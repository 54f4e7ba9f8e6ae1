package wrapper

import (
	"context"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/meta"
	"github.com/rise-and-shine/evwrap/tracing"
)

// MetaInjectWrapper adds trace and service metadata to the invocation context.
type MetaInjectWrapper struct {
	next callback.Callback
}

// NewMetaInject returns a wrapper injecting trace id and service info into the context.
// An existing trace id in the context is kept.
func NewMetaInject() callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &MetaInjectWrapper{next: next}
	}
}

// Name returns the name of the wrapped callback.
func (w *MetaInjectWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *MetaInjectWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx = orBackground(ctx)
	traceID := meta.Find(ctx, meta.TraceID)
	if traceID == "" {
		traceID = tracing.GetStartingTraceID(ctx)
	}

	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{ //nolint:exhaustive // event keys are set by the event
		meta.TraceID:        traceID,
		meta.ServiceName:    meta.GetServiceName(),
		meta.ServiceVersion: meta.GetServiceVersion(),
	})

	return w.next.Invoke(ctx, args...)
}
