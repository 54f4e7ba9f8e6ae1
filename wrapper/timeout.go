package wrapper

import (
	"context"
	"time"

	"github.com/rise-and-shine/evwrap/callback"
)

// TimeoutWrapper bounds the context of every invocation.
type TimeoutWrapper struct {
	timeout time.Duration
	next    callback.Callback
}

// NewTimeout returns a wrapper giving each invocation a context deadline of timeout.
func NewTimeout(timeout time.Duration) callback.Wrapper {
	return func(next callback.Callback) callback.Callback {
		return &TimeoutWrapper{timeout: timeout, next: next}
	}
}

// Name returns the name of the wrapped callback.
func (w *TimeoutWrapper) Name() string {
	return callback.NameOf(w.next)
}

func (w *TimeoutWrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	ctx, cancel := context.WithTimeout(orBackground(ctx), w.timeout)
	defer cancel()

	return w.next.Invoke(ctx, args...)
}

// orBackground lets wrappers be invoked directly with a nil context.
func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
