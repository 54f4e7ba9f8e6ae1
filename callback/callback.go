// Package callback defines the callable shape shared by every evwrap package.
//
// A Callback is anything an event loop can invoke. A Wrapper transforms one Callback into
// another, which is how cross-cutting behavior (timing, logging, tracing) is layered onto
// callbacks without touching the code that registers them.
package callback

import (
	"context"

	"github.com/code19m/errx"
)

const (
	// CodeNilWrapperResult is returned when a wrapper produces a nil callback.
	CodeNilWrapperResult = "NIL_WRAPPER_RESULT"
)

// Callback is a function registered with an external event loop.
type Callback interface {
	// Invoke runs the callback with the arguments supplied by the caller.
	Invoke(ctx context.Context, args ...any) (any, error)
}

// Func adapts an ordinary function to the Callback interface.
type Func func(ctx context.Context, args ...any) (any, error)

// Invoke calls f(ctx, args...).
func (f Func) Invoke(ctx context.Context, args ...any) (any, error) {
	return f(ctx, args...)
}

// Wrapper decorates a callback with additional behavior.
//
// The returned callback normally does some work, delegates to next, and does some more work.
type Wrapper func(next Callback) Callback

// Compose folds wrappers over raw in reverse order so that the first wrapper becomes the
// outermost layer. Declaration order equals outer-to-inner execution order:
//
//	Compose(f, w1, w2) == w1(w2(f))
//
// Nil wrappers are skipped. Panics raised by a wrapper are not recovered.
func Compose(raw Callback, wrappers ...Wrapper) (Callback, error) {
	current := raw
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] == nil {
			continue
		}

		current = wrappers[i](current)
		if current == nil {
			return nil, errx.New(
				"[callback]: wrapper returned nil callback",
				errx.WithCode(CodeNilWrapperResult),
				errx.WithDetails(errx.D{"wrapper_index": i}),
			)
		}
	}
	return current, nil
}
