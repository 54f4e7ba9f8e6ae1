package chain

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/rise-and-shine/evwrap/callback"
)

type scopeKey struct{}

// frame is one Push. Frames form an immutable list through parent, newest first.
type frame struct {
	parent   *frame
	wrappers []callback.Wrapper
	popped   atomic.Bool
}

func topFrame(ctx context.Context) *frame {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(scopeKey{}).(*frame)
	return f
}

// Push adds wrappers as a scoped override on top of the overrides already carried by ctx.
//
// The override is visible through the returned context and every context derived from it.
// The returned pop func deactivates it; pop is idempotent and must be called, typically
// with defer. Once popped the override is gone even for derived contexts that outlived
// the scope.
func Push(ctx context.Context, wrappers ...callback.Wrapper) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}

	f := &frame{
		parent:   topFrame(ctx),
		wrappers: slices.Clone(wrappers),
	}

	return context.WithValue(ctx, scopeKey{}, f), func() {
		f.popped.Store(true)
	}
}

// Scoped returns the overrides active in ctx in push order, without the base chain.
func Scoped(ctx context.Context) []callback.Wrapper {
	var frames []*frame
	for f := topFrame(ctx); f != nil; f = f.parent {
		if !f.popped.Load() {
			frames = append(frames, f)
		}
	}

	var out []callback.Wrapper
	for i := len(frames) - 1; i >= 0; i-- {
		out = append(out, frames[i].wrappers...)
	}
	return out
}

// Depth returns the number of active scoped overrides in ctx.
func Depth(ctx context.Context) int {
	n := 0
	for f := topFrame(ctx); f != nil; f = f.parent {
		if !f.popped.Load() {
			n++
		}
	}
	return n
}

// With runs fn with wrappers pushed as a scoped override. The override is popped when fn
// returns, returns an error, or panics. Errors and panics from fn propagate unchanged.
func With(ctx context.Context, wrappers []callback.Wrapper, fn func(ctx context.Context) error) error {
	scopedCtx, pop := Push(ctx, wrappers...)
	defer pop()

	return fn(scopedCtx)
}

// WithResult is With for blocks that produce a value.
func WithResult[T any](
	ctx context.Context,
	wrappers []callback.Wrapper,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	scopedCtx, pop := Push(ctx, wrappers...)
	defer pop()

	return fn(scopedCtx)
}
