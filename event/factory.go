package event

import (
	"context"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/chain"
	"github.com/samber/lo"
)

const (
	// CodeNilCallback is returned when Wrap is called without a callback.
	CodeNilCallback = "NIL_CALLBACK"
)

//nolint:gochecknoglobals // ids are unique across every factory in the process
var idSeq atomic.Uint64

// Factory wraps raw callbacks with the chain that is active at call time.
type Factory struct {
	chain *chain.Chain
}

//nolint:gochecknoglobals // factory bound to the default chain
var defaultFactory = NewFactory(chain.Default())

// NewFactory creates a factory reading its base chain from c.
func NewFactory(c *chain.Chain) *Factory {
	return &Factory{chain: c}
}

// DefaultFactory returns the factory bound to chain.Default.
func DefaultFactory() *Factory {
	return defaultFactory
}

// Chain returns the base chain the factory reads from.
func (f *Factory) Chain() *chain.Chain {
	return f.chain
}

// Wrap builds an event around raw.
//
// The chain is read once, from the base chain and the scoped overrides in ctx. Nil
// wrappers are dropped and the rest is stored as the event's snapshot. The first
// wrapper of the chain becomes the outermost layer. When the chain is empty the event is a
// plain forwarding indirection to raw. Later chain changes never affect the returned event.
//
// On error no event is produced and no id is consumed. Panics raised by wrappers propagate.
func (f *Factory) Wrap(ctx context.Context, raw callback.Callback) (*Event, error) {
	if raw == nil {
		return nil, errx.New("[event]: callback is nil", errx.WithCode(CodeNilCallback))
	}

	snapshot := lo.Filter(f.chain.Current(ctx), func(w callback.Wrapper, _ int) bool {
		return w != nil
	})

	composed, err := callback.Compose(raw, snapshot...)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &Event{
		id:       idSeq.Add(1),
		name:     callback.NameOf(raw),
		original: raw,
		wrappers: snapshot,
		composed: composed,
	}, nil
}

// WrapFunc is Wrap for a plain function.
func (f *Factory) WrapFunc(ctx context.Context, fn callback.Func) (*Event, error) {
	if fn == nil {
		return nil, errx.New("[event]: callback is nil", errx.WithCode(CodeNilCallback))
	}
	return f.Wrap(ctx, fn)
}

// Wrap builds an event with the default factory.
func Wrap(ctx context.Context, raw callback.Callback) (*Event, error) {
	return defaultFactory.Wrap(ctx, raw)
}

// WrapFunc builds an event around fn with the default factory.
func WrapFunc(ctx context.Context, fn callback.Func) (*Event, error) {
	return defaultFactory.WrapFunc(ctx, fn)
}
