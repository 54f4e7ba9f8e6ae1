// Package chain keeps the ordered list of wrappers applied to newly created events.
//
// The active chain seen by a caller is the process-wide base chain followed by every scoped
// override carried by the caller's context, in push order. The base chain is shared and
// mutex guarded; scoped overrides live in the context and are therefore local to the
// execution path that pushed them.
package chain

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/samber/lo"
)

// Handle identifies a single Add call on a Chain. Handles are comparable and never reused.
type Handle struct {
	id uint64
}

// IsZero reports whether h was never returned by Add.
func (h Handle) IsZero() bool {
	return h.id == 0
}

type entry struct {
	handle  Handle
	wrapper callback.Wrapper
}

// Chain is a base chain of wrappers. The zero value is not usable, use New.
type Chain struct {
	mu      sync.RWMutex
	entries []entry
}

//nolint:gochecknoglobals // process-wide base chain and handle sequence
var (
	defaultChain = New()
	handleSeq    atomic.Uint64
)

// New creates an empty chain.
func New() *Chain {
	return &Chain{}
}

// Default returns the process-wide base chain.
func Default() *Chain {
	return defaultChain
}

// Add appends w to the base chain and returns a handle for Remove.
// The same wrapper may be added several times; each Add gets its own handle.
func (c *Chain) Add(w callback.Wrapper) Handle {
	h := Handle{id: handleSeq.Add(1)}

	c.mu.Lock()
	c.entries = append(c.entries, entry{handle: h, wrapper: w})
	c.mu.Unlock()

	return h
}

// Remove drops the wrapper added under h. Removing an unknown handle is a no-op.
// Events created before the removal keep their own snapshot and are not affected.
func (c *Chain) Remove(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = lo.Filter(c.entries, func(e entry, _ int) bool {
		return e.handle != h
	})
}

// Len returns the number of wrappers in the base chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Base returns a consistent copy of the base chain.
func (c *Chain) Base() []callback.Wrapper {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return lo.Map(c.entries, func(e entry, _ int) callback.Wrapper {
		return e.wrapper
	})
}

// Current returns the base chain followed by the scoped overrides active in ctx,
// in application order. The result is a fresh slice owned by the caller.
func (c *Chain) Current(ctx context.Context) []callback.Wrapper {
	return append(c.Base(), Scoped(ctx)...)
}

// Add appends w to the default chain.
func Add(w callback.Wrapper) Handle {
	return defaultChain.Add(w)
}

// Remove drops h from the default chain.
func Remove(h Handle) {
	defaultChain.Remove(h)
}

// Current returns the default chain plus the scoped overrides active in ctx.
func Current(ctx context.Context) []callback.Wrapper {
	return defaultChain.Current(ctx)
}
