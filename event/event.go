// Package event turns raw callbacks into wrapped events.
//
// An Event is the callback handed to the external event loop. It carries its own metadata:
// a process-wide unique id, the original callback and the exact wrapper chain used to build
// it. Because the metadata is part of the event value it is released together with the
// event and never keeps the event or the original callback alive on its own.
package event

import (
	"context"
	"slices"
	"strconv"

	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/meta"
)

// Event is a wrapped callback produced by a Factory.
type Event struct {
	id       uint64
	name     string
	original callback.Callback
	wrappers []callback.Wrapper
	composed callback.Callback
}

// Metadata describes how an Event was built.
type Metadata struct {
	// ID is unique across the process and increases with creation order.
	ID uint64
	// Original is the callback passed to Wrap.
	Original callback.Callback
	// Wrappers is the chain that was active when the event was created, outermost first.
	Wrappers []callback.Wrapper
}

// Invoke runs the composed callback. The event id and name are added to the context
// under meta.EventID and meta.EventName.
func (e *Event) Invoke(ctx context.Context, args ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{ //nolint:exhaustive // event keys only
		meta.EventID:   strconv.FormatUint(e.id, 10),
		meta.EventName: e.name,
	})

	return e.composed.Invoke(ctx, args...)
}

// ID returns the event id.
func (e *Event) ID() uint64 {
	return e.id
}

// Unwrapped returns the callback the event was created from.
func (e *Event) Unwrapped() callback.Callback {
	return e.original
}

// Wrappers returns a copy of the wrapper snapshot taken at creation time.
func (e *Event) Wrappers() []callback.Wrapper {
	return slices.Clone(e.wrappers)
}

// Metadata returns the event metadata.
func (e *Event) Metadata() Metadata {
	return Metadata{
		ID:       e.id,
		Original: e.original,
		Wrappers: e.Wrappers(),
	}
}

// Name returns the name of the original callback.
func (e *Event) Name() string {
	return e.name
}

func (e *Event) valid() bool {
	return e != nil && e.id != 0 && e.composed != nil
}
