// Package binder creates events that call a method on an object.
//
// The method is resolved once, when the event is bound. The resulting event holds a direct
// reference to the resolved method, so later changes to the object have no effect on it and
// no lookup happens on invocation.
package binder

import (
	"context"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/event"
)

const (
	// CodeMethodNotFound is returned when the method cannot be resolved on the object.
	CodeMethodNotFound = "METHOD_NOT_FOUND"

	// CodeInvalidArguments is returned when a bound method is invoked with arguments
	// that do not match its signature.
	CodeInvalidArguments = "INVALID_ARGUMENTS"
)

// Resolver looks up a method on an object and returns a callback invoking it.
//
// method is either a method name or a method expression such as (*T).M.
type Resolver interface {
	Resolve(object, method any) (callback.Callback, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(object, method any) (callback.Callback, error)

// Resolve calls f(object, method).
func (f ResolverFunc) Resolve(object, method any) (callback.Callback, error) {
	return f(object, method)
}

// Binder binds methods to events through a Factory.
type Binder struct {
	factory  *event.Factory
	resolver Resolver
}

// Option configures a Binder.
type Option func(*Binder)

// WithResolver replaces the default reflection based resolver.
func WithResolver(r Resolver) Option {
	return func(b *Binder) {
		b.resolver = r
	}
}

// New creates a Binder producing events with f.
func New(f *event.Factory, opts ...Option) *Binder {
	b := &Binder{
		factory:  f,
		resolver: ReflectResolver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind resolves method on object and wraps the result with the chain active in ctx.
//
// Resolution failures are returned before any event is created.
func (b *Binder) Bind(ctx context.Context, object, method any) (*event.Event, error) {
	cb, err := b.resolver.Resolve(object, method)
	if err != nil {
		if errx.IsCodeIn(err, CodeMethodNotFound) {
			return nil, errx.Wrap(err)
		}
		return nil, errx.Wrap(err, errx.WithCode(CodeMethodNotFound))
	}
	if cb == nil {
		return nil, errx.New(
			"[binder]: resolver returned nil callback",
			errx.WithCode(CodeMethodNotFound),
			errx.WithDetails(errx.D{"method": methodLabel(method)}),
		)
	}

	return b.factory.Wrap(ctx, cb)
}

//nolint:gochecknoglobals // binder bound to the default factory
var defaultBinder = New(event.DefaultFactory())

// Bind binds method on object with the default factory.
func Bind(ctx context.Context, object, method any) (*event.Event, error) {
	return defaultBinder.Bind(ctx, object, method)
}
