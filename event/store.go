package event

import (
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
)

const (
	// CodeUnknownEvent is returned when a metadata accessor gets a value that was not
	// produced by a Factory.
	CodeUnknownEvent = "UNKNOWN_EVENT"
)

// Lookup returns the metadata of cb, which must be an event produced by a Factory.
func Lookup(cb callback.Callback) (Metadata, error) {
	e, err := asEvent(cb)
	if err != nil {
		return Metadata{}, err
	}
	return e.Metadata(), nil
}

// Unwrapped returns the original callback of the event cb.
func Unwrapped(cb callback.Callback) (callback.Callback, error) {
	e, err := asEvent(cb)
	if err != nil {
		return nil, err
	}
	return e.original, nil
}

// Wrappers returns the wrapper snapshot of the event cb.
func Wrappers(cb callback.Callback) ([]callback.Wrapper, error) {
	e, err := asEvent(cb)
	if err != nil {
		return nil, err
	}
	return e.Wrappers(), nil
}

// ObjectID returns the unique id of the event cb.
func ObjectID(cb callback.Callback) (uint64, error) {
	e, err := asEvent(cb)
	if err != nil {
		return 0, err
	}
	return e.id, nil
}

// IsEvent reports whether cb was produced by a Factory.
func IsEvent(cb callback.Callback) bool {
	_, err := asEvent(cb)
	return err == nil
}

func asEvent(cb callback.Callback) (*Event, error) {
	e, ok := cb.(*Event)
	if !ok || !e.valid() {
		return nil, errx.New(
			"[event]: unknown or invalid event",
			errx.WithCode(CodeUnknownEvent),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"callback_type": typeOf(cb)}),
		)
	}
	return e, nil
}

func typeOf(v any) string {
	return fmt.Sprintf("%T", v)
}
