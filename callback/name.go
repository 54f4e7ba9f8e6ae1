package callback

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Namer is implemented by callbacks that carry an explicit name.
type Namer interface {
	Name() string
}

type namedCallback struct {
	name string
	next Callback
}

// Named attaches a human-readable name to cb.
func Named(name string, cb Callback) Callback {
	return &namedCallback{name: name, next: cb}
}

func (n *namedCallback) Name() string {
	return n.name
}

func (n *namedCallback) Invoke(ctx context.Context, args ...any) (any, error) {
	return n.next.Invoke(ctx, args...)
}

// NameOf returns a name suitable for logs, span names and metric keys.
//
// Explicit names win. Plain functions are named after their Go symbol and anything else after
// its dynamic type.
func NameOf(cb Callback) string {
	if cb == nil {
		return "nil"
	}

	if n, ok := cb.(Namer); ok {
		return n.Name()
	}

	if f, ok := cb.(Func); ok {
		return funcName(f)
	}

	return typeName(cb)
}

func funcName(f Func) string {
	fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer())
	if fn == nil {
		return "func"
	}

	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func typeName(v any) string {
	fullType := strings.TrimPrefix(fmt.Sprintf("%T", v), "*")

	parts := strings.Split(fullType, ".")
	if len(parts) > 1 {
		return parts[len(parts)-1]
	}

	return fullType
}
