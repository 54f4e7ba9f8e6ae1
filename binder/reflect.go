package binder

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/callback"
)

//nolint:gochecknoglobals // cached reflect types
var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// ReflectResolver resolves methods with the reflect package.
//
// Methods may take a context.Context as their first parameter, which receives the
// invocation context. Results are mapped as follows: a trailing error becomes the
// error, no other result yields nil, one other result is returned as is and several
// are returned as []any.
type ReflectResolver struct{}

// Resolve implements Resolver.
func (ReflectResolver) Resolve(object, method any) (callback.Callback, error) {
	if object == nil {
		return nil, notFound("object is nil", object, method)
	}

	switch m := method.(type) {
	case string:
		return resolveByName(object, m)
	case nil:
		return nil, notFound("method is nil", object, method)
	default:
		return resolveExpr(object, m)
	}
}

func resolveByName(object any, name string) (callback.Callback, error) {
	fn := reflect.ValueOf(object).MethodByName(name)
	if !fn.IsValid() {
		return nil, notFound("method not found", object, name)
	}

	return callback.Named(typeLabel(object)+"."+name, &boundMethod{fn: fn}), nil
}

func resolveExpr(object, expr any) (callback.Callback, error) {
	fn := reflect.ValueOf(expr)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, notFound("method is neither a name nor a function", object, expr)
	}

	ft := fn.Type()
	recv := reflect.ValueOf(object)
	if ft.NumIn() == 0 || !recv.Type().AssignableTo(ft.In(0)) {
		return nil, notFound("method expression does not accept the object as receiver", object, expr)
	}

	return callback.Named(typeLabel(object)+"."+methodLabel(expr), &boundMethod{fn: fn, recv: recv}), nil
}

// boundMethod is a resolved method. recv is set for method expressions only.
type boundMethod struct {
	fn   reflect.Value
	recv reflect.Value
}

func (m *boundMethod) Invoke(ctx context.Context, args ...any) (any, error) {
	in, err := m.buildArgs(ctx, args)
	if err != nil {
		return nil, err
	}

	return splitResults(m.fn.Call(in))
}

func (m *boundMethod) buildArgs(ctx context.Context, args []any) ([]reflect.Value, error) {
	ft := m.fn.Type()

	in := make([]reflect.Value, 0, ft.NumIn())
	if m.recv.IsValid() {
		in = append(in, m.recv)
	}

	if len(in) < ft.NumIn() && ft.In(len(in)) == contextType {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	fixed := ft.NumIn() - len(in)
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) != fixed) {
		return nil, errx.New(
			"[binder]: wrong number of arguments",
			errx.WithCode(CodeInvalidArguments),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"expected": fixed, "got": len(args), "variadic": ft.IsVariadic()}),
		)
	}

	for i, arg := range args {
		pos := len(in)
		var pt reflect.Type
		if ft.IsVariadic() && pos >= ft.NumIn()-1 {
			pt = ft.In(ft.NumIn() - 1).Elem()
		} else {
			pt = ft.In(pos)
		}

		v, ok := argValue(arg, pt)
		if !ok {
			return nil, errx.New(
				"[binder]: argument type mismatch",
				errx.WithCode(CodeInvalidArguments),
				errx.WithType(errx.T_Validation),
				errx.WithDetails(errx.D{"index": i, "expected": pt.String(), "got": fmt.Sprintf("%T", arg)}),
			)
		}
		in = append(in, v)
	}

	return in, nil
}

func argValue(arg any, pt reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		switch pt.Kind() { //nolint:exhaustive // only nillable kinds accept nil
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(pt), true
		default:
			return reflect.Value{}, false
		}
	}

	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(pt) {
		return reflect.Value{}, false
	}
	return v, true
}

func splitResults(out []reflect.Value) (any, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			err, _ = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}

func notFound(reason string, object, method any) error {
	return errx.New(
		"[binder]: "+reason,
		errx.WithCode(CodeMethodNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{
			"object_type": fmt.Sprintf("%T", object),
			"method":      methodLabel(method),
		}),
	)
}

func typeLabel(object any) string {
	t := reflect.TypeOf(object)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

func methodLabel(method any) string {
	switch m := method.(type) {
	case string:
		return m
	case nil:
		return "<nil>"
	}

	v := reflect.ValueOf(method)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%T", method)
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "func"
	}
	name := fn.Name()
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
