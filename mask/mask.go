// Package mask hides sensitive fields of event arguments and configs before they are logged.
//
// Struct fields tagged `mask:"true"` are replaced with a placeholder naming their kind.
// Nested structs are flattened into dotted keys. Slices, arrays, maps and interfaces are
// walked so tagged fields stay hidden wherever they sit. Pointer cycles are cut.
package mask

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	tagName = "mask"

	// maxDepth bounds how deep a value is walked.
	maxDepth = 32

	cycleMark    = "***cycle***"
	maxDepthMark = "***max-depth***"
)

//nolint:gochecknoglobals // cached reflect types
var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	stringerType      = reflect.TypeFor[fmt.Stringer]()
)

// Map is a flattened, ordered view of a struct or map.
type Map = orderedmap.OrderedMap[string, any]

// StructToOrdMap flattens v into an ordered map with sensitive fields masked.
// Keys come from the json tag, then the yaml tag, then the field name.
// Fields tagged json:"-" or yaml:"-" are left out. A nil v yields nil; a value that is not
// a struct is stored under the empty key.
func StructToOrdMap(v any) *Map {
	if v == nil {
		return nil
	}
	out := newWalker().value(reflect.ValueOf(v), 0)
	if om, ok := out.(*Map); ok {
		return om
	}
	om := orderedmap.New[string, any]()
	om.Set("", out)
	return om
}

// Value returns a loggable form of v. Structs become a *Map, containers holding structs are
// rebuilt with their elements masked and scalars are returned unchanged.
func Value(v any) any {
	if v == nil {
		return nil
	}
	return newWalker().value(reflect.ValueOf(v), 0)
}

// Args applies Value to every argument of an invocation.
func Args(args []any) []any {
	return lo.Map(args, func(a any, _ int) any { return Value(a) })
}

// walker tracks the references on the current path so cycles are detected while shared,
// acyclic references are still walked every time they appear.
type walker struct {
	path map[uintptr]struct{}
}

func newWalker() *walker {
	return &walker{path: make(map[uintptr]struct{})}
}

func (w *walker) enter(ptr uintptr) bool {
	if _, found := w.path[ptr]; found {
		return false
	}
	w.path[ptr] = struct{}{}
	return true
}

func (w *walker) leave(ptr uintptr) {
	delete(w.path, ptr)
}

func (w *walker) value(val reflect.Value, depth int) any {
	if !val.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return maxDepthMark
	}

	switch val.Kind() { //nolint:exhaustive // scalars fall through to default
	case reflect.Interface:
		if val.IsNil() {
			return nil
		}
		return w.value(val.Elem(), depth)

	case reflect.Pointer:
		if val.IsNil() {
			return nil
		}
		if isOpaque(val.Type()) {
			return iface(val)
		}
		ptr := val.Pointer()
		if !w.enter(ptr) {
			return cycleMark
		}
		defer w.leave(ptr)
		return w.value(val.Elem(), depth+1)

	case reflect.Struct:
		if isOpaque(val.Type()) {
			return iface(val)
		}
		om := orderedmap.New[string, any]()
		w.flatten(om, val, "", depth)
		return om

	case reflect.Slice:
		if val.IsNil() {
			return nil
		}
		if isScalar(val.Type().Elem()) {
			return iface(val)
		}
		if val.Len() > 0 {
			ptr := val.Pointer()
			if !w.enter(ptr) {
				return cycleMark
			}
			defer w.leave(ptr)
		}
		return w.elems(val, depth)

	case reflect.Array:
		if isScalar(val.Type().Elem()) {
			return iface(val)
		}
		return w.elems(val, depth)

	case reflect.Map:
		if val.IsNil() {
			return nil
		}
		if isScalar(val.Type().Elem()) {
			return iface(val)
		}
		ptr := val.Pointer()
		if !w.enter(ptr) {
			return cycleMark
		}
		defer w.leave(ptr)
		return w.entries(val, depth)

	default:
		return iface(val)
	}
}

func (w *walker) elems(val reflect.Value, depth int) []any {
	out := make([]any, val.Len())
	for i := range out {
		out[i] = w.value(val.Index(i), depth+1)
	}
	return out
}

// entries renders a map with keys sorted by their printed form.
func (w *walker) entries(val reflect.Value, depth int) *Map {
	keys := val.MapKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = fmt.Sprint(iface(k))
	}
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return names[idx[a]] < names[idx[b]] })

	om := orderedmap.New[string, any]()
	for _, i := range idx {
		om.Set(names[i], w.value(val.MapIndex(keys[i]), depth+1))
	}
	return om
}

// flatten writes the fields of the struct val into om under prefix.
func (w *walker) flatten(om *Map, val reflect.Value, prefix string, depth int) {
	if depth > maxDepth {
		om.Set(prefix, maxDepthMark)
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		field := typ.Field(i)
		fv := val.Field(i)

		if field.Anonymous && !field.IsExported() {
			// fields of an embedded unexported struct are promoted
			w.inline(om, fv, prefix, depth)
			continue
		}
		if !field.IsExported() {
			continue
		}

		name, ok := fieldName(field)
		if !ok {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		if strings.EqualFold(field.Tag.Get(tagName), "true") {
			om.Set(name, placeholder(fv))
			continue
		}
		w.nested(om, fv, name, depth)
	}
}

// nested flattens struct and struct pointer fields into om, anything else is walked.
func (w *walker) nested(om *Map, fv reflect.Value, name string, depth int) {
	switch {
	case fv.Kind() == reflect.Struct && !isOpaque(fv.Type()):
		w.flatten(om, fv, name, depth+1)

	case fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct && !isOpaque(fv.Type()):
		ptr := fv.Pointer()
		if !w.enter(ptr) {
			om.Set(name, cycleMark)
			return
		}
		w.flatten(om, fv.Elem(), name, depth+1)
		w.leave(ptr)

	default:
		om.Set(name, w.value(fv, depth+1))
	}
}

func (w *walker) inline(om *Map, fv reflect.Value, prefix string, depth int) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return
		}
		ptr := fv.Pointer()
		if !w.enter(ptr) {
			return
		}
		defer w.leave(ptr)
		fv = fv.Elem()
	}
	if fv.Kind() == reflect.Struct {
		w.flatten(om, fv, prefix, depth+1)
	}
}

// isOpaque reports types that log themselves, such as time.Time, and carry no masked fields.
func isOpaque(t reflect.Type) bool {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Struct && hasMaskedField(base) {
		return false
	}
	for _, it := range []reflect.Type{jsonMarshalerType, textMarshalerType, stringerType} {
		if t.Implements(it) || reflect.PointerTo(t).Implements(it) {
			return true
		}
	}
	return false
}

func hasMaskedField(t reflect.Type) bool {
	for i := range t.NumField() {
		if strings.EqualFold(t.Field(i).Tag.Get(tagName), "true") {
			return true
		}
	}
	return false
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() { //nolint:exhaustive // containers and structs need walking
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// iface returns the value held by val. Scalars reached through unexported embedded structs
// are copied out, other read-only values are masked.
func iface(val reflect.Value) any {
	if val.CanInterface() {
		return val.Interface()
	}

	var raw reflect.Value
	switch val.Kind() { //nolint:exhaustive // only scalars can be copied
	case reflect.Bool:
		raw = reflect.ValueOf(val.Bool())
	case reflect.String:
		raw = reflect.ValueOf(val.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		raw = reflect.ValueOf(val.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		raw = reflect.ValueOf(val.Uint())
	case reflect.Float32, reflect.Float64:
		raw = reflect.ValueOf(val.Float())
	case reflect.Complex64, reflect.Complex128:
		raw = reflect.ValueOf(val.Complex())
	default:
		return placeholder(val)
	}
	return raw.Convert(val.Type()).Interface()
}

// placeholder keeps nil values visible and hides everything else.
func placeholder(val reflect.Value) any {
	switch val.Kind() { //nolint:exhaustive // only nilable kinds matter here
	case reflect.Pointer, reflect.Interface:
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	case reflect.Slice, reflect.Map:
		if val.IsNil() {
			return nil
		}
	}

	kind := val.Kind().String()
	switch val.Kind() { //nolint:exhaustive // sized kinds collapse to their family
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		kind = "int"
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		kind = "uint"
	case reflect.Float32:
		kind = "float64"
	case reflect.Array:
		kind = "slice"
	}
	return fmt.Sprintf("***masked-%s***", kind)
}

// fieldName reports false for fields excluded from the output.
func fieldName(field reflect.StructField) (string, bool) {
	for _, key := range []string{"json", "yaml"} {
		tag, ok := field.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return field.Name, true
}
