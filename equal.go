package arbor

import (
	"image"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// equalOpts make cmp.Equal total over property values: unexported fields are
// compared, functions compare by code pointer and images by identity (decoded
// pixel buffers are never walked).
var equalOpts = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
	cmp.FilterValues(func(x, y any) bool {
		return isFunc(x) && isFunc(y)
	}, cmp.Comparer(func(x, y any) bool {
		vx, vy := reflect.ValueOf(x), reflect.ValueOf(y)
		if vx.IsNil() || vy.IsNil() {
			return vx.IsNil() && vy.IsNil()
		}
		return vx.Pointer() == vy.Pointer()
	})),
	cmp.FilterValues(func(x, y any) bool {
		_, okx := x.(image.Image)
		_, oky := y.(image.Image)
		return okx && oky
	}, cmp.Comparer(func(x, y any) bool {
		vx, vy := reflect.ValueOf(x), reflect.ValueOf(y)
		if vx.Kind() != reflect.Pointer || vy.Kind() != reflect.Pointer {
			return false
		}
		return vx.Pointer() == vy.Pointer()
	})),
	cmp.Comparer(func(x, y *Node) bool { return x == y }),
	cmp.Comparer(func(x, y *App) bool { return x == y }),
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// deepEqual reports whether a and b are structurally equal. Maps, slices and
// structs are compared element-wise; nil and an empty map are equal.
func deepEqual(a, b any) bool {
	if a == nil || b == nil {
		return isEmpty(a) && isEmpty(b)
	}
	return cmp.Equal(a, b, equalOpts)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// keysEqual compares two reconciliation keys. Numeric keys compare by value
// across types, other comparable keys use ==, the rest fall back to
// structural equality.
func keysEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := keyNumber(a); ok {
		fb, ok := keyNumber(b)
		return ok && fa == fb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return deepEqual(a, b)
}

// keyNumber reads v as a float when its kind is numeric. Plain types go
// through toFloat; named ones through reflect.
func keyNumber(v any) (float64, bool) {
	if f, err := toFloat(v); err == nil {
		return f, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// truthy mirrors the loose boolean reading of property values: nil, false,
// zero numbers and empty strings are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	}
	return true
}
