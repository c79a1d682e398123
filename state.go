package arbor

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned when a write path addresses a list element by a
// non-numeric key.
var ErrInvalidPath = errors.New("invalid state path")

// State is an immutable snapshot of application state. Values are addressed
// by paths of dot-separated keys and bracketed indices ("shapes[2].left").
// Writes go through the App and produce a new snapshot; maps and slices on
// the written path are copied, so snapshots never observe later writes.
//
// Values reachable from a State MUST NOT be mutated in place.
type State struct {
	root    Props
	version uint64
}

// NewState creates a snapshot holding a shallow copy of values.
func NewState(values Props) State {
	return State{root: values.clone()}
}

// Version increases with every write made through the App.
func (s State) Version() uint64 {
	return s.version
}

// Get returns the value at path, or nil when any segment is missing.
// An empty path returns the root mapping.
func (s State) Get(path string) any {
	if path == "" {
		return s.root
	}
	var cur any = s.root
	for _, seg := range parsePath(path) {
		switch c := cur.(type) {
		case Props:
			cur = c[seg.key]
		case map[string]any:
			cur = c[seg.key]
		case []any:
			if !seg.isIndex || seg.index >= len(c) {
				return nil
			}
			cur = c[seg.index]
		default:
			cur = reflectGet(c, seg)
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// reflectGet reads seg from typed slices, arrays and string-keyed maps such
// as []Props or map[string]float64.
func reflectGet(cur any, seg pathSeg) any {
	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if !seg.isIndex || seg.index >= rv.Len() {
			return nil
		}
		return rv.Index(seg.index).Interface()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(seg.key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	}
	return nil
}

// Lookup is like Get but also reports whether the value was present.
func (s State) Lookup(path string) (any, bool) {
	v := s.Get(path)
	return v, v != nil
}

// Float returns the number at path, or 0.
func (s State) Float(path string) float64 {
	f, _ := toFloat(s.Get(path))
	return f
}

// String returns the string at path, or "".
func (s State) String(path string) string {
	str, _ := s.Get(path).(string)
	return str
}

// Props returns a copy of the mapping at path, or nil. Nested values are
// shared with the snapshot.
func (s State) Props(path string) Props {
	switch m := s.Get(path).(type) {
	case Props:
		return m.clone()
	case map[string]any:
		return Props(m).clone()
	}
	return nil
}

// Keys returns the top-level keys.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.root))
	for k := range s.root {
		keys = append(keys, k)
	}
	return keys
}

// with returns a new snapshot with v stored at path. The snapshot is left
// untouched when the path cannot be written.
func (s State) with(path string, v any) (State, error) {
	segs := parsePath(path)
	if len(segs) == 0 {
		return s, nil
	}
	base := s.root
	if base == nil {
		base = Props{}
	}
	root, err := setPath(base, segs, v)
	if err != nil {
		return s, fmt.Errorf("set %s: %w", path, err)
	}
	return State{root: root.(Props), version: s.version + 1}, nil
}

// merged returns a new snapshot with partial shallow-merged into the root.
func (s State) merged(partial Props) State {
	return State{root: mergeProps(s.root, partial), version: s.version + 1}
}

// --- Paths ---

type pathSeg struct {
	key     string
	index   int
	isIndex bool
}

// parsePath splits "a.b[2].c" into segments. Numeric keys written with dots
// ("a.0") address slice elements as well.
func parsePath(path string) []pathSeg {
	var segs []pathSeg
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				segs = append(segs, keySeg(part))
				break
			}
			if open > 0 {
				segs = append(segs, keySeg(part[:open]))
			}
			end := strings.IndexByte(part[open:], ']')
			if end < 0 {
				segs = append(segs, keySeg(part[open:]))
				break
			}
			segs = append(segs, keySeg(part[open+1:open+end]))
			part = part[open+end+1:]
		}
	}
	return segs
}

func keySeg(s string) pathSeg {
	if i, err := strconv.Atoi(s); err == nil && i >= 0 {
		return pathSeg{key: s, index: i, isIndex: true}
	}
	return pathSeg{key: s}
}

// setPath returns a copy of cur with v stored at segs. Containers on the
// path are copied with their own type, so a []Props stays a []Props.
// Missing containers are created: []any for index segments, Props otherwise.
// A scalar on the path is replaced by a fresh container.
func setPath(cur any, segs []pathSeg, v any) (any, error) {
	if len(segs) == 0 {
		return v, nil
	}
	seg := segs[0]
	switch c := cur.(type) {
	case nil:
	case []any:
		if !seg.isIndex {
			return nil, fmt.Errorf("%w: key %q on a list", ErrInvalidPath, seg.key)
		}
		out := make([]any, max(len(c), seg.index+1))
		copy(out, c)
		child, err := setPath(out[seg.index], segs[1:], v)
		if err != nil {
			return nil, err
		}
		out[seg.index] = child
		return out, nil
	case Props:
		return setKey(c.clone(), c[seg.key], segs, v)
	case map[string]any:
		return setKey(Props(c).clone(), c[seg.key], segs, v)
	default:
		rv := reflect.ValueOf(cur)
		switch {
		case rv.Kind() == reflect.Slice:
			return setSliceElem(rv, segs, v)
		case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
			return setMapElem(rv, segs, v)
		}
	}
	if seg.isIndex {
		out := make([]any, seg.index+1)
		child, err := setPath(nil, segs[1:], v)
		if err != nil {
			return nil, err
		}
		out[seg.index] = child
		return out, nil
	}
	return setKey(Props{}, nil, segs, v)
}

func setKey(out Props, old any, segs []pathSeg, v any) (any, error) {
	child, err := setPath(old, segs[1:], v)
	if err != nil {
		return nil, err
	}
	out[segs[0].key] = child
	return out, nil
}

// setSliceElem copies a typed slice and stores the new element. When the
// element does not fit the slice type the copy becomes a []any.
func setSliceElem(rv reflect.Value, segs []pathSeg, v any) (any, error) {
	seg := segs[0]
	if !seg.isIndex {
		return nil, fmt.Errorf("%w: key %q on a list", ErrInvalidPath, seg.key)
	}
	n := max(rv.Len(), seg.index+1)
	out := reflect.MakeSlice(rv.Type(), n, n)
	reflect.Copy(out, rv)
	child, err := setPath(out.Index(seg.index).Interface(), segs[1:], v)
	if err != nil {
		return nil, err
	}
	if cv, ok := fitValue(child, rv.Type().Elem()); ok {
		out.Index(seg.index).Set(cv)
		return out.Interface(), nil
	}
	loose := make([]any, n)
	for i := range n {
		loose[i] = out.Index(i).Interface()
	}
	loose[seg.index] = child
	return loose, nil
}

// setMapElem copies a typed string-keyed map and stores the new value. When
// the value does not fit the map type the copy becomes Props.
func setMapElem(rv reflect.Value, segs []pathSeg, v any) (any, error) {
	kt := rv.Type().Key()
	key := reflect.ValueOf(segs[0].key).Convert(kt)
	var old any
	if ov := rv.MapIndex(key); ov.IsValid() {
		old = ov.Interface()
	}
	child, err := setPath(old, segs[1:], v)
	if err != nil {
		return nil, err
	}
	if cv, ok := fitValue(child, rv.Type().Elem()); ok {
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len()+1)
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		out.SetMapIndex(key, cv)
		return out.Interface(), nil
	}
	loose := make(Props, rv.Len()+1)
	iter := rv.MapRange()
	for iter.Next() {
		loose[iter.Key().String()] = iter.Value().Interface()
	}
	loose[segs[0].key] = child
	return loose, nil
}

// fitValue converts v to t when it is assignable or convertible between map
// types (Props and map[string]any).
func fitValue(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, true
	}
	if rv.Kind() == reflect.Map && t.Kind() == reflect.Map && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}
