package grid

import "reflect"

// Merge deep-merges b over a and returns a new map; neither input is
// modified and the result shares no maps or slices with them.
//
// Keys present only in a are kept, keys only in b are added. When both hold
// a mapping the two are merged recursively. When both hold a sequence they
// are merged index by index with the same rules and b's extra elements are
// appended. In every other case b's value wins.
func Merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = clone(v)
	}
	for k, bv := range b {
		if av, ok := out[k]; ok {
			out[k] = mergeValue(av, bv)
			continue
		}
		out[k] = clone(bv)
	}
	return out
}

// MergeAll folds overrides into base in order.
func MergeAll(base map[string]any, overrides ...map[string]any) map[string]any {
	out := Merge(base, nil)
	for _, o := range overrides {
		out = Merge(out, o)
	}
	return out
}

func mergeValue(a, b any) any {
	if bm, ok := asMap(b); ok {
		if am, ok := asMap(a); ok {
			return Merge(am, bm)
		}
		return clone(bm)
	}
	if bs, ok := asSlice(b); ok {
		if as, ok := asSlice(a); ok {
			return mergeSlice(as, bs)
		}
	}
	return clone(b)
}

func mergeSlice(a, b []any) []any {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]any, n)
	for i := range out {
		switch {
		case i < len(a) && i < len(b):
			out[i] = mergeValue(a[i], b[i])
		case i < len(a):
			out[i] = clone(a[i])
		default:
			out[i] = clone(b[i])
		}
	}
	return out
}

// clone deep-copies mappings and sequences, normalising them to
// map[string]any and []any. Other values are returned as is.
func clone(v any) any {
	if m, ok := asMap(v); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = clone(e)
		}
		return out
	}
	if s, ok := asSlice(v); ok {
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = clone(e)
		}
		return out
	}
	return v
}

// asMap views string-keyed maps of any element type as map[string]any.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asSlice views slices and arrays, except byte strings, as []any.
func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
