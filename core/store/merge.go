package store

import "reflect"

// MergeFunc combines the previous state with a partial update.
// It must not modify prev or partial.
type MergeFunc[S any] func(prev, partial S) S

// ShallowMerge is the default MergeFunc.
//
// Maps are merged key by key into a new map, with partial winning.
// Structs get every exported field of partial copied over prev, except
// nil pointer, map, slice, interface, func and chan fields, which mean "leave
// as is". Value fields are always copied, so Loading: false resets a flag.
// To change only some value fields, give them pointer types or use Update.
// Any other kind is replaced by partial.
func ShallowMerge[S any](prev, partial S) S {
	pv := reflect.ValueOf(any(prev))
	nv := reflect.ValueOf(any(partial))

	if !pv.IsValid() || !nv.IsValid() || pv.Type() != nv.Type() {
		if !nv.IsValid() {
			return prev
		}
		return partial
	}

	switch pv.Kind() {
	case reflect.Map:
		if pv.IsNil() && nv.IsNil() {
			return partial
		}
		out := reflect.MakeMapWithSize(pv.Type(), pv.Len()+nv.Len())
		copyMap(out, pv)
		copyMap(out, nv)
		return out.Interface().(S)

	case reflect.Struct:
		out := reflect.New(pv.Type()).Elem()
		out.Set(pv)
		for i := range nv.NumField() {
			f := nv.Field(i)
			if !out.Field(i).CanSet() || isNilField(f) {
				continue
			}
			out.Field(i).Set(f)
		}
		return out.Interface().(S)

	default:
		return partial
	}
}

func isNilField(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// Replace is a MergeFunc that discards prev.
func Replace[S any](_, partial S) S {
	return partial
}

// Concat is a MergeFunc for string state that appends partial to prev.
func Concat(prev, partial string) string {
	return prev + partial
}

// cloneState returns a shallow copy of maps; other values are copied by assignment.
func cloneState[S any](s S) S {
	v := reflect.ValueOf(any(s))
	if !v.IsValid() || v.Kind() != reflect.Map || v.IsNil() {
		return s
	}
	out := reflect.MakeMapWithSize(v.Type(), v.Len())
	copyMap(out, v)
	return out.Interface().(S)
}

func copyMap(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	iter := src.MapRange()
	for iter.Next() {
		dst.SetMapIndex(iter.Key(), iter.Value())
	}
}
