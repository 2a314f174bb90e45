package cache

import (
	"math"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// IsPresent reports whether v carries data worth caching: non-blank strings,
// non-empty slices and maps, non-NaN numbers, non-zero times and structs with
// at least one non-zero field. Pointers and interfaces are followed.
func IsPresent(v any) bool {
	return present(reflect.ValueOf(v))
}

func present(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return present(rv.Elem())
	case reflect.String:
		return strings.TrimSpace(rv.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		if rv.Kind() != reflect.Array && rv.IsNil() {
			return false
		}
		return rv.Len() > 0
	case reflect.Float32, reflect.Float64:
		return !math.IsNaN(rv.Float())
	case reflect.Struct:
		if rv.Type() == timeType {
			return !rv.Interface().(time.Time).IsZero()
		}
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Type().Field(i).IsExported() {
				continue
			}
			if !rv.Field(i).IsZero() {
				return true
			}
		}
		return false
	case reflect.Func:
		return !rv.IsNil()
	}
	return true
}
