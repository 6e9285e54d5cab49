// Package assert guards constructor arguments, a failed assertion is a programming
// error and panics.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when value is nil, including a typed nil pointer, map, slice, func,
// chan or interface stored in value.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("expected value to be not nil, got nil %s", v.Type()))
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}
