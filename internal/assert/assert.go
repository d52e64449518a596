package assert

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func Equal[T any](tb testing.TB, actual T, expected T) {
	tb.Helper()
	if areEqual(actual, expected) {
		return
	}
	tb.Errorf("actual: %#v; expected: %#v", actual, expected)
}

// Err asserts on an error value. With no expectation it requires any error;
// expectations may be nil, a substring, or a sentinel error.
func Err(tb testing.TB, actual error, expecteds ...any) {
	tb.Helper()

	if len(expecteds) == 0 {
		if actual == nil {
			tb.Error("actual: <nil>; expected: error")
		}
		return
	}

	expected := expecteds[0]

	if expected != nil && actual == nil {
		tb.Error("actual: <nil>; expected: error")
		return
	}

	switch e := expected.(type) {
	case nil:
		if actual != nil {
			tb.Fatalf("unexpected error: %v", actual)
		}
	case string:
		if !strings.Contains(actual.Error(), e) {
			tb.Errorf("actual: %q; expected: %q", actual.Error(), e)
		}
	case error:
		if !errors.Is(actual, e) {
			tb.Errorf("actual: %T(%v); expected: %T(%v)", actual, actual, e, e)
		}
	default:
		tb.Errorf("unsupported expected type: %T", expected)
	}
}

func True(tb testing.TB, actual bool) {
	tb.Helper()
	if !actual {
		tb.Error("actual: false; expected: true")
	}
}

func False(tb testing.TB, actual bool) {
	tb.Helper()
	if actual {
		tb.Error("actual: true; expected: false")
	}
}

func areEqual[T any](lhs, rhs T) bool {
	if isNil(lhs) && isNil(rhs) {
		return true
	}

	if lhsBytes, ok := any(lhs).([]byte); ok {
		rhsBytes := any(rhs).([]byte)
		return bytes.Equal(lhsBytes, rhsBytes)
	}

	return reflect.DeepEqual(lhs, rhs)
}

func isNil(it any) bool {
	if it == nil {
		return true
	}

	rv := reflect.ValueOf(it)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
