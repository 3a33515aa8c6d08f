package introspect

import (
	"reflect"
	"sync"
)

// ── Type keys ─────────────────────────────────────────────────────────────────

var typeKeyCache sync.Map // reflect.Type → string

// TypeKey returns the canonical identifier for T, suitable as a container
// abstract key.
//
//	// Laravel: UserRepository::class
//	key := introspect.TypeKey[UserRepository]()  // "myapp/repo.UserRepository"
func TypeKey[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		// T is an interface type; recover it through a pointer.
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return KeyForType(t)
}

// TypeKeyOf returns the canonical identifier for the dynamic type of v.
func TypeKeyOf(v any) string {
	if v == nil {
		return "<nil>"
	}
	return KeyForType(reflect.TypeOf(v))
}

// KeyForType returns the canonical identifier for a reflect.Type.
// Results are cached; the cache never needs invalidation because type
// identity is stable for the process lifetime.
func KeyForType(t reflect.Type) string {
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}
	key := buildKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildKey(t.Elem())
	case reflect.Map:
		return "map[" + buildKey(t.Key()) + "]" + buildKey(t.Elem())
	case reflect.Chan:
		return "chan " + buildKey(t.Elem())
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}
}

// ── Nil / kind helpers ────────────────────────────────────────────────────────

// Nilable reports whether values of t can hold nil.
func Nilable(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// Builtin reports whether t is a language builtin for injection purposes:
// anything that is not a package-declared struct, interface, or pointer to
// one. Builtins are never resolved from the container; they require a
// default value.
func Builtin(t reflect.Type) bool {
	if t == nil {
		return false
	}
	e := t
	if e.Kind() == reflect.Ptr {
		e = e.Elem()
	}
	switch e.Kind() {
	case reflect.Struct:
		return e.PkgPath() == ""
	case reflect.Interface:
		// A bare `any` parameter carries no type information; named
		// interfaces are injectable services.
		return e.PkgPath() == "" && e.NumMethod() == 0
	default:
		return true
	}
}

// IsNil reports whether v is nil, including typed nils.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
