package container

import "github.com/km-arc/container/internal/introspect"

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the canonical identifier for T, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey[UserRepository]()  // "myapp/repo.UserRepository"
//	c.Singleton(key, NewEloquentUserRepository)
func TypeKey[T any]() string {
	return introspect.TypeKey[T]()
}

// TypeKeyOf returns the canonical identifier for the dynamic type of v.
func TypeKeyOf(v any) string {
	return introspect.TypeKeyOf(v)
}
