package container

import (
	"fmt"
	"strings"
)

// ── Error kinds ───────────────────────────────────────────────────────────────

// Kind classifies container errors by role.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindNotFound: identifier has no binding, instance, or resolvable class.
	KindNotFound
	// KindNotInstantiable: identifier exists but cannot be constructed.
	KindNotInstantiable
	// KindUnresolvable: a constructor parameter cannot be supplied.
	KindUnresolvable
	// KindCircular: identifier reappears on the current resolving stack.
	KindCircular
	// KindTypeMismatch: a value violates the declared type.
	KindTypeMismatch
	// KindInvalidBinding: a scoped or contextual binding carries an
	// unsupported payload.
	KindInvalidBinding
	// KindInvalidUsage: builder methods called out of order, or compile
	// requested while validation fails.
	KindInvalidUsage
	// KindCompilationFailed: the compiler cannot write or serialize.
	KindCompilationFailed
	// KindResolutionFailed: catch-all wrapper around a resolution failure.
	KindResolutionFailed
)

var kindNames = map[Kind]string{
	KindUnknown:           "UNKNOWN",
	KindNotFound:          "NOT_FOUND",
	KindNotInstantiable:   "NOT_INSTANTIABLE",
	KindUnresolvable:      "UNRESOLVABLE",
	KindCircular:          "CIRCULAR",
	KindTypeMismatch:      "TYPE_MISMATCH",
	KindInvalidBinding:    "INVALID_BINDING",
	KindInvalidUsage:      "INVALID_USAGE",
	KindCompilationFailed: "COMPILATION_FAILED",
	KindResolutionFailed:  "RESOLUTION_FAILED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
}

// ── Error ─────────────────────────────────────────────────────────────────────

// Error is the container's domain error. ResolutionFailed errors carry a
// snapshot of the resolving stack and human-oriented suggestions.
type Error struct {
	Kind        Kind
	Identifier  string
	Message     string
	Chain       []string
	Suggestions []string
	Cause       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("container: [")
	sb.WriteString(e.Kind.String())
	sb.WriteString("]")
	if e.Identifier != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Identifier)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if len(e.Chain) > 0 {
		sb.WriteString(" (while resolving ")
		sb.WriteString(strings.Join(e.Chain, " → "))
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so that
// errors.Is(err, container.ErrCircular) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Identifier == "" && t.Message == "" && t.Cause == nil
}

// ── Sentinels ─────────────────────────────────────────────────────────────────

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrNotInstantiable   = &Error{Kind: KindNotInstantiable}
	ErrUnresolvable      = &Error{Kind: KindUnresolvable}
	ErrCircular          = &Error{Kind: KindCircular}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrInvalidBinding    = &Error{Kind: KindInvalidBinding}
	ErrInvalidUsage      = &Error{Kind: KindInvalidUsage}
	ErrCompilationFailed = &Error{Kind: KindCompilationFailed}
	ErrResolutionFailed  = &Error{Kind: KindResolutionFailed}
)

// ── Constructors ──────────────────────────────────────────────────────────────

func errNotFound(id, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Identifier: id, Message: fmt.Sprintf(format, args...)}
}

func errNotInstantiable(id, format string, args ...any) *Error {
	return &Error{Kind: KindNotInstantiable, Identifier: id, Message: fmt.Sprintf(format, args...)}
}

func errUnresolvable(id, format string, args ...any) *Error {
	return &Error{Kind: KindUnresolvable, Identifier: id, Message: fmt.Sprintf(format, args...)}
}

func errCircular(id string, chain []string) *Error {
	return &Error{
		Kind:       KindCircular,
		Identifier: id,
		Message:    "circular dependency",
		Chain:      append(append([]string(nil), chain...), id),
	}
}

func errTypeMismatch(id, format string, args ...any) *Error {
	return &Error{Kind: KindTypeMismatch, Identifier: id, Message: fmt.Sprintf(format, args...)}
}

func errInvalidBinding(id, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidBinding, Identifier: id, Message: fmt.Sprintf(format, args...)}
}

func errInvalidUsage(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidUsage, Message: fmt.Sprintf(format, args...)}
}
