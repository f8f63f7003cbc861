package xsd

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a SchemaError into one of the bands described
// by the package: input-level, wiring-level, validation-level, or
// coercion-level failures.
type ErrorKind int

const (
	InvalidSchema ErrorKind = iota
	NamespaceConflict
	UnsupportedSchema
	MissingSchema
	MismatchedSchemaLocation
	HttpError
	UnknownNamespace
	UnknownElement
	UnknownType
	UnexpectedAttribute
	UnexpectedChildren
	SchemaMismatch
	CoercionError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidSchema:
		return "InvalidSchema"
	case NamespaceConflict:
		return "NamespaceConflict"
	case UnsupportedSchema:
		return "UnsupportedSchema"
	case MissingSchema:
		return "MissingSchema"
	case MismatchedSchemaLocation:
		return "MismatchedSchemaLocation"
	case HttpError:
		return "HttpError"
	case UnknownNamespace:
		return "UnknownNamespace"
	case UnknownElement:
		return "UnknownElement"
	case UnknownType:
		return "UnknownType"
	case UnexpectedAttribute:
		return "UnexpectedAttribute"
	case UnexpectedChildren:
		return "UnexpectedChildren"
	case SchemaMismatch:
		return "SchemaMismatch"
	case CoercionError:
		return "CoercionError"
	}
	return "Unknown"
}

// SchemaError is the single error type returned by every operation in
// this package. Callers distinguish cases with the Kind field rather
// than with type assertions, but SchemaError still implements Unwrap
// so errors.Is/errors.As work against a wrapped cause (e.g. a strconv
// parse error surfaced through CoercionError).
type SchemaError struct {
	Kind ErrorKind
	// Path is the namespaced XPath of the offending node, built up as
	// the error propagates out through nested element/type lookups.
	Path []string
	// Allowed, if non-empty, enumerates the alternatives that would
	// have been accepted in place of the offending value.
	Allowed []string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		for i := len(e.Path) - 1; i >= 0; i-- {
			b.WriteString(e.Path[i])
			if i > 0 {
				b.WriteByte('/')
			}
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
