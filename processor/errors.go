package processor

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

var (
	// ErrMalformedAccessor is matched (via errors.Is) by every
	// *MalformedAccessorError.
	ErrMalformedAccessor = errors.New("autovalue: malformed accessor")
	// ErrValidation is matched (via errors.Is) by every *ValidationError.
	ErrValidation = errors.New("autovalue: invalid value type")
)

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a source file where the error
// was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Underlying returns the underlying error.
func (e *ErrorWithPosition) Underlying() error {
	return e.err
}

// Unwrap returns the underlying error, so that errors.Is and errors.As see
// through the position.
func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}

// MalformedAccessorError indicates that a method of a value type cannot be
// treated as a property accessor: it has parameters, has no result or more
// than one, or uses the name of a reserved method with the wrong signature.
type MalformedAccessorError struct {
	Type   string // Value type name
	Method string
	Reason string
}

// Error implements the error interface.
func (e *MalformedAccessorError) Error() string {
	return fmt.Sprintf("autovalue: malformed accessor %s.%s: %s", e.Type, e.Method, e.Reason)
}

// Is reports whether the target matches the sentinel error for
// MalformedAccessorError.
func (e *MalformedAccessorError) Is(target error) bool {
	return target == ErrMalformedAccessor
}

// ValidationKind categorizes a ValidationError.
type ValidationKind int

const (
	// NotAnInterface means that the annotated type is not an interface.
	NotAnInterface ValidationKind = iota + 1
	// ConstraintInterface means that the annotated interface has type terms,
	// so it can only be used as a type constraint.
	ConstraintInterface
	// DuplicateProperty means that two accessors derive the same property
	// name.
	DuplicateProperty
	// UnnameableType means that a property type cannot be written in the
	// generated code.
	UnnameableType
	// UnsupportedType means that a property type has no usable equality or
	// hash.
	UnsupportedType
	// InvalidNullable means that an accessor whose type cannot be nil is
	// annotated as nullable.
	InvalidNullable
	// InvalidAnnotation means that an annotation has an unknown field, a value
	// of the wrong type, or is repeated.
	InvalidAnnotation
)

var validationKindNames = map[ValidationKind]string{
	NotAnInterface:      "not an interface",
	ConstraintInterface: "constraint interface",
	DuplicateProperty:   "duplicate property",
	UnnameableType:      "unnameable type",
	UnsupportedType:     "unsupported type",
	InvalidNullable:     "invalid nullable",
	InvalidAnnotation:   "invalid annotation",
}

func (k ValidationKind) String() string {
	if n, ok := validationKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ValidationKind(%d)", int(k))
}

// ValidationError indicates that a value type, or one of its properties, is
// structurally invalid.
type ValidationError struct {
	Type     string // Value type name
	Property string // Property name (if applicable)
	Kind     ValidationKind
	Detail   string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("autovalue: ")
	b.WriteString(e.Kind.String())
	if e.Type != "" {
		b.WriteString(" in ")
		b.WriteString(e.Type)
	}
	if e.Property != "" {
		b.WriteString(" property ")
		b.WriteString(e.Property)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for
// ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(pos token.Position, typeName, property string, kind ValidationKind, format string, args ...any) *ErrorWithPosition {
	return NewErrorWithPosition(pos, &ValidationError{
		Type:     typeName,
		Property: property,
		Kind:     kind,
		Detail:   fmt.Sprintf(format, args...),
	})
}

// TypeError is the failure of a single value type within a batch.
type TypeError struct {
	Package string
	Type    string
	Err     error
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %v", e.Package, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Package, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *TypeError) Unwrap() error {
	return e.Err
}
