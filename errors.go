package autovalue

import (
	"errors"
	"fmt"
)

// ErrNullProperty is matched (via errors.Is) by every *NullPropertyError.
var ErrNullProperty = errors.New("autovalue: nil value for non-nullable property")

// NullPropertyError is returned from a generated constructor when a nil value
// is supplied for a property that is not annotated with @autovalue.Nullable.
type NullPropertyError struct {
	// Type is the simple name of the value type's interface.
	Type string
	// Property is the name of the property that was nil.
	Property string
}

// Error implements the error interface.
func (e *NullPropertyError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("autovalue: nil value for non-nullable property %q", e.Property)
	}
	return fmt.Sprintf("autovalue: nil value for non-nullable property %q of %s", e.Property, e.Type)
}

// Is reports whether target is ErrNullProperty.
func (e *NullPropertyError) Is(target error) bool {
	return target == ErrNullProperty
}
