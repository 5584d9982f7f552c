// Package processor generates implementations of value types.
//
// A value type is an interface whose doc comment is annotated with
// @autovalue.AutoValue:
//
//	// Person is a person.
//	// @autovalue.AutoValue
//	type Person interface {
//	    Name() string
//	    ID() int
//	    // @autovalue.Nullable
//	    Manager() Person
//	}
//
// For each value type, the generator writes a file containing an unexported
// struct that implements the interface, a constructor that validates its
// arguments, and the methods Equal, Hash, and String. Each accessor method of
// the interface defines a property.
//
// Generation of one type is a pipeline of four steps, each of which is
// exported so that it can be used on its own:
//
//	Extract          builds the property model (ValueType) from go/types
//	Validate         checks the model's structural preconditions
//	SelectStrategies chooses how each property is compared and hashed
//	Synthesize       renders the source of the implementation
//
// Config.Execute loads packages with golang.org/x/tools/go/packages, runs the
// pipeline for every value type of every package, and writes the outputs. A
// type that fails does not prevent generation of the others; all failures are
// reported in the Result and in the returned error.
//
// # Processors
//
// Execute invokes a list of Processor functions for each package. Generate is
// the processor that implements the steps above. Other processors can be
// registered with RegisterProcessor, and the autovalue command runs all of
// them (see AllRegisteredProcessors). A processor receives a Context, which
// describes the package and its annotated types, and an OutputFactory through
// which it writes files.
//
// # Errors
//
// Errors that concern a location in source are wrapped in an
// ErrorWithPosition. The underlying error is a *ValidationError or a
// *MalformedAccessorError, which can be tested with errors.Is against
// ErrValidation and ErrMalformedAccessor.
package processor
