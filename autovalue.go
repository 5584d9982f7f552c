package autovalue

//go:generate autovalue ./examples/values

// DefaultCacheHashCode is the value of AutoValue.CacheHashCode when an
// annotation does not set it. Generated types cache their hash unless told
// otherwise.
//
// Most value types have no need of a cached hash, so this default may be
// changed to false in a future release. Annotations that rely on caching
// should set CacheHashCode explicitly. The processor.Config type also allows
// a batch to override this default.
const DefaultCacheHashCode = true

// AutoValue is the annotation that marks an interface as a value type. The
// annotation processor (see the processor package and the autovalue command)
// generates an unexported struct that implements the interface, with a
// constructor, structural equality, a hash, and a String method. For example:
//
//    // @autovalue.AutoValue
//    type Person interface {
//        Name() string
//        ID() int
//    }
//
//    func NewPerson(name string, id int) (Person, error) {
//        return newAutoValue_Person(name, id)
//    }
//
// Every method of the interface (including methods of embedded interfaces,
// which come first) must be a zero-argument accessor with exactly one result,
// except for the following methods, which are implemented by the generated
// type and may be declared in the interface so that callers can use them:
//
//    String() string
//    Hash() uint64
//    Equal(other T) bool
//
// The annotated element must be a top-level, named interface. The interface
// may have type parameters, in which case the generated struct and
// constructor have the same type parameters.
//
// The file that declares the interface must import this package (a blank
// import is sufficient) so that the annotation's qualifier can be resolved.
type AutoValue struct {
	// CacheHashCode indicates whether the generated type computes its hash at
	// most once per instance, storing it in a field on first use. When false,
	// the hash is recomputed on every call to Hash.
	//
	// Note: most types have no need of this behavior. Use it only if certain
	// of its performance benefit. Mutable property values (such as slices
	// whose contents are later changed by the caller) make a cached hash
	// especially dangerous.
	//
	// When not set, DefaultCacheHashCode is used.
	CacheHashCode bool
}

// Nullable is an annotation for accessor methods of an AutoValue interface.
// It indicates that the property may be nil. Without it, the generated
// constructor rejects a nil value for a property whose type can be nil,
// returning a *NullPropertyError.
//
//    // @autovalue.AutoValue
//    type Contact interface {
//        Email() string
//        // @autovalue.Nullable
//        Phone() *string
//    }
//
// Nullable may only be used with properties whose types can be nil: pointers,
// interfaces, channels, slices and unsafe.Pointer. A nullable slice
// distinguishes nil from empty when compared; a slice that is not nullable
// treats a nil slice the same as an empty one.
type Nullable bool
