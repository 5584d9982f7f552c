package autovalue

import (
	"fmt"
	"hash/maphash"
	"math"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// The functions and types in this file are used by generated code. They are
// exported so that generated files (which live in other packages) can call
// them, but they are also safe to use directly.

const (
	// HashSeed is the initial value of a hash accumulator.
	HashSeed uint64 = 1
	// HashPrime is the multiplier used by Mix.
	HashPrime uint64 = 1000003
	// NilHash is the contribution of a nil property value. It is not zero,
	// so that nil and a pointer to zero contribute differently.
	NilHash uint64 = 0x9e3779b97f4a7c15
)

var comparableSeed = maphash.MakeSeed()

// Mix folds one contribution into a hash accumulator. It is order-sensitive:
// Mix(Mix(h, a), b) and Mix(Mix(h, b), a) differ unless a == b.
func Mix(h, v uint64) uint64 {
	return h*HashPrime + v
}

// HashBool returns the hash contribution of a boolean.
func HashBool[T ~bool](v T) uint64 {
	if v {
		return 1231
	}
	return 1237
}

// HashString returns the hash contribution of a string. Unlike Hash, the
// result is stable across processes.
func HashString[T ~string](v T) uint64 {
	return xxhash.Sum64String(string(v))
}

// HashFloat64 returns the bit pattern of v.
func HashFloat64[T ~float64](v T) uint64 {
	return math.Float64bits(float64(v))
}

// HashFloat32 returns the bit pattern of v.
func HashFloat32[T ~float32](v T) uint64 {
	return uint64(math.Float32bits(float32(v)))
}

// HashComplex128 combines the bit patterns of both parts of v.
func HashComplex128[T ~complex128](v T) uint64 {
	c := complex128(v)
	return Mix(HashFloat64(real(c)), HashFloat64(imag(c)))
}

// HashComplex64 combines the bit patterns of both parts of v.
func HashComplex64[T ~complex64](v T) uint64 {
	c := complex64(v)
	return Mix(HashFloat32(real(c)), HashFloat32(imag(c)))
}

// EqualFloat64 compares the bit patterns of a and b. So NaN equals NaN (when
// the payloads match) and 0.0 does not equal -0.0, which keeps equality
// consistent with HashFloat64.
func EqualFloat64[T ~float64](a, b T) bool {
	return math.Float64bits(float64(a)) == math.Float64bits(float64(b))
}

// EqualFloat32 compares the bit patterns of a and b.
func EqualFloat32[T ~float32](a, b T) bool {
	return math.Float32bits(float32(a)) == math.Float32bits(float32(b))
}

// EqualComplex128 compares the bit patterns of both parts of a and b.
func EqualComplex128[T ~complex128](a, b T) bool {
	x, y := complex128(a), complex128(b)
	return EqualFloat64(real(x), real(y)) && EqualFloat64(imag(x), imag(y))
}

// EqualComplex64 compares the bit patterns of both parts of a and b.
func EqualComplex64[T ~complex64](a, b T) bool {
	x, y := complex64(a), complex64(b)
	return EqualFloat32(real(x), real(y)) && EqualFloat32(imag(x), imag(y))
}

// HashTime returns a hash of the instant t represents. Two times that are
// equal according to time.Time.Equal have the same hash, regardless of
// location or monotonic clock reading.
func HashTime(t time.Time) uint64 {
	return Mix(uint64(t.Unix()), uint64(t.Nanosecond()))
}

// Equal compares two values of a comparable type. If a's dynamic type has an
// Equal(T) bool method, it is used. Otherwise, a and b are compared with ==.
//
// Unlike ==, Equal does not panic when T is an interface type (or contains
// one) and the dynamic types of the values are not comparable. Such values are
// compared with reflect.DeepEqual.
func Equal[T comparable](a, b T) bool {
	if eq, ok := any(a).(interface{ Equal(T) bool }); ok {
		return eq.Equal(b)
	}
	if !isComparable(a) || !isComparable(b) {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// Hash returns the hash of a value of a comparable type. If v's dynamic type
// has a Hash() uint64 method, it is used. Otherwise, the value is hashed with
// hash/maphash, whose results are only stable within a single process.
//
// A value whose dynamic type is not comparable is hashed by its dynamic type
// alone, which is consistent with how Equal compares such values.
func Hash[T comparable](v T) uint64 {
	if h, ok := any(v).(interface{ Hash() uint64 }); ok {
		return h.Hash()
	}
	if !isComparable(v) {
		return maphash.Comparable(comparableSeed, dynamicType(reflect.ValueOf(&v).Elem()))
	}
	return maphash.Comparable(comparableSeed, v)
}

// isComparable returns true if == on v cannot panic.
func isComparable[T comparable](v T) bool {
	return reflect.ValueOf(&v).Elem().Comparable()
}

func dynamicType(rv reflect.Value) reflect.Type {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Type()
}

// Deref returns the value p points to, or nil if p is nil. Generated String
// methods use it so that pointer properties render their values instead of
// addresses.
func Deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// DerefAll returns a value that formats like v, except that pointers, including
// those inside slices and arrays, render the values they point to. Generated
// String methods use it for properties with pointer elements.
func DerefAll[T any](v T) fmt.Formatter {
	return derefFormatter{reflect.ValueOf(&v).Elem()}
}

type derefFormatter struct {
	v reflect.Value
}

func (d derefFormatter) Format(f fmt.State, verb rune) {
	switch d.v.Kind() {
	case reflect.Pointer:
		if d.v.IsNil() {
			fmt.Fprint(f, nil)
			return
		}
		derefFormatter{d.v.Elem()}.Format(f, verb)
	case reflect.Slice, reflect.Array:
		_, _ = f.Write([]byte{'['})
		for i := 0; i < d.v.Len(); i++ {
			if i > 0 {
				_, _ = f.Write([]byte{' '})
			}
			derefFormatter{d.v.Index(i)}.Format(f, verb)
		}
		_, _ = f.Write([]byte{']'})
	default:
		fmt.Fprintf(f, fmt.FormatString(f, verb), d.v.Interface())
	}
}

// HashCache is a slot for a lazily computed hash. The zero value is empty.
//
// A HashCache needs no locking: the hash of an immutable value is always the
// same, so goroutines that race to fill an empty cache compute and store the
// same value. The computed flag is only set after the value is stored, so a
// reader that observes the flag also observes the value.
//
// A HashCache must not be copied after first use.
type HashCache struct {
	computed atomic.Bool
	value    atomic.Uint64
}

// Get returns the cached hash, calling compute to fill the cache if it is
// empty.
func (c *HashCache) Get(compute func() uint64) uint64 {
	if c.computed.Load() {
		return c.value.Load()
	}
	h := compute()
	c.value.Store(h)
	c.computed.Store(true)
	return h
}

// Peek returns the cached hash and true, or zero and false if the cache is
// still empty.
func (c *HashCache) Peek() (uint64, bool) {
	if c.computed.Load() {
		return c.value.Load(), true
	}
	return 0, false
}
