package processor

import (
	"fmt"
	"go/types"
)

// EqualityKind is how generated code compares two values of a property.
type EqualityKind int

const (
	// EqualOperator compares with ==.
	EqualOperator EqualityKind = iota + 1
	// EqualFloat32 compares bit patterns with autovalue.EqualFloat32.
	EqualFloat32
	// EqualFloat64 compares bit patterns with autovalue.EqualFloat64.
	EqualFloat64
	// EqualComplex64 compares bit patterns with autovalue.EqualComplex64.
	EqualComplex64
	// EqualComplex128 compares bit patterns with autovalue.EqualComplex128.
	EqualComplex128
	// EqualMethod calls the type's own Equal method.
	EqualMethod
	// EqualDelegate calls autovalue.Equal, which uses a dynamic Equal method
	// if there is one and == otherwise.
	EqualDelegate
	// EqualElements compares length and then each element.
	EqualElements
	// EqualPointee compares the values that two pointers point to.
	EqualPointee
)

// HashKind is how generated code computes the hash contribution of a property.
type HashKind int

const (
	// HashInteger converts the value to uint64.
	HashInteger HashKind = iota + 1
	// HashBool uses autovalue.HashBool.
	HashBool
	// HashFloat32 uses autovalue.HashFloat32.
	HashFloat32
	// HashFloat64 uses autovalue.HashFloat64.
	HashFloat64
	// HashComplex64 uses autovalue.HashComplex64.
	HashComplex64
	// HashComplex128 uses autovalue.HashComplex128.
	HashComplex128
	// HashString uses autovalue.HashString.
	HashString
	// HashMethod calls the type's own Hash method.
	HashMethod
	// HashDelegate calls autovalue.Hash.
	HashDelegate
	// HashTime uses autovalue.HashTime.
	HashTime
	// HashElements mixes the hashes of all elements.
	HashElements
	// HashPointee hashes the value that a pointer points to.
	HashPointee
)

// Strategy describes how a value is compared and hashed. Strategies for slices,
// arrays, and pointers have an Elem strategy for their elements or pointees.
type Strategy struct {
	Type     types.Type
	Equality EqualityKind
	Hash     HashKind
	// Nullable indicates that nil is a distinct, valid value. Two nils are
	// equal and nil hashes to autovalue.NilHash.
	Nullable bool
	// CheckNil indicates that the generated constructor rejects nil.
	CheckNil bool
	Elem     *Strategy
}

// SelectStrategies chooses the Strategy of every property of the given value
// type. The value type must already be valid.
func SelectStrategies(vt *ValueType) error {
	for _, p := range vt.Properties {
		s, reason := strategyFor(p.Type, map[types.Type]bool{})
		if reason != "" {
			return &ValidationError{Type: vt.Name, Property: p.Name, Kind: UnsupportedType, Detail: fmt.Sprintf("type %s %s", typeString(p.Type, vt.Package), reason)}
		}
		switch p.Kind {
		case KindNullableReference:
			s.Nullable = true
		case KindArray:
			// a nullable slice distinguishes nil from empty; otherwise nil is
			// the same as empty
			s.Nullable = p.Nullable
		case KindReference:
			s.CheckNil = isNilable(p.Type)
		}
		p.Strategy = s
	}
	return nil
}

// strategyFor returns the strategy for values of type t, or a reason why
// values of type t cannot be compared and hashed.
func strategyFor(t types.Type, seen map[types.Type]bool) (*Strategy, string) {
	s := &Strategy{Type: t}
	if hasEqualMethod(t) {
		switch {
		case hasHashMethod(t):
			s.Equality, s.Hash = EqualMethod, HashMethod
		case isTime(t):
			s.Equality, s.Hash = EqualMethod, HashTime
		default:
			return nil, "has an Equal method but no Hash method"
		}
		return s, ""
	}
	if tp, ok := t.(*types.TypeParam); ok {
		if !types.Comparable(tp) {
			return nil, "is a type parameter that is not constrained to be comparable"
		}
		s.Equality, s.Hash = EqualDelegate, HashDelegate
		return s, ""
	}

	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case info&types.IsBoolean != 0:
			s.Equality, s.Hash = EqualOperator, HashBool
		case info&types.IsInteger != 0:
			s.Equality, s.Hash = EqualOperator, HashInteger
		case u.Kind() == types.Float32:
			s.Equality, s.Hash = EqualFloat32, HashFloat32
		case u.Kind() == types.Float64:
			s.Equality, s.Hash = EqualFloat64, HashFloat64
		case u.Kind() == types.Complex64:
			s.Equality, s.Hash = EqualComplex64, HashComplex64
		case u.Kind() == types.Complex128:
			s.Equality, s.Hash = EqualComplex128, HashComplex128
		case info&types.IsString != 0:
			s.Equality, s.Hash = EqualOperator, HashString
		case u.Kind() == types.UnsafePointer:
			s.Equality, s.Hash = EqualOperator, HashDelegate
		default:
			return nil, "has no equality"
		}

	case *types.Pointer:
		if seen[t] {
			return nil, "is recursive"
		}
		seen[t] = true
		elem, reason := strategyFor(u.Elem(), seen)
		if reason != "" {
			// pointers to values without equality compare by identity
			s.Equality, s.Hash = EqualOperator, HashDelegate
			return s, ""
		}
		s.Equality, s.Hash, s.Elem = EqualPointee, HashPointee, elem

	case *types.Slice, *types.Array:
		if seen[t] {
			return nil, "is recursive"
		}
		seen[t] = true
		var elemType types.Type
		if sl, ok := u.(*types.Slice); ok {
			elemType = sl.Elem()
		} else {
			elemType = u.(*types.Array).Elem()
		}
		elem, reason := strategyFor(elemType, seen)
		if reason != "" {
			return nil, "has elements that " + reason
		}
		// nested slices treat nil the same as empty
		if _, isSlice := elemType.Underlying().(*types.Slice); !isSlice {
			elem.Nullable = isNilable(elemType)
		}
		s.Equality, s.Hash, s.Elem = EqualElements, HashElements, elem

	case *types.Interface:
		s.Equality, s.Hash = EqualDelegate, HashDelegate

	case *types.Chan:
		s.Equality, s.Hash = EqualOperator, HashDelegate

	case *types.Map:
		return nil, "is a map, which has no equality"

	case *types.Signature:
		return nil, "is a func, which has no equality"

	case *types.Struct:
		if !types.Comparable(t) {
			return nil, "is not comparable and has no Equal and Hash methods"
		}
		s.Equality, s.Hash = EqualDelegate, HashDelegate

	default:
		return nil, fmt.Sprintf("has unsupported form %T", u)
	}
	return s, ""
}

// hasEqualMethod returns true if values of type t have a method Equal(U) bool
// where t is assignable to U.
func hasEqualMethod(t types.Type) bool {
	sig := methodSignature(t, "Equal")
	if sig == nil || sig.Params().Len() != 1 || sig.Variadic() || sig.Results().Len() != 1 {
		return false
	}
	return types.Identical(sig.Results().At(0).Type(), types.Typ[types.Bool]) &&
		types.AssignableTo(t, sig.Params().At(0).Type())
}

// hasHashMethod returns true if values of type t have a method Hash() uint64.
func hasHashMethod(t types.Type) bool {
	sig := methodSignature(t, "Hash")
	return sig != nil && sig.Params().Len() == 0 && sig.Results().Len() == 1 &&
		types.Identical(sig.Results().At(0).Type(), types.Typ[types.Uint64])
}

func methodSignature(t types.Type, name string) *types.Signature {
	sel := types.NewMethodSet(t).Lookup(nil, name)
	if sel == nil {
		return nil
	}
	sig, _ := sel.Type().(*types.Signature)
	return sig
}

func isTime(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "time" && obj.Name() == "Time"
}
