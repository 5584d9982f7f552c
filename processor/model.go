package processor

import (
	"fmt"
	"go/token"
	"go/types"
)

// Kind classifies a property. The kind determines how a property is compared,
// hashed, and checked at construction time.
type Kind int

const (
	// KindNumeric is a property whose underlying type is an integer, float,
	// or complex type.
	KindNumeric Kind = iota + 1
	// KindBoolean is a property whose underlying type is bool.
	KindBoolean
	// KindArray is a property whose underlying type is a slice or array. It is
	// compared and hashed by content.
	KindArray
	// KindNullableReference is a property that may be nil. Its accessor is
	// annotated with @autovalue.Nullable.
	KindNullableReference
	// KindReference is any other property. If its type can be nil, a nil
	// value is rejected by the constructor.
	KindReference
)

var kindNames = map[Kind]string{
	KindNumeric:           "numeric",
	KindBoolean:           "boolean",
	KindArray:             "array",
	KindNullableReference: "nullable reference",
	KindReference:         "reference",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValueType describes an interface annotated with @autovalue.AutoValue.
type ValueType struct {
	// Name is the simple name of the interface.
	Name string
	// Package is the package that declares the interface.
	Package *types.Package
	// Obj is the declaration of the interface.
	Obj *types.TypeName
	// Interface is the underlying interface type.
	Interface *types.Interface
	// TypeParams are the type parameters of a generic value type, or nil.
	TypeParams *types.TypeParamList
	// Properties are in declaration order, with the methods of embedded
	// interfaces first.
	Properties []*Property
	// CacheHashCode indicates whether generated code computes the hash once
	// and stores it.
	CacheHashCode bool
	// EqualParam is the parameter type of an Equal method declared by the
	// interface, or nil if it declares none.
	EqualParam types.Type
	// Pos is the location of the interface declaration.
	Pos token.Position
}

// QualifiedName returns the package path and name of the value type.
func (vt *ValueType) QualifiedName() string {
	return vt.Package.Path() + "." + vt.Name
}

// IsGeneric returns true if the value type has type parameters.
func (vt *ValueType) IsGeneric() bool {
	return vt.TypeParams != nil && vt.TypeParams.Len() > 0
}

// Property is one accessor method of a value type.
type Property struct {
	// Name is derived from the accessor method name, in lower camel case.
	Name string
	// Method is the accessor method name.
	Method string
	// Func is the accessor method.
	Func     *types.Func
	Type     types.Type
	Nullable bool
	Kind     Kind
	// Strategy is set by SelectStrategies.
	Strategy *Strategy
	Pos      token.Position
}

// GeneratedType is the synthesized implementation of a value type.
type GeneratedType struct {
	ValueType *ValueType
	// TypeName is the name of the generated struct, autoValue_<Name>.
	TypeName string
	// ConstructorName is the name of the generated constructor,
	// newAutoValue_<Name>.
	ConstructorName string
	// Fields are the struct fields (and constructor parameters) in property
	// order.
	Fields []Field
	// FileName is the base name of the generated file.
	FileName string
	// Source is the formatted Go source of the file.
	Source []byte
}

// Field is a field of a generated struct.
type Field struct {
	// Name is the name of the struct field.
	Name string
	// Param is the name of the corresponding constructor parameter.
	Param    string
	Property *Property
}
