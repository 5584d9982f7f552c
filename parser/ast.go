package parser

import (
	"fmt"
	"go/constant"
	"text/scanner"
)

// ExpressionNode is a node in the AST for annotation values: literals,
// references to named constants, and aggregate (struct, slice, or map)
// values.
type ExpressionNode interface {
	Pos() scanner.Position
}

// LiteralNode is an expression node that represents a literal value, such as a
// number, boolean, or string. A negated numeric literal is folded into a
// single literal node.
type LiteralNode struct {
	Val constant.Value // nil if literal nil
	pos scanner.Position
}

func (n LiteralNode) Pos() scanner.Position {
	return n.pos
}

// IsNil returns true if the literal is the identifier nil.
func (n LiteralNode) IsNil() bool {
	return n.Val == nil
}

// RefNode is an expression node that is a reference to an identifier. In an
// aggregate with keys, a RefNode key names a struct field.
type RefNode struct {
	Ident Identifier
}

func (n RefNode) Pos() scanner.Position {
	return n.Ident.Pos
}

// AggregateNode is an expression node that represents an aggregate value, which
// could be a slice/array, a map, or a struct value.
type AggregateNode struct {
	Contents []Element
	pos      scanner.Position
}

func (n AggregateNode) Pos() scanner.Position {
	return n.pos
}

// Identifier is an AST node that refers to an identifier, possibly qualified
// with a package name/alias.
type Identifier struct {
	PackageAlias string
	Name         string
	Pos          scanner.Position
}

func (id Identifier) String() string {
	if id.PackageAlias == "" {
		return id.Name
	}
	return fmt.Sprintf("%s.%s", id.PackageAlias, id.Name)
}

// Element is an AST node for a component of an aggregate value. Aggregates that
// represent arrays or slices will not have keys. Aggregates that represent
// structs or maps have keys.
type Element struct {
	Key    ExpressionNode
	HasKey bool
	Value  ExpressionNode
}

func (e Element) Pos() scanner.Position {
	if e.HasKey {
		return e.Key.Pos()
	}
	return e.Value.Pos()
}

// Annotation is a fully parsed annotation. It identifies the annotation type
// and has an optional value. If the value is not present, it is assumed to be
// "true" for annotations whose underlying type is bool or the zero value for
// annotations whose type is a struct.
type Annotation struct {
	Type  Identifier
	Value ExpressionNode
	Pos   scanner.Position
}
