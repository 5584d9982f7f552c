package processor

import (
	"fmt"
	"go/token"
	"go/types"
)

// valueInterface returns the interface underlying obj. It fails if obj is not
// an interface or if it is an interface that can only be used as a type
// constraint.
func valueInterface(fset *token.FileSet, obj *types.TypeName) (*types.Interface, error) {
	pos := fset.Position(obj.Pos())
	iface, ok := obj.Type().Underlying().(*types.Interface)
	if !ok || obj.IsAlias() {
		return nil, validationError(pos, obj.Name(), "", NotAnInterface, "%s is %s", obj.Name(), describeType(obj))
	}
	if !iface.IsMethodSet() {
		return nil, validationError(pos, obj.Name(), "", ConstraintInterface, "%s has type terms and can only be used as a constraint", obj.Name())
	}
	return iface, nil
}

func describeType(obj *types.TypeName) string {
	if obj.IsAlias() {
		return "an alias"
	}
	switch obj.Type().Underlying().(type) {
	case *types.Struct:
		return "a struct"
	case *types.Basic:
		return "a basic type"
	default:
		return "not an interface"
	}
}

// Validate checks the structural preconditions of a value type: property names
// are unique, property types can be named in generated code and have a usable
// equality and hash, and only nilable properties are nullable. A value type
// with no properties is valid.
func Validate(fset *token.FileSet, vt *ValueType) error {
	names := map[string]*Property{}
	for _, p := range vt.Properties {
		if prev, ok := names[p.Name]; ok {
			return validationError(p.Pos, vt.Name, p.Name, DuplicateProperty,
				"accessors %s and %s both define property %s", prev.Method, p.Method, p.Name)
		}
		names[p.Name] = p
	}

	for _, p := range vt.Properties {
		if reason := unnameable(p.Type, vt.Package, map[types.Type]bool{}); reason != "" {
			return validationError(p.Pos, vt.Name, p.Name, UnnameableType, "type %s %s", typeString(p.Type, vt.Package), reason)
		}
		if p.Nullable && !isNilable(p.Type) {
			return validationError(p.Pos, vt.Name, p.Name, InvalidNullable, "type %s cannot be nil", typeString(p.Type, vt.Package))
		}
		if _, reason := strategyFor(p.Type, map[types.Type]bool{}); reason != "" {
			return validationError(p.Pos, vt.Name, p.Name, UnsupportedType, "type %s %s", typeString(p.Type, vt.Package), reason)
		}
	}

	if vt.IsGeneric() {
		for i := 0; i < vt.TypeParams.Len(); i++ {
			tp := vt.TypeParams.At(i)
			if reason := unnameable(tp.Constraint(), vt.Package, map[types.Type]bool{}); reason != "" {
				return validationError(vt.Pos, vt.Name, "", UnnameableType, "constraint of %s %s", tp.Obj().Name(), reason)
			}
		}
	}
	return nil
}

func typeString(t types.Type, pkg *types.Package) string {
	return types.TypeString(t, types.RelativeTo(pkg))
}

// unnameable returns a reason why t cannot be written in code in package pkg,
// or the empty string if it can.
func unnameable(t types.Type, pkg *types.Package, seen map[types.Type]bool) string {
	if seen[t] {
		return ""
	}
	seen[t] = true

	checkObj := func(obj *types.TypeName, args *types.TypeList) string {
		if obj.Pkg() != nil {
			if obj.Parent() != nil && obj.Parent() != obj.Pkg().Scope() {
				return fmt.Sprintf("refers to type %s declared inside a function", obj.Name())
			}
			if obj.Pkg() != pkg && !obj.Exported() {
				return fmt.Sprintf("refers to unexported type %s of package %s", obj.Name(), obj.Pkg().Path())
			}
		}
		for i := 0; i < args.Len(); i++ {
			if reason := unnameable(args.At(i), pkg, seen); reason != "" {
				return reason
			}
		}
		return ""
	}

	switch t := t.(type) {
	case *types.Basic:
		if t.Kind() == types.Invalid {
			return "is invalid"
		}
		if t.Info()&types.IsUntyped != 0 {
			return "is untyped"
		}
	case *types.Named:
		return checkObj(t.Obj(), t.TypeArgs())
	case *types.Alias:
		return checkObj(t.Obj(), t.TypeArgs())
	case *types.TypeParam:
		return ""
	case *types.Pointer:
		return unnameable(t.Elem(), pkg, seen)
	case *types.Slice:
		return unnameable(t.Elem(), pkg, seen)
	case *types.Array:
		return unnameable(t.Elem(), pkg, seen)
	case *types.Chan:
		return unnameable(t.Elem(), pkg, seen)
	case *types.Map:
		if reason := unnameable(t.Key(), pkg, seen); reason != "" {
			return reason
		}
		return unnameable(t.Elem(), pkg, seen)
	case *types.Signature:
		for _, tuple := range []*types.Tuple{t.Params(), t.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				if reason := unnameable(tuple.At(i).Type(), pkg, seen); reason != "" {
					return reason
				}
			}
		}
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			f := t.Field(i)
			if t.Tag(i) != "" {
				return "is an anonymous struct with field tags"
			}
			if !f.Exported() && f.Pkg() != pkg {
				return fmt.Sprintf("is an anonymous struct with unexported field %s of package %s", f.Name(), f.Pkg().Path())
			}
			if reason := unnameable(f.Type(), pkg, seen); reason != "" {
				return reason
			}
		}
	case *types.Interface:
		for i := 0; i < t.NumExplicitMethods(); i++ {
			m := t.ExplicitMethod(i)
			if !m.Exported() && m.Pkg() != pkg {
				return fmt.Sprintf("is an interface with unexported method %s of package %s", m.Name(), m.Pkg().Path())
			}
			if reason := unnameable(m.Type(), pkg, seen); reason != "" {
				return reason
			}
		}
		for i := 0; i < t.NumEmbeddeds(); i++ {
			if reason := unnameable(t.EmbeddedType(i), pkg, seen); reason != "" {
				return reason
			}
		}
	case *types.Union:
		for i := 0; i < t.Len(); i++ {
			if reason := unnameable(t.Term(i).Type(), pkg, seen); reason != "" {
				return reason
			}
		}
	default:
		return fmt.Sprintf("has unsupported form %T", t)
	}
	return ""
}
