package processor

import (
	"go/token"
	"go/types"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NullableSet is the set of accessor methods annotated with
// @autovalue.Nullable.
type NullableSet map[*types.Func]bool

// Extract builds the property model for the given annotated type. Properties
// come from the methods of the interface's embedded interfaces (in source
// order, depth-first) followed by its own methods in declaration order. A
// method reached more than once keeps its first position.
//
// The String, Hash, and Equal methods are reserved: they are implemented by
// generated code and are not properties. The names computeHash and cachedHash
// are also used by generated code, so methods with those names are rejected.
func Extract(fset *token.FileSet, obj *types.TypeName, nullable NullableSet, cacheHashCode bool) (*ValueType, error) {
	iface, err := valueInterface(fset, obj)
	if err != nil {
		return nil, err
	}
	vt := &ValueType{
		Name:          obj.Name(),
		Package:       obj.Pkg(),
		Obj:           obj,
		Interface:     iface,
		CacheHashCode: cacheHashCode,
		Pos:           fset.Position(obj.Pos()),
	}
	if named, ok := obj.Type().(*types.Named); ok {
		vt.TypeParams = named.TypeParams()
	}

	var methods []*types.Func
	collectMethods(iface, map[string]bool{}, &methods)

	var accessors []*types.Func
	for _, m := range methods {
		reserved, err := checkReserved(vt, m)
		if err != nil {
			return nil, NewErrorWithPosition(fset.Position(m.Pos()), err)
		}
		if reserved {
			continue
		}
		if err := checkAccessor(vt, m); err != nil {
			return nil, NewErrorWithPosition(fset.Position(m.Pos()), err)
		}
		accessors = append(accessors, m)
	}

	strip := len(accessors) > 0
	for _, m := range accessors {
		if _, ok := stripPrefix(m); !ok {
			strip = false
			break
		}
	}
	for _, m := range accessors {
		name := m.Name()
		if strip {
			name, _ = stripPrefix(m)
		}
		typ := resultType(m)
		isNullable := nullable[m.Origin()]
		vt.Properties = append(vt.Properties, &Property{
			Name:     lowerCamel(name),
			Method:   m.Name(),
			Func:     m,
			Type:     typ,
			Nullable: isNullable,
			Kind:     classify(typ, isNullable),
			Pos:      fset.Position(m.Pos()),
		})
	}
	return vt, nil
}

// collectMethods appends the methods of iface to methods, embedded interfaces
// first. The go/types package sorts an interface's explicit methods by name,
// so declaration order is recovered from their positions.
func collectMethods(iface *types.Interface, seen map[string]bool, methods *[]*types.Func) {
	for i := 0; i < iface.NumEmbeddeds(); i++ {
		if embedded, ok := iface.EmbeddedType(i).Underlying().(*types.Interface); ok {
			collectMethods(embedded, seen, methods)
		}
	}
	own := make([]*types.Func, iface.NumExplicitMethods())
	for i := range own {
		own[i] = iface.ExplicitMethod(i)
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Pos() < own[j].Pos()
	})
	for _, m := range own {
		if seen[m.Id()] {
			continue
		}
		seen[m.Id()] = true
		*methods = append(*methods, m)
	}
}

// checkReserved returns true if m is one of the reserved methods. It returns
// an error if m has the name of a reserved method but the wrong signature.
func checkReserved(vt *ValueType, m *types.Func) (bool, error) {
	sig := m.Type().(*types.Signature)
	malformed := func(reason string) error {
		return &MalformedAccessorError{Type: vt.Name, Method: m.Name(), Reason: reason}
	}
	switch m.Name() {
	case "String":
		if sig.Params().Len() != 0 || sig.Results().Len() != 1 || !types.Identical(sig.Results().At(0).Type(), types.Typ[types.String]) {
			return false, malformed("String is reserved and must have signature String() string")
		}
		return true, nil
	case "Hash":
		if sig.Params().Len() != 0 || sig.Results().Len() != 1 || !types.Identical(sig.Results().At(0).Type(), types.Typ[types.Uint64]) {
			return false, malformed("Hash is reserved and must have signature Hash() uint64")
		}
		return true, nil
	case "Equal":
		if sig.Params().Len() != 1 || sig.Variadic() || sig.Results().Len() != 1 || !types.Identical(sig.Results().At(0).Type(), types.Typ[types.Bool]) {
			return false, malformed("Equal is reserved and must have signature Equal(T) bool")
		}
		param := sig.Params().At(0).Type()
		if _, ok := param.Underlying().(*types.Interface); !ok {
			return false, malformed("the parameter of Equal must be an interface type")
		}
		if _, isTypeParam := param.(*types.TypeParam); isTypeParam {
			return false, malformed("the parameter of Equal must not be a type parameter")
		}
		vt.EqualParam = param
		return true, nil
	case "computeHash", "cachedHash":
		return false, malformed(m.Name() + " is used by generated code and cannot be an accessor")
	}
	return false, nil
}

func checkAccessor(vt *ValueType, m *types.Func) error {
	sig := m.Type().(*types.Signature)
	var reason string
	switch {
	case !m.Exported() && m.Pkg() != vt.Package:
		reason = "unexported method of another package cannot be implemented"
	case sig.Params().Len() != 0:
		reason = "accessor must not have parameters"
	case sig.Results().Len() == 0:
		reason = "accessor must return a value"
	case sig.Results().Len() > 1:
		reason = "accessor must return exactly one value"
	default:
		return nil
	}
	return &MalformedAccessorError{Type: vt.Name, Method: m.Name(), Reason: reason}
}

func resultType(m *types.Func) types.Type {
	return m.Type().(*types.Signature).Results().At(0).Type()
}

// stripPrefix returns the name of m without a "Get" prefix, or without an
// "Is" prefix if m returns a boolean. The second result is false if m has no
// such prefix.
func stripPrefix(m *types.Func) (string, bool) {
	name := m.Name()
	for _, prefix := range []string{"Get", "get"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok && startsUpper(rest) {
			return rest, true
		}
	}
	if !isBoolean(resultType(m)) {
		return "", false
	}
	for _, prefix := range []string{"Is", "is"} {
		if rest, ok := strings.CutPrefix(name, prefix); ok && startsUpper(rest) {
			return rest, true
		}
	}
	return "", false
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func isBoolean(t types.Type) bool {
	if _, ok := t.(*types.TypeParam); ok {
		return false
	}
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsBoolean != 0
}

// lowerCamel lower-cases the first letter of s. A leading initialism is
// lowered as a unit: "ID" becomes "id" and "URLPath" becomes "urlPath".
func lowerCamel(s string) string {
	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		// the last upper-case letter starts the next word
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// classify returns the kind of a property with the given type.
func classify(t types.Type, nullable bool) Kind {
	if _, ok := t.(*types.TypeParam); ok {
		return KindReference
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsBoolean != 0:
			return KindBoolean
		case u.Info()&types.IsNumeric != 0:
			return KindNumeric
		case u.Kind() == types.UnsafePointer && nullable:
			return KindNullableReference
		}
	case *types.Slice, *types.Array:
		return KindArray
	case *types.Pointer, *types.Interface, *types.Chan, *types.Signature, *types.Map:
		if nullable {
			return KindNullableReference
		}
	}
	return KindReference
}

// isNilable returns true if nil is a valid value of type t.
func isNilable(t types.Type) bool {
	if _, ok := t.(*types.TypeParam); ok {
		return false
	}
	switch u := t.Underlying().(type) {
	case *types.Pointer, *types.Interface, *types.Chan, *types.Signature, *types.Map, *types.Slice:
		return true
	case *types.Basic:
		return u.Kind() == types.UnsafePointer
	}
	return false
}
