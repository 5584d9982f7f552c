package processor

import (
	"bytes"
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"github.com/dave/jennifer/jen"
)

// GeneratedHeader is the first line of every generated file.
const GeneratedHeader = "Code generated by autovalue. DO NOT EDIT."

// TypeName returns the name of the struct generated for the named value type.
func TypeName(valueType string) string {
	return "autoValue_" + valueType
}

// ConstructorName returns the name of the constructor generated for the named
// value type.
func ConstructorName(valueType string) string {
	return "newAutoValue_" + valueType
}

// FileName returns the base name of the file generated for the named value
// type.
func FileName(valueType string) string {
	return strings.ToLower(valueType) + "_autovalue.go"
}

// Synthesize generates the implementation of a value type whose strategies
// have been selected. The output only depends on the value type, so
// synthesizing the same value type twice produces identical source.
func Synthesize(vt *ValueType) (*GeneratedType, error) {
	s := &synthesizer{
		vt:       vt,
		file:     jen.NewFilePathName(vt.Package.Path(), vt.Package.Name()),
		typeName: TypeName(vt.Name),
		ctorName: ConstructorName(vt.Name),
	}
	s.file.HeaderComment(GeneratedHeader)
	s.file.ImportName(autoValuePkg, "autovalue")
	s.assignNames()

	s.genStruct()
	s.genConstructor()
	s.genAccessors()
	s.genEqual()
	s.genHash()
	s.genString()
	if !vt.IsGeneric() {
		s.file.Line()
		s.file.Var().Id("_").Add(s.ifaceType()).Op("=").Parens(jen.Op("*").Id(s.typeName)).Call(jen.Nil())
	}

	var buf bytes.Buffer
	if err := s.file.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering implementation of %s: %w", vt.Name, err)
	}
	return &GeneratedType{
		ValueType:       vt,
		TypeName:        s.typeName,
		ConstructorName: s.ctorName,
		Fields:          s.fields,
		FileName:        FileName(vt.Name),
		Source:          buf.Bytes(),
	}, nil
}

type synthesizer struct {
	vt       *ValueType
	file     *jen.File
	typeName string
	ctorName string
	fields   []Field
}

// assignNames chooses field and parameter names for all properties. A field
// may not be a keyword or collide with a method of the generated struct. A
// parameter additionally may not shadow a predeclared identifier or a name
// that the constructor refers to.
func (s *synthesizer) assignNames() {
	methods := map[string]bool{
		"Equal":       true,
		"Hash":        true,
		"String":      true,
		"computeHash": true,
		"cachedHash":  true,
	}
	for _, p := range s.vt.Properties {
		methods[p.Method] = true
	}
	reservedParams := map[string]bool{
		"autovalue": true,
		s.typeName:  true,
		s.vt.Name:   true,
	}
	for _, name := range types.Universe.Names() {
		reservedParams[name] = true
	}
	if s.vt.IsGeneric() {
		for i := 0; i < s.vt.TypeParams.Len(); i++ {
			reservedParams[s.vt.TypeParams.At(i).Obj().Name()] = true
		}
	}

	usedFields := map[string]bool{}
	usedParams := map[string]bool{}
	for _, p := range s.vt.Properties {
		name := p.Name
		for token.IsKeyword(name) || methods[name] || usedFields[name] {
			name += "_"
		}
		usedFields[name] = true
		param := name
		for reservedParams[param] || usedParams[param] {
			param += "_"
		}
		usedParams[param] = true
		s.fields = append(s.fields, Field{Name: name, Param: param, Property: p})
	}
}

func (s *synthesizer) genStruct() {
	s.file.Commentf("%s is the generated implementation of %s.", s.typeName, s.vt.Name)
	decl := s.file.Type().Id(s.typeName)
	if s.vt.IsGeneric() {
		decl.Add(s.typeParamsDecl())
	}
	decl.StructFunc(func(g *jen.Group) {
		for _, f := range s.fields {
			g.Id(f.Name).Add(s.typeCode(f.Property.Type))
		}
		if s.vt.CacheHashCode {
			g.Id("cachedHash").Qual(autoValuePkg, "HashCache")
		}
	})
}

func (s *synthesizer) genConstructor() {
	s.file.Line()
	s.file.Commentf("%s returns a new %s with the given property values. It returns a", s.ctorName, s.vt.Name)
	s.file.Comment("*autovalue.NullPropertyError if a non-nullable property is nil.")
	decl := s.file.Func().Id(s.ctorName)
	if s.vt.IsGeneric() {
		decl.Add(s.typeParamsDecl())
	}
	decl.ParamsFunc(func(g *jen.Group) {
		for _, f := range s.fields {
			g.Id(f.Param).Add(s.typeCode(f.Property.Type))
		}
	}).Params(s.ifaceType(), jen.Error()).BlockFunc(func(g *jen.Group) {
		for _, f := range s.fields {
			if !f.Property.Strategy.CheckNil {
				continue
			}
			g.If(jen.Id(f.Param).Op("==").Nil()).Block(
				jen.Return(jen.Nil(), jen.Op("&").Qual(autoValuePkg, "NullPropertyError").Values(
					jen.Id("Type").Op(":").Lit(s.vt.Name),
					jen.Id("Property").Op(":").Lit(f.Property.Name),
				)),
			)
		}
		g.Return(jen.Op("&").Add(s.selfType()).ValuesFunc(func(g *jen.Group) {
			for _, f := range s.fields {
				g.Id(f.Name).Op(":").Id(f.Param)
			}
		}), jen.Nil())
	})
}

func (s *synthesizer) genAccessors() {
	for _, f := range s.fields {
		s.file.Line()
		s.method(f.Property.Method).Params().Add(s.typeCode(f.Property.Type)).Block(
			jen.Return(jen.Id("v").Dot(f.Name)),
		)
	}
}

func (s *synthesizer) genEqual() {
	param := s.ifaceType()
	if s.vt.EqualParam != nil {
		param = s.typeCode(s.vt.EqualParam)
	}
	s.file.Line()
	s.file.Comment("Equal reports whether other is the same type and has equal properties.")
	s.method("Equal").Params(jen.Id("other").Add(param)).Bool().BlockFunc(func(g *jen.Group) {
		g.List(jen.Id("o"), jen.Id("ok")).Op(":=").Id("other").Assert(jen.Op("*").Add(s.selfType()))
		g.If(jen.Op("!").Id("ok").Op("||").Id("o").Op("==").Nil()).Block(jen.Return(jen.False()))
		g.If(jen.Id("v").Op("==").Id("o")).Block(jen.Return(jen.True()))
		for _, f := range s.fields {
			s.equalStmts(g, f.Property.Strategy, fieldOf("v", f.Name), fieldOf("o", f.Name), 0)
		}
		g.Return(jen.True())
	})
}

func (s *synthesizer) genHash() {
	s.file.Line()
	s.file.Comment("Hash returns a hash of the properties, consistent with Equal.")
	s.method("Hash").Params().Uint64().BlockFunc(func(g *jen.Group) {
		if s.vt.CacheHashCode {
			g.Return(jen.Id("v").Dot("cachedHash").Dot("Get").Call(jen.Id("v").Dot("computeHash")))
		} else {
			g.Return(jen.Id("v").Dot("computeHash").Call())
		}
	})

	s.file.Line()
	s.method("computeHash").Params().Uint64().BlockFunc(func(g *jen.Group) {
		g.Id("h").Op(":=").Qual(autoValuePkg, "HashSeed")
		for _, f := range s.fields {
			s.hashStmts(g, f.Property.Strategy, fieldOf("v", f.Name), "h", 0, false)
		}
		g.Return(jen.Id("h"))
	})
}

func (s *synthesizer) genString() {
	var format strings.Builder
	format.WriteString(s.vt.Name)
	format.WriteByte('{')
	var args []jen.Code
	for i, f := range s.fields {
		if i > 0 {
			format.WriteString(", ")
		}
		format.WriteString(f.Property.Name)
		format.WriteString("=%v")
		arg := jen.Id("v").Dot(f.Name)
		switch {
		case hasNestedPointer(f.Property.Type):
			arg = jen.Qual(autoValuePkg, "DerefAll").Call(arg)
		case isPointer(f.Property.Type):
			arg = jen.Qual(autoValuePkg, "Deref").Call(arg)
		}
		args = append(args, arg)
	}
	format.WriteByte('}')

	s.file.Line()
	s.file.Comment("String returns the type name followed by each property name and value.")
	s.method("String").Params().String().BlockFunc(func(g *jen.Group) {
		if len(args) == 0 {
			g.Return(jen.Lit(format.String()))
			return
		}
		g.Return(jen.Qual("fmt", "Sprintf").Call(append([]jen.Code{jen.Lit(format.String())}, args...)...))
	})
}

// method starts the declaration of a method of the generated struct.
func (s *synthesizer) method(name string) *jen.Statement {
	return s.file.Func().Params(jen.Id("v").Op("*").Add(s.selfType())).Id(name)
}

// selfType refers to the generated struct, instantiated with its own type
// parameters if it is generic.
func (s *synthesizer) selfType() *jen.Statement {
	return jen.Id(s.typeName).Add(s.typeArgs())
}

// ifaceType refers to the value type interface, instantiated with the type
// parameters of the generated code if it is generic.
func (s *synthesizer) ifaceType() *jen.Statement {
	return jen.Id(s.vt.Name).Add(s.typeArgs())
}

func (s *synthesizer) typeArgs() *jen.Statement {
	if !s.vt.IsGeneric() {
		return jen.Null()
	}
	return jen.TypesFunc(func(g *jen.Group) {
		for i := 0; i < s.vt.TypeParams.Len(); i++ {
			g.Id(s.vt.TypeParams.At(i).Obj().Name())
		}
	})
}

func (s *synthesizer) typeParamsDecl() *jen.Statement {
	return jen.TypesFunc(func(g *jen.Group) {
		for i := 0; i < s.vt.TypeParams.Len(); i++ {
			tp := s.vt.TypeParams.At(i)
			g.Id(tp.Obj().Name()).Add(s.constraintCode(tp.Constraint()))
		}
	})
}

func (s *synthesizer) constraintCode(c types.Type) *jen.Statement {
	if iface, ok := c.(*types.Interface); ok && iface.IsImplicit() && iface.NumEmbeddeds() == 1 {
		return s.typeCode(iface.EmbeddedType(0))
	}
	return s.typeCode(c)
}

// operand is a value that generated code compares or hashes. A dereferenced
// pointer must be parenthesized before a selector or index.
type operand struct {
	code    func() *jen.Statement
	derefed bool
}

func fieldOf(recv, name string) operand {
	return operand{code: func() *jen.Statement { return jen.Id(recv).Dot(name) }}
}

func local(name string) operand {
	return operand{code: func() *jen.Statement { return jen.Id(name) }}
}

func (o operand) expr() *jen.Statement {
	return o.code()
}

func (o operand) primary() *jen.Statement {
	if o.derefed {
		return jen.Parens(o.code())
	}
	return o.code()
}

func (o operand) deref() operand {
	return operand{code: func() *jen.Statement { return jen.Op("*").Add(o.primary()) }, derefed: true}
}

func (o operand) index(i string) operand {
	return operand{code: func() *jen.Statement { return o.primary().Index(jen.Id(i)) }}
}

func isNilCheck(a, b operand) *jen.Statement {
	return jen.Parens(a.expr().Op("==").Nil()).Op("!=").Parens(b.expr().Op("==").Nil())
}

// equalExprOK returns true if values with strategy st can be compared with
// a single expression, without loops.
func equalExprOK(st *Strategy) bool {
	switch st.Equality {
	case EqualElements:
		return false
	case EqualPointee:
		return equalExprOK(st.Elem)
	}
	return true
}

// notEqual returns an expression that is true when a and b differ. The second
// result is true if the expression is a disjunction, which must be
// parenthesized when it is an operand of &&.
func (s *synthesizer) notEqual(st *Strategy, a, b operand) (*jen.Statement, bool) {
	var neq *jen.Statement
	compound := false
	switch st.Equality {
	case EqualOperator:
		return a.expr().Op("!=").Add(b.expr()), false
	case EqualFloat32:
		neq = jen.Op("!").Qual(autoValuePkg, "EqualFloat32").Call(a.expr(), b.expr())
	case EqualFloat64:
		neq = jen.Op("!").Qual(autoValuePkg, "EqualFloat64").Call(a.expr(), b.expr())
	case EqualComplex64:
		neq = jen.Op("!").Qual(autoValuePkg, "EqualComplex64").Call(a.expr(), b.expr())
	case EqualComplex128:
		neq = jen.Op("!").Qual(autoValuePkg, "EqualComplex128").Call(a.expr(), b.expr())
	case EqualMethod:
		neq = jen.Op("!").Add(a.primary()).Dot("Equal").Call(b.expr())
	case EqualDelegate:
		neq = jen.Op("!").Qual(autoValuePkg, "Equal").Call(a.expr(), b.expr())
	case EqualPointee:
		neq, compound = s.notEqual(st.Elem, a.deref(), b.deref())
	}
	if !st.Nullable {
		return neq, compound
	}
	if compound {
		neq = jen.Parens(neq)
	}
	return isNilCheck(a, b).Op("||").Add(a.expr()).Op("!=").Nil().Op("&&").Add(neq), true
}

// equalStmts adds statements to g that return false when a and b differ.
// Loops over elements use index variables named by depth: i1, i2, and so on.
func (s *synthesizer) equalStmts(g *jen.Group, st *Strategy, a, b operand, depth int) {
	if equalExprOK(st) {
		neq, _ := s.notEqual(st, a, b)
		g.If(neq).Block(jen.Return(jen.False()))
		return
	}
	_, isSlice := st.Type.Underlying().(*types.Slice)
	switch {
	case st.Nullable && st.Equality == EqualElements && isSlice:
		g.If(isNilCheck(a, b).Op("||").Len(a.expr()).Op("!=").Len(b.expr())).Block(jen.Return(jen.False()))
		s.elementLoop(g, st, a, b, depth)
	case st.Nullable:
		inner := *st
		inner.Nullable = false
		g.If(isNilCheck(a, b)).Block(jen.Return(jen.False()))
		g.If(a.expr().Op("!=").Nil()).BlockFunc(func(g *jen.Group) {
			s.equalStmts(g, &inner, a, b, depth)
		})
	case st.Equality == EqualPointee:
		s.equalStmts(g, st.Elem, a.deref(), b.deref(), depth)
	case st.Equality == EqualElements:
		if isSlice {
			g.If(jen.Len(a.expr()).Op("!=").Len(b.expr())).Block(jen.Return(jen.False()))
		}
		s.elementLoop(g, st, a, b, depth)
	}
}

func (s *synthesizer) elementLoop(g *jen.Group, st *Strategy, a, b operand, depth int) {
	i := fmt.Sprintf("i%d", depth+1)
	g.For(jen.Id(i).Op(":=").Range().Add(a.expr())).BlockFunc(func(g *jen.Group) {
		s.equalStmts(g, st.Elem, a.index(i), b.index(i), depth+1)
	})
}

// hashExprOK returns true if the hash of a value with strategy st can be
// computed with a single expression.
func hashExprOK(st *Strategy) bool {
	if st.Nullable {
		return false
	}
	switch st.Hash {
	case HashElements:
		return false
	case HashPointee:
		return hashExprOK(st.Elem)
	}
	return true
}

func (s *synthesizer) hashExpr(st *Strategy, x operand) *jen.Statement {
	switch st.Hash {
	case HashInteger:
		return jen.Uint64().Call(x.expr())
	case HashBool:
		return jen.Qual(autoValuePkg, "HashBool").Call(x.expr())
	case HashFloat32:
		return jen.Qual(autoValuePkg, "HashFloat32").Call(x.expr())
	case HashFloat64:
		return jen.Qual(autoValuePkg, "HashFloat64").Call(x.expr())
	case HashComplex64:
		return jen.Qual(autoValuePkg, "HashComplex64").Call(x.expr())
	case HashComplex128:
		return jen.Qual(autoValuePkg, "HashComplex128").Call(x.expr())
	case HashString:
		return jen.Qual(autoValuePkg, "HashString").Call(x.expr())
	case HashMethod:
		return x.primary().Dot("Hash").Call()
	case HashTime:
		return jen.Qual(autoValuePkg, "HashTime").Call(x.expr())
	case HashPointee:
		return s.hashExpr(st.Elem, x.deref())
	default:
		return jen.Qual(autoValuePkg, "Hash").Call(x.expr())
	}
}

// hashStmts adds statements to g that mix the hash of x into the accumulator
// acc. Element loops declare an accumulator and element variable named by
// depth (h1 and e1, and so on); unless g is a fresh scope, they are wrapped in
// a block so that they do not collide with those of sibling properties.
func (s *synthesizer) hashStmts(g *jen.Group, st *Strategy, x operand, acc string, depth int, fresh bool) {
	mix := func(g *jen.Group, v jen.Code) {
		g.Id(acc).Op("=").Qual(autoValuePkg, "Mix").Call(jen.Id(acc), v)
	}
	if hashExprOK(st) {
		mix(g, s.hashExpr(st, x))
		return
	}
	if st.Nullable {
		inner := *st
		inner.Nullable = false
		g.If(x.expr().Op("==").Nil()).BlockFunc(func(g *jen.Group) {
			mix(g, jen.Qual(autoValuePkg, "NilHash"))
		}).Else().BlockFunc(func(g *jen.Group) {
			s.hashStmts(g, &inner, x, acc, depth, true)
		})
		return
	}
	switch st.Hash {
	case HashPointee:
		s.hashStmts(g, st.Elem, x.deref(), acc, depth, fresh)
	case HashElements:
		loop := func(g *jen.Group) {
			h := fmt.Sprintf("h%d", depth+1)
			e := fmt.Sprintf("e%d", depth+1)
			g.Id(h).Op(":=").Qual(autoValuePkg, "HashSeed")
			g.For(jen.List(jen.Id("_"), jen.Id(e)).Op(":=").Range().Add(x.expr())).BlockFunc(func(g *jen.Group) {
				s.hashStmts(g, st.Elem, local(e), h, depth+1, true)
			})
			mix(g, jen.Id(h))
		}
		if fresh {
			loop(g)
		} else {
			g.BlockFunc(loop)
		}
	}
}

func isPointer(t types.Type) bool {
	if _, ok := t.(*types.TypeParam); ok {
		return false
	}
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

// hasNestedPointer returns true if t is a slice, array, or pointer whose
// elements are, or contain, pointers.
func hasNestedPointer(t types.Type) bool {
	for {
		if _, ok := t.(*types.TypeParam); ok {
			return false
		}
		var elem types.Type
		switch u := t.Underlying().(type) {
		case *types.Pointer:
			elem = u.Elem()
		case *types.Slice:
			elem = u.Elem()
		case *types.Array:
			elem = u.Elem()
		default:
			return false
		}
		if isPointer(elem) {
			return true
		}
		t = elem
	}
}

// typeCode renders a type as it is written in the package of the value type.
func (s *synthesizer) typeCode(t types.Type) *jen.Statement {
	switch t := t.(type) {
	case *types.Basic:
		if t.Kind() == types.UnsafePointer {
			return jen.Qual("unsafe", "Pointer")
		}
		return jen.Id(t.Name())
	case *types.Named:
		return s.namedCode(t.Obj(), t.TypeArgs())
	case *types.Alias:
		return s.namedCode(t.Obj(), t.TypeArgs())
	case *types.TypeParam:
		return jen.Id(t.Obj().Name())
	case *types.Pointer:
		return jen.Op("*").Add(s.typeCode(t.Elem()))
	case *types.Slice:
		return jen.Index().Add(s.typeCode(t.Elem()))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(s.typeCode(t.Elem()))
	case *types.Map:
		return jen.Map(s.typeCode(t.Key())).Add(s.typeCode(t.Elem()))
	case *types.Chan:
		elem := s.typeCode(t.Elem())
		switch t.Dir() {
		case types.SendOnly:
			return jen.Chan().Op("<-").Add(elem)
		case types.RecvOnly:
			return jen.Op("<-").Chan().Add(elem)
		}
		if ec, ok := t.Elem().(*types.Chan); ok && ec.Dir() == types.RecvOnly {
			// chan <-chan T would parse as chan<- (chan T)
			elem = jen.Parens(elem)
		}
		return jen.Chan().Add(elem)
	case *types.Signature:
		return jen.Func().Add(s.signatureCode(t))
	case *types.Struct:
		return jen.StructFunc(func(g *jen.Group) {
			for i := 0; i < t.NumFields(); i++ {
				f := t.Field(i)
				if f.Embedded() {
					g.Add(s.typeCode(f.Type()))
				} else {
					g.Id(f.Name()).Add(s.typeCode(f.Type()))
				}
			}
		})
	case *types.Interface:
		if t.NumEmbeddeds() == 0 && t.NumExplicitMethods() == 0 {
			return jen.Interface()
		}
		return jen.InterfaceFunc(func(g *jen.Group) {
			for i := 0; i < t.NumEmbeddeds(); i++ {
				g.Add(s.typeCode(t.EmbeddedType(i)))
			}
			for i := 0; i < t.NumExplicitMethods(); i++ {
				m := t.ExplicitMethod(i)
				g.Id(m.Name()).Add(s.signatureCode(m.Type().(*types.Signature)))
			}
		})
	case *types.Union:
		return jen.UnionFunc(func(g *jen.Group) {
			for i := 0; i < t.Len(); i++ {
				term := t.Term(i)
				if term.Tilde() {
					g.Op("~").Add(s.typeCode(term.Type()))
				} else {
					g.Add(s.typeCode(term.Type()))
				}
			}
		})
	}
	// validation rejects other forms
	return jen.Id(types.TypeString(t, types.RelativeTo(s.vt.Package)))
}

func (s *synthesizer) namedCode(obj *types.TypeName, args *types.TypeList) *jen.Statement {
	var stmt *jen.Statement
	if obj.Pkg() == nil {
		// predeclared, like error, any, and comparable
		stmt = jen.Id(obj.Name())
	} else {
		if obj.Pkg() != s.vt.Package {
			s.file.ImportName(obj.Pkg().Path(), obj.Pkg().Name())
		}
		stmt = jen.Qual(obj.Pkg().Path(), obj.Name())
	}
	if args.Len() > 0 {
		stmt.TypesFunc(func(g *jen.Group) {
			for i := 0; i < args.Len(); i++ {
				g.Add(s.typeCode(args.At(i)))
			}
		})
	}
	return stmt
}

func (s *synthesizer) signatureCode(sig *types.Signature) *jen.Statement {
	stmt := jen.Params(s.tupleCode(sig.Params(), sig.Variadic())...)
	results := sig.Results()
	switch results.Len() {
	case 0:
	case 1:
		stmt.Add(s.typeCode(results.At(0).Type()))
	default:
		stmt.Params(s.tupleCode(results, false)...)
	}
	return stmt
}

func (s *synthesizer) tupleCode(tuple *types.Tuple, variadic bool) []jen.Code {
	codes := make([]jen.Code, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		t := tuple.At(i).Type()
		if variadic && i == tuple.Len()-1 {
			if sl, ok := t.(*types.Slice); ok {
				codes[i] = jen.Op("...").Add(s.typeCode(sl.Elem()))
				continue
			}
		}
		codes[i] = s.typeCode(t)
	}
	return codes
}
