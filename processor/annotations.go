package processor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path"
	"reflect"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/jhump/autovalue"
	"github.com/jhump/autovalue/parser"
)

var autoValuePkg, autoValueName, nullableName string

func init() {
	f := func(rt reflect.Type) (string, string) {
		return rt.PkgPath(), rt.Name()
	}
	autoValuePkg, autoValueName = f(reflect.TypeOf(autovalue.AutoValue{}))
	_, nullableName = f(reflect.TypeOf(autovalue.Nullable(false)))
}

// annotation is a parsed annotation that refers to a type in the autovalue
// package. Annotations from other packages are ignored, since they may be
// meant for other processors.
type annotation struct {
	name     string
	value    parser.ExpressionNode
	pos      token.Position
	adjuster posAdjuster
}

// annotatedType is a type declaration whose doc comment has an
// @autovalue.AutoValue annotation.
type annotatedType struct {
	obj    *types.TypeName
	file   *ast.File
	config autovalue.AutoValue
	// err is set when the annotations on the type, or on the methods of its
	// interface, are invalid.
	err error
}

// collectAnnotations finds all annotated types and all nullable accessor
// methods in the context's package.
func (c *Context) collectAnnotations() {
	for _, file := range c.Package.Files {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, s := range gen.Specs {
				spec := s.(*ast.TypeSpec)
				doc := spec.Doc
				if doc == nil && len(gen.Specs) == 1 {
					doc = gen.Doc
				}
				c.collectFromType(file, spec, doc)
			}
		}
	}
}

func (c *Context) collectFromType(file *ast.File, spec *ast.TypeSpec, doc *ast.CommentGroup) {
	obj, _ := c.Package.Info.Defs[spec.Name].(*types.TypeName)
	if obj == nil {
		return
	}
	var at *annotatedType
	var firstErr error
	annos, err := c.parseAnnotations(file, doc)
	if err != nil {
		firstErr = err
	}
	for _, a := range annos {
		switch a.name {
		case autoValueName:
			if at != nil {
				if firstErr == nil {
					firstErr = validationError(a.pos, obj.Name(), "", InvalidAnnotation, "@autovalue.%s is repeated", a.name)
				}
				continue
			}
			at = &annotatedType{obj: obj, file: file}
			at.config, err = c.autoValueConfig(file, obj.Name(), a)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			if firstErr == nil {
				firstErr = validationError(a.pos, obj.Name(), "", InvalidAnnotation, "@autovalue.%s cannot be used on a type", a.name)
			}
		}
	}

	if iface, ok := spec.Type.(*ast.InterfaceType); ok && iface.Methods != nil {
		for _, field := range iface.Methods.List {
			if err := c.collectFromMethod(file, obj.Name(), field); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	switch {
	case at != nil:
		at.err = firstErr
		c.annotated = append(c.annotated, at)
	case firstErr != nil && (!c.Package.ForTest || c.isTestFile(file)):
		c.failures = append(c.failures, &TypeError{Package: c.Package.Types.Path(), Type: obj.Name(), Err: firstErr})
	}
}

func (c *Context) collectFromMethod(file *ast.File, typeName string, field *ast.Field) error {
	if len(field.Names) == 0 {
		// embedded interface or type term
		return nil
	}
	annos, err := c.parseAnnotations(file, field.Doc)
	if err != nil {
		return err
	}
	seen := false
	for _, a := range annos {
		if a.name != nullableName {
			return validationError(a.pos, typeName, "", InvalidAnnotation, "@autovalue.%s cannot be used on a method", a.name)
		}
		if seen {
			return validationError(a.pos, typeName, "", InvalidAnnotation, "@autovalue.%s is repeated", a.name)
		}
		seen = true
		nullable := true
		if a.value != nil {
			if _, ok := a.value.(parser.AggregateNode); ok {
				return validationError(a.pos, typeName, "", InvalidAnnotation, "@autovalue.%s takes a bool value", a.name)
			}
			nullable, err = c.boolValue(file, a.value, a.adjuster, typeName)
			if err != nil {
				return err
			}
		}
		if fn, ok := c.Package.Info.Defs[field.Names[0]].(*types.Func); ok && nullable {
			c.nullable[fn] = true
		}
	}
	return nil
}

// parseAnnotations returns the annotations in the given doc comment that refer
// to the autovalue package.
func (c *Context) parseAnnotations(file *ast.File, doc *ast.CommentGroup) ([]annotation, error) {
	if _, ok := hasAnnotations(doc); !ok {
		return nil, nil
	}
	buf, adjuster := c.extractAnnotations(doc)
	if buf == nil {
		return nil, nil
	}

	parsed, perr := parser.ParseAnnotations("", buf)
	if perr != nil {
		pos := adjuster.adjustPosition(perr.Pos())
		return nil, NewErrorWithPosition(pos, perr.Underlying())
	}

	var annos []annotation
	for _, a := range parsed {
		pkgPath, ok := c.resolvePackage(file, a.Type.PackageAlias)
		if !ok || pkgPath != autoValuePkg {
			continue
		}
		pos := adjuster.adjustPosition(a.Type.Pos)
		if a.Type.Name != autoValueName && a.Type.Name != nullableName {
			return nil, NewErrorWithPosition(pos, &ValidationError{Kind: InvalidAnnotation, Detail: fmt.Sprintf("%v is not an annotation type", a.Type)})
		}
		annos = append(annos, annotation{name: a.Type.Name, value: a.Value, pos: pos, adjuster: adjuster})
	}
	return annos, nil
}

// resolvePackage returns the import path of the package that the given alias
// refers to in the given file. An empty alias refers to the file's own
// package, unless it has a dot import of the autovalue package.
func (c *Context) resolvePackage(file *ast.File, alias string) (string, bool) {
	imports := map[string]*types.Package{}
	for _, p := range c.Package.Types.Imports() {
		imports[p.Path()] = p
	}
	var found string
	for _, imp := range file.Imports {
		impPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		var name string
		switch {
		case imp.Name == nil || imp.Name.Name == "_":
			// for "_" imports, we use the package's name as its qualifier
			if p := imports[impPath]; p != nil {
				name = p.Name()
			} else {
				name = path.Base(impPath)
			}
		case imp.Name.Name == ".":
			name = ""
		default:
			name = imp.Name.Name
		}
		if name == alias {
			found = impPath
			break
		}
	}
	if found != "" {
		return found, true
	}
	if alias == "" {
		return c.Package.Types.Path(), true
	}
	return "", false
}

func (c *Context) autoValueConfig(file *ast.File, typeName string, a annotation) (autovalue.AutoValue, error) {
	cfg := autovalue.AutoValue{CacheHashCode: c.defaultCacheHashCode}
	if a.value == nil {
		return cfg, nil
	}
	agg, ok := a.value.(parser.AggregateNode)
	if !ok {
		return cfg, validationError(a.adjuster.adjustPosition(a.value.Pos()), typeName, "", InvalidAnnotation, "@autovalue.%s is a struct; its value must be in braces", a.name)
	}

	rv := reflect.ValueOf(&cfg).Elem()
	set := map[string]bool{}
	for i, el := range agg.Contents {
		pos := a.adjuster.adjustPosition(el.Pos())
		var field reflect.StructField
		if el.HasKey {
			key, ok := el.Key.(parser.RefNode)
			if !ok || key.Ident.PackageAlias != "" {
				return cfg, validationError(pos, typeName, "", InvalidAnnotation, "struct keys must be field names")
			}
			f, ok := rv.Type().FieldByName(key.Ident.Name)
			if !ok || !f.IsExported() {
				return cfg, validationError(pos, typeName, "", InvalidAnnotation, "@autovalue.%s has no field named %s", a.name, key.Ident.Name)
			}
			field = f
		} else {
			if i >= rv.NumField() {
				return cfg, validationError(pos, typeName, "", InvalidAnnotation, "too many values for @autovalue.%s", a.name)
			}
			field = rv.Type().Field(i)
		}
		if set[field.Name] {
			return cfg, validationError(pos, typeName, "", InvalidAnnotation, "field %s is set more than once", field.Name)
		}
		set[field.Name] = true

		if field.Type.Kind() != reflect.Bool {
			// all fields of AutoValue are bools
			return cfg, validationError(pos, typeName, "", InvalidAnnotation, "field %s has unsupported type %v", field.Name, field.Type)
		}
		v, err := c.boolValue(file, el.Value, a.adjuster, typeName)
		if err != nil {
			return cfg, err
		}
		rv.FieldByIndex(field.Index).SetBool(v)
	}
	return cfg, nil
}

// boolValue evaluates a literal or a reference to a named constant as a bool.
func (c *Context) boolValue(file *ast.File, n parser.ExpressionNode, adjuster posAdjuster, typeName string) (bool, error) {
	pos := adjuster.adjustPosition(n.Pos())
	var val constant.Value
	switch n := n.(type) {
	case parser.LiteralNode:
		val = n.Val
	case parser.RefNode:
		pkgPath, ok := c.resolvePackage(file, n.Ident.PackageAlias)
		if !ok {
			return false, validationError(pos, typeName, "", InvalidAnnotation, "symbol %v does not exist", n.Ident)
		}
		scope := c.Package.Types.Scope()
		if pkgPath != c.Package.Types.Path() {
			scope = nil
			for _, p := range c.Package.Types.Imports() {
				if p.Path() == pkgPath {
					scope = p.Scope()
					break
				}
			}
		}
		var obj types.Object
		if scope != nil {
			obj = scope.Lookup(n.Ident.Name)
		}
		cnst, ok := obj.(*types.Const)
		if !ok {
			return false, validationError(pos, typeName, "", InvalidAnnotation, "%v is not a constant", n.Ident)
		}
		val = cnst.Val()
	}
	if val == nil || val.Kind() != constant.Bool {
		return false, validationError(pos, typeName, "", InvalidAnnotation, "expecting a bool value")
	}
	return constant.BoolVal(val), nil
}

// extractAnnotations returns the text of the doc comment, starting with the
// first line that begins with '@'. The returned adjuster maps positions in
// that text back to positions in the source file.
func (c *Context) extractAnnotations(doc *ast.CommentGroup) (*bytes.Buffer, posAdjuster) {
	if doc == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	var adjuster posAdjuster
	found := false
	prevSingleLine := false
	var pos token.Position
	for _, l := range doc.List {
		txt := l.Text
		singleLine := false
		if strings.HasPrefix(txt, "/*") {
			txt = txt[2:]
			txt = strings.TrimSuffix(txt, "*/")
		} else if strings.HasPrefix(txt, "//") {
			singleLine = true
			txt = txt[2:]
		}

		if singleLine != prevSingleLine {
			found = false
			buf.Reset()
			prevSingleLine = singleLine
			adjuster = nil
		}

		pos = c.Package.Fset.Position(l.Slash)
		// skip past opening "//" or "/*"
		pos.Offset += 2
		pos.Column += 2

		for _, line := range strings.Split(txt, "\n") {
			trimmed := strings.TrimSpace(line)
			if !found && trimmed != "" && trimmed[0] == '@' {
				found = true
			}
			if found {
				adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}

		// set this so we can record end of input as the last entry in adjuster
		pos = c.Package.Fset.Position(l.End())
	}
	if !found {
		return nil, nil
	}
	adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
	return &buf, adjuster
}

type posAdj struct {
	outOffset int
	inPos     token.Position
}

type posAdjuster []posAdj

func (a posAdjuster) adjustPosition(pos scanner.Position) token.Position {
	if pos.Line < 1 || pos.Line > len(a) {
		if len(a) == 0 {
			return token.Position{}
		}
		return a[len(a)-1].inPos
	}
	el := a[pos.Line-1]
	var tok token.Position
	tok.Filename = el.inPos.Filename
	tok.Line = el.inPos.Line
	tok.Column = el.inPos.Column + pos.Column - 1
	tok.Offset = el.inPos.Offset + (pos.Offset - el.outOffset)
	return tok
}

func hasAnnotations(doc *ast.CommentGroup) (token.Pos, bool) {
	if doc == nil {
		return 0, false
	}
	for _, l := range doc.List {
		txt := strings.TrimPrefix(strings.TrimPrefix(l.Text, "//"), "/*")
		for _, line := range strings.Split(txt, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && trimmed[0] == '@' {
				return l.Slash, true
			}
		}
	}
	return 0, false
}
