package processor

import (
	"bytes"
	"fmt"
	"go/types"

	"github.com/jhump/gopoet"
)

// RegistryFileName is the name of the file, generated in each package with
// value types, whose init function registers the package's generated
// implementations with the autovalue runtime.
const RegistryFileName = "autovalue_registry.go"

var reflectTypeOf = gopoet.NewPackage("reflect").Symbol("TypeOf")

// GenerateRegistry returns the source of the registry file for the given
// package. Generic value types cannot be registered, since they have no
// reflect.Type until instantiated, so they must not be included.
func GenerateRegistry(pkg *types.Package, generated []*GeneratedType) ([]byte, error) {
	file := gopoet.NewGoFile(RegistryFileName, pkg.Path(), pkg.Name())
	register := gopoet.NewPackage(autoValuePkg).Symbol("RegisterImplementation")
	for _, imp := range pkg.Imports() {
		if imp.Path() == autoValuePkg {
			register = gopoet.PackageForGoType(imp).Symbol("RegisterImplementation")
			break
		}
	}

	initFunc := gopoet.NewFunc("init")
	for _, gen := range generated {
		if gen.ValueType.IsGeneric() {
			return nil, fmt.Errorf("generic value type %s cannot be registered", gen.ValueType.Name)
		}
		initFunc.Printlnf("%s(%s((*%s)(nil)).Elem(), %s((*%s)(nil)).Elem())",
			register, reflectTypeOf, gen.ValueType.Obj.Type(), reflectTypeOf, gen.TypeName)
	}
	file.AddElement(initFunc)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// %s\n\n", GeneratedHeader)
	if err := gopoet.WriteGoFile(&buf, file); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", RegistryFileName, err)
	}
	return buf.Bytes(), nil
}
