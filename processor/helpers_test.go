package processor

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPkgPath = "example.com/values"

// runtimeSource declares the parts of the runtime package that annotations
// and generated code refer to.
const runtimeSource = `package autovalue

import (
	"fmt"
	"time"
)

const DefaultCacheHashCode = true

type AutoValue struct {
	CacheHashCode bool
}

type Nullable bool

const (
	HashSeed  uint64 = 1
	HashPrime uint64 = 1000003
	NilHash   uint64 = 0x9e3779b97f4a7c15
)

type NullPropertyError struct {
	Type     string
	Property string
}

func (e *NullPropertyError) Error() string { return e.Type + "." + e.Property }

type HashCache struct {
	value uint64
}

func (c *HashCache) Get(compute func() uint64) uint64 { return compute() }

func Mix(h, v uint64) uint64 { return h*HashPrime + v }

func HashBool[T ~bool](v T) uint64 { return 0 }

func HashString[T ~string](v T) uint64 { return 0 }

func HashFloat32[T ~float32](v T) uint64 { return 0 }

func HashFloat64[T ~float64](v T) uint64 { return 0 }

func HashComplex64[T ~complex64](v T) uint64 { return 0 }

func HashComplex128[T ~complex128](v T) uint64 { return 0 }

func EqualFloat32[T ~float32](a, b T) bool { return a == b }

func EqualFloat64[T ~float64](a, b T) bool { return a == b }

func EqualComplex64[T ~complex64](a, b T) bool { return a == b }

func EqualComplex128[T ~complex128](a, b T) bool { return a == b }

func HashTime(t time.Time) uint64 { return 0 }

func Equal[T comparable](a, b T) bool { return a == b }

func Hash[T comparable](v T) uint64 { return 0 }

func Deref[T any](p *T) any { return nil }

func DerefAll[T any](v T) fmt.Formatter { return nil }
`

type testImporter struct {
	std     types.Importer
	runtime *types.Package
}

func (imp *testImporter) Import(path string) (*types.Package, error) {
	if path == autoValuePkg {
		return imp.runtime, nil
	}
	return imp.std.Import(path)
}

func newTestImporter(t *testing.T, fset *token.FileSet) *testImporter {
	t.Helper()
	f, err := parser.ParseFile(fset, "autovalue.go", runtimeSource, parser.ParseComments)
	require.NoError(t, err)
	std := importer.ForCompiler(fset, "source", nil)
	conf := types.Config{Importer: std}
	rt, err := conf.Check(autoValuePkg, fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return &testImporter{std: std, runtime: rt}
}

// loadPackage type-checks the given files, keyed by file name, as the package
// example.com/values.
func loadPackage(t *testing.T, files map[string]string) *Package {
	t.Helper()
	fset := token.NewFileSet()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var asts []*ast.File
	for _, name := range names {
		f, err := parser.ParseFile(fset, "/src/values/"+name, files[name], parser.ParseComments)
		require.NoError(t, err)
		asts = append(asts, f)
	}
	info := &types.Info{
		Defs:  map[*ast.Ident]types.Object{},
		Uses:  map[*ast.Ident]types.Object{},
		Types: map[ast.Expr]types.TypeAndValue{},
	}
	conf := types.Config{Importer: newTestImporter(t, fset)}
	pkg, err := conf.Check(testPkgPath, fset, asts, info)
	require.NoError(t, err)
	return &Package{Fset: fset, Files: asts, Types: pkg, Info: info, Dir: "/src/values"}
}

// testContext returns a context for the given source, with annotations
// already collected.
func testContext(t *testing.T, src string) *Context {
	t.Helper()
	pkg := loadPackage(t, map[string]string{"values.go": src})
	c := newContext(context.Background(), pkg, &Config{}, zap.NewNop(), &Result{})
	c.collectAnnotations()
	return c
}

// extract runs Extract for the annotated type with the given name.
func extract(t *testing.T, src, name string) (*ValueType, error) {
	t.Helper()
	c := testContext(t, src)
	for _, at := range c.annotated {
		if at.obj.Name() != name {
			continue
		}
		if at.err != nil {
			return nil, at.err
		}
		return Extract(c.Package.Fset, at.obj, c.nullable, at.config.CacheHashCode)
	}
	t.Fatalf("type %s is not annotated", name)
	return nil, nil
}

// prepare runs Extract, Validate, and SelectStrategies, failing the test on
// any error.
func prepare(t *testing.T, src, name string) *ValueType {
	t.Helper()
	vt, err := extract(t, src, name)
	require.NoError(t, err)
	require.NoError(t, Validate(token.NewFileSet(), vt))
	require.NoError(t, SelectStrategies(vt))
	return vt
}

func propertyNames(vt *ValueType) []string {
	names := make([]string, len(vt.Properties))
	for i, p := range vt.Properties {
		names[i] = p.Name
	}
	return names
}

func property(t *testing.T, vt *ValueType, name string) *Property {
	t.Helper()
	for _, p := range vt.Properties {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("%s has no property %s", vt.Name, name)
	return nil
}

// requireLines checks that each of the given lines appears in src, ignoring
// indentation, in the given order.
func requireLines(t *testing.T, src []byte, lines ...string) {
	t.Helper()
	var trimmed []string
	for _, l := range strings.Split(string(src), "\n") {
		trimmed = append(trimmed, strings.TrimSpace(l))
	}
	next := 0
	for _, want := range lines {
		found := false
		for next < len(trimmed) {
			next++
			if trimmed[next-1] == want {
				found = true
				break
			}
		}
		require.True(t, found, "line %q not found (in order) in:\n%s", want, src)
	}
}

// memOutput is an OutputFactory that keeps files in memory.
type memOutput struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
	fail  map[string]bool
}

func newMemOutput() *memOutput {
	return &memOutput{files: map[string]*bytes.Buffer{}, fail: map[string]bool{}}
}

func (m *memOutput) factory(path string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[path] {
		return nil, fmt.Errorf("cannot create %s", path)
	}
	buf := &bytes.Buffer{}
	m.files[path] = buf
	return nopCloser{buf}, nil
}

func (m *memOutput) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *memOutput) contents() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	contents := map[string]string{}
	for p, buf := range m.files {
		contents[p] = buf.String()
	}
	return contents
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
