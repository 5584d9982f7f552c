package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/autovalue"
)

// OutputFactory is a function that creates a writer to an output for the
// given location. Output factories typically use os.OpenFile to create files
// but this function allows the behavior to be customized.
type OutputFactory func(path string) (io.WriteCloser, error)

// Processor is a function that acts on annotations and is invoked from the
// annotation processor tool. Generate is the processor that implements value
// types; others may be registered with RegisterProcessor.
type Processor func(ctx *Context, output OutputFactory) error

// DefaultOutputFactory returns the OutputFactory used when a Config does not
// specify one. It creates the parent directory of the given path if necessary
// and then uses os.OpenFile to open the file for writing (creating the file if
// necessary, truncating it if it already exists).
func DefaultOutputFactory() OutputFactory {
	return func(path string) (io.WriteCloser, error) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create output directory %s: %w", dir, err)
		}
		return os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

// Emit writes source to the output that the given factory creates for path.
// Source must be fully rendered before calling Emit, so that a failure never
// leaves a partially generated file behind.
func Emit(out OutputFactory, path string, source []byte) (err error) {
	w, err := out(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = w.Write(source)
	return err
}

// Package is a type-checked package to process.
type Package struct {
	Fset  *token.FileSet
	Files []*ast.File
	Types *types.Package
	// Info must include Defs.
	Info *types.Info
	// Dir is the directory that contains the package's source files. Output
	// files are written there unless Config.OutputDir is set.
	Dir string
	// ForTest is true for a package that is compiled for its tests. Only the
	// types declared in _test.go files of such a package are processed,
	// since the others are processed with the package itself.
	ForTest bool
}

// Config represents the configuration for running one or more Processors.
// Callers should configure the exported fields and then call the Execute
// method to actually invoke the processors.
type Config struct {
	// Patterns are package patterns, as accepted by "go list", that are
	// loaded and processed.
	Patterns []string
	// Dir is the directory in which to resolve Patterns. If empty, the
	// current directory is used.
	Dir string
	// Tests indicates whether value types declared in test files are
	// processed.
	Tests bool
	// Packages are already loaded packages to process, in addition to those
	// matched by Patterns.
	Packages []*Package
	// Processors are invoked, in order, for each package. If empty, only
	// Generate is invoked.
	Processors []Processor
	// OutputFactory creates outputs. If nil, DefaultOutputFactory is used.
	OutputFactory OutputFactory
	// OutputDir, if not empty, is a root directory for generated files. Files
	// for a package are written to <OutputDir>/<package path>.
	OutputDir string
	// Workers is the maximum number of value types of a package that are
	// generated concurrently. If zero, runtime.GOMAXPROCS(0) is used.
	Workers int
	// DefaultCacheHashCode is the value of AutoValue.CacheHashCode when an
	// annotation does not set it. If nil, autovalue.DefaultCacheHashCode is
	// used.
	DefaultCacheHashCode *bool
	// SkipRegistry disables generation of registry files.
	SkipRegistry bool
	// Logger receives progress and failures. If nil, nothing is logged.
	Logger *zap.Logger
}

// Result describes the outcome of Config.Execute.
type Result struct {
	// Generated are the value types that were generated, per package in
	// declaration order.
	Generated []*GeneratedType
	// Failures are the value types (or packages) that could not be
	// processed.
	Failures []*TypeError
}

// Err returns nil if there are no failures. Otherwise, it returns all failures
// joined into one error.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Execute invokes the configured processors for the configured packages,
// writing outputs using the configured OutputFactory. A value type that
// cannot be generated is recorded as a failure in the returned result and does
// not prevent generation of other types. The returned error joins all
// failures. Cancelling ctx abandons the remaining work.
func (cfg *Config) Execute(ctx context.Context) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cfg.OutputFactory
	if out == nil {
		out = DefaultOutputFactory()
	}
	procs := cfg.Processors
	if len(procs) == 0 {
		procs = []Processor{Generate}
	}

	res := &Result{}
	pkgs := append([]*Package(nil), cfg.Packages...)
	if len(cfg.Patterns) > 0 {
		loaded, failures, err := load(ctx, cfg, logger)
		if err != nil {
			return res, err
		}
		pkgs = append(pkgs, loaded...)
		res.Failures = append(res.Failures, failures...)
	}

	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c := newContext(ctx, pkg, cfg, logger, res)
		c.logger.Debug("processing package", zap.Int("files", len(pkg.Files)))
		c.collectAnnotations()
		for _, proc := range procs {
			if err := proc(c, out); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return res, ctxErr
				}
				c.fail("", err)
			}
		}
		res.Failures = append(res.Failures, c.failures...)
	}
	return res, res.Err()
}

// load loads the packages matched by the configured patterns. Packages that
// cannot be loaded are returned as failures. Type errors are tolerated, since
// a package usually refers to generated code that is stale or absent.
func load(ctx context.Context, cfg *Config, logger *zap.Logger) ([]*Package, []*TypeError, error) {
	conf := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo,
		Dir:   cfg.Dir,
		Tests: cfg.Tests,
		ParseFile: func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
			if isGeneratedSource(src) {
				// keep only the package clause of files we generate, so that
				// stale output cannot break type checking of the input
				return goparser.ParseFile(fset, filename, src, goparser.PackageClauseOnly)
			}
			return goparser.ParseFile(fset, filename, src, goparser.ParseComments|goparser.AllErrors)
		},
	}
	loaded, err := packages.Load(conf, cfg.Patterns...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading packages: %w", err)
	}

	var pkgs []*Package
	var failures []*TypeError
	for _, p := range loaded {
		if strings.HasSuffix(p.ID, ".test") {
			// synthesized test main
			continue
		}
		parsed := p.Types != nil && len(p.Syntax) > 0
		var loadErrs []error
		for _, e := range p.Errors {
			if e.Kind == packages.TypeError || (parsed && isCompileError(e)) {
				logger.Debug("ignoring type error", zap.String("package", p.PkgPath), zap.String("error", e.Error()))
				continue
			}
			loadErrs = append(loadErrs, e)
		}
		if len(loadErrs) > 0 || p.Types == nil || p.TypesInfo == nil {
			if len(loadErrs) == 0 {
				loadErrs = append(loadErrs, errors.New("no type information"))
			}
			failures = append(failures, &TypeError{Package: p.PkgPath, Err: errors.Join(loadErrs...)})
			continue
		}
		var dir string
		if len(p.GoFiles) > 0 {
			dir = filepath.Dir(p.GoFiles[0])
		}
		pkgs = append(pkgs, &Package{
			Fset:    p.Fset,
			Files:   p.Syntax,
			Types:   p.Types,
			Info:    p.TypesInfo,
			Dir:     dir,
			ForTest: p.ForTest != "",
		})
	}
	return pkgs, failures, nil
}

// isCompileError returns true if e is compiler output that the go command
// reports while building export data. A package that calls constructors
// that have not been generated yet fails to compile until it is processed.
func isCompileError(e packages.Error) bool {
	return e.Kind == packages.ListError && strings.HasPrefix(e.Msg, "# ")
}

func isGeneratedSource(src []byte) bool {
	return bytes.HasPrefix(src, []byte("// "+GeneratedHeader))
}

// Context represents the environment for a processor. It represents a single
// package (for which the processors were invoked) and provides access to the
// value types and nullable accessors found in it.
type Context struct {
	// Package holds all information about the package being processed. It
	// provides access to the ASTs of files in the package as well as the
	// results of type analysis.
	Package *Package

	ctx                  context.Context
	logger               *zap.Logger
	workers              int
	outputDir            string
	defaultCacheHashCode bool
	skipRegistry         bool
	result               *Result

	annotated []*annotatedType
	nullable  NullableSet
	failures  []*TypeError
}

func newContext(ctx context.Context, pkg *Package, cfg *Config, logger *zap.Logger, res *Result) *Context {
	c := &Context{
		Package:              pkg,
		ctx:                  ctx,
		logger:               logger.With(zap.String("package", pkg.Types.Path())),
		workers:              cfg.Workers,
		outputDir:            cfg.OutputDir,
		defaultCacheHashCode: autovalue.DefaultCacheHashCode,
		skipRegistry:         cfg.SkipRegistry,
		result:               res,
		nullable:             NullableSet{},
	}
	if c.workers <= 0 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.DefaultCacheHashCode != nil {
		c.defaultCacheHashCode = *cfg.DefaultCacheHashCode
	}
	return c
}

// Logger returns a logger whose entries identify the context's package.
func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// ValueTypes returns the types in the package that are annotated with
// @autovalue.AutoValue, in declaration order.
func (c *Context) ValueTypes() []*types.TypeName {
	var names []*types.TypeName
	for _, at := range c.annotated {
		if c.shouldProcess(at) {
			names = append(names, at.obj)
		}
	}
	return names
}

// Nullable returns the accessor methods in the package that are annotated
// with @autovalue.Nullable.
func (c *Context) Nullable() NullableSet {
	return c.nullable
}

// OutputPath returns the path of the output file with the given name for the
// context's package.
func (c *Context) OutputPath(fileName string) string {
	if c.outputDir != "" {
		return filepath.Join(c.outputDir, filepath.FromSlash(c.Package.Types.Path()), fileName)
	}
	return filepath.Join(c.Package.Dir, fileName)
}

func (c *Context) fail(typeName string, err error) {
	c.logger.Warn("failed to process value type", zap.String("type", typeName), zap.Error(err))
	c.failures = append(c.failures, &TypeError{Package: c.Package.Types.Path(), Type: typeName, Err: err})
}

func (c *Context) isTestFile(file *ast.File) bool {
	return strings.HasSuffix(c.Package.Fset.Position(file.Package).Filename, "_test.go")
}

func (c *Context) shouldProcess(at *annotatedType) bool {
	return !c.Package.ForTest || c.isTestFile(at.file)
}

// Generate is the Processor that implements value types. The types of a
// package are generated concurrently, each with its own pipeline of Extract,
// Validate, SelectStrategies, and Synthesize. A failure of one type does not
// affect the others. Outputs are then emitted one at a time, in declaration
// order, followed by the package's registry file.
func Generate(c *Context, out OutputFactory) error {
	var todo []*annotatedType
	for _, at := range c.annotated {
		if c.shouldProcess(at) {
			todo = append(todo, at)
		}
	}
	if len(todo) == 0 {
		return nil
	}

	type typeResult struct {
		gen *GeneratedType
		err error
	}
	results := make([]typeResult, len(todo))
	var grp errgroup.Group
	grp.SetLimit(c.workers)
	for i, at := range todo {
		if c.ctx.Err() != nil {
			break
		}
		grp.Go(func() error {
			gen, err := c.generateType(at)
			results[i] = typeResult{gen: gen, err: err}
			return nil
		})
	}
	_ = grp.Wait()
	if err := c.ctx.Err(); err != nil {
		return err
	}

	files := map[string]string{}
	var registered []*GeneratedType
	for i, at := range todo {
		name := at.obj.Name()
		r := results[i]
		if r.err != nil {
			c.fail(name, r.err)
			continue
		}
		if other, ok := files[r.gen.FileName]; ok {
			c.fail(name, fmt.Errorf("output file %s is also generated for %s", r.gen.FileName, other))
			continue
		}
		files[r.gen.FileName] = name

		path := c.OutputPath(r.gen.FileName)
		if err := Emit(out, path, r.gen.Source); err != nil {
			c.fail(name, fmt.Errorf("writing %s: %w", path, err))
			continue
		}
		c.logger.Debug("generated value type", zap.String("type", name), zap.String("file", path))
		c.result.Generated = append(c.result.Generated, r.gen)
		if !r.gen.ValueType.IsGeneric() && !c.isTestFile(at.file) {
			registered = append(registered, r.gen)
		}
	}

	if c.skipRegistry || len(registered) == 0 {
		return nil
	}
	src, err := GenerateRegistry(c.Package.Types, registered)
	if err != nil {
		return err
	}
	path := c.OutputPath(RegistryFileName)
	if err := Emit(out, path, src); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	c.logger.Debug("generated registry", zap.String("file", path), zap.Int("types", len(registered)))
	return nil
}

func (c *Context) generateType(at *annotatedType) (*GeneratedType, error) {
	if at.err != nil {
		return nil, at.err
	}
	fset := c.Package.Fset
	vt, err := Extract(fset, at.obj, c.nullable, at.config.CacheHashCode)
	if err != nil {
		return nil, err
	}
	if err := Validate(fset, vt); err != nil {
		return nil, err
	}
	if err := SelectStrategies(vt); err != nil {
		return nil, NewErrorWithPosition(vt.Pos, err)
	}
	gen, err := Synthesize(vt)
	if err != nil {
		return nil, NewErrorWithPosition(vt.Pos, err)
	}
	if c.isTestFile(at.file) {
		gen.FileName = strings.TrimSuffix(gen.FileName, ".go") + "_test.go"
	}
	return gen, nil
}
