// Package modeltest provides an in-memory model.Provider for tests.
package modeltest

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"sync"
	"testing"

	"github.com/mpyw/nopanic/internal/model"
)

// Program maps import paths to files, each file a name and its source.
type Program map[string]map[string]string

// Provider type-checks units of a Program on demand. Every Load starts from
// a fresh file set, like a real unit load.
type Provider struct {
	prog Program

	mu    sync.Mutex
	loads []string
}

// New creates a provider for prog.
func New(prog Program) *Provider {
	return &Provider{prog: prog}
}

// Load implements model.Provider. An empty name takes the single pattern of
// args as the unit name.
func (p *Provider) Load(_ context.Context, name string, args model.BuildArgs) (*model.Unit, error) {
	if name == "" {
		if len(args.Patterns) != 1 {
			return nil, fmt.Errorf("%w: expected one pattern, got %v", model.ErrConfiguration, args.Patterns)
		}
		name = args.Patterns[0]
	}

	fset := token.NewFileSet()
	files, err := p.parse(fset, name)
	if err != nil {
		return nil, err
	}

	info := NewInfo()
	conf := types.Config{Importer: &programImporter{p: p, fset: fset, cache: make(map[string]*types.Package)}}
	pkg, err := conf.Check(name, fset, files, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrConfiguration, name, err)
	}

	p.mu.Lock()
	p.loads = append(p.loads, name)
	p.mu.Unlock()

	return model.NewUnit(name, fset, files, pkg, info), nil
}

// Loads returns the names of the units loaded so far, in order.
func (p *Provider) Loads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.loads...)
}

// Unit loads a unit and fails the test context on error.
func (p *Provider) Unit(t testing.TB, name string) *model.Unit {
	t.Helper()

	u, err := p.Load(context.Background(), name, model.BuildArgs{})
	if err != nil {
		t.Fatal(err)
	}

	return u
}

func (p *Provider) parse(fset *token.FileSet, path string) ([]*ast.File, error) {
	sources, ok := p.prog[path]
	if !ok {
		return nil, fmt.Errorf("%w: unknown package %q", model.ErrConfiguration, path)
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]*ast.File, 0, len(names))
	for _, name := range names {
		f, err := parser.ParseFile(fset, path+"/"+name, sources[name], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
		}
		files = append(files, f)
	}

	return files, nil
}

// NewInfo returns a types.Info with every map the core reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Instances:  make(map[*ast.Ident]types.Instance),
		Implicits:  make(map[ast.Node]types.Object),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

type programImporter struct {
	p     *Provider
	fset  *token.FileSet
	cache map[string]*types.Package
}

func (imp *programImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := imp.cache[path]; ok {
		return pkg, nil
	}

	if _, ok := imp.p.prog[path]; !ok {
		pkg, err := importer.ForCompiler(imp.fset, "source", nil).Import(path)
		if err != nil {
			return nil, err
		}
		imp.cache[path] = pkg

		return pkg, nil
	}

	files, err := imp.p.parse(imp.fset, path)
	if err != nil {
		return nil, err
	}

	conf := types.Config{Importer: imp}
	pkg, err := conf.Check(path, imp.fset, files, nil)
	if err != nil {
		return nil, err
	}
	imp.cache[path] = pkg

	return pkg, nil
}
