// Package model is the program model the core analyzes: units, their
// declarations and call resolution.
package model

import (
	"context"
	"errors"
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/inspector"

	"github.com/mpyw/nopanic/internal/directive"
	"github.com/mpyw/nopanic/internal/funcid"
)

// ErrConfiguration is returned when build arguments cannot be loaded.
var ErrConfiguration = errors.New("invalid build configuration")

// BuildArgs are the arguments needed to load one unit.
type BuildArgs struct {
	Patterns   []string `msgpack:"patterns" yaml:"patterns"`
	Dir        string   `msgpack:"dir" yaml:"dir"`
	BuildFlags []string `msgpack:"build_flags" yaml:"build_flags"`
	Env        []string `msgpack:"env" yaml:"env"`
}

// DependencyMap maps unit names to the arguments that load them.
type DependencyMap map[string]BuildArgs

// Provider loads units.
type Provider interface {
	// Load loads the unit named name using args. An empty name loads the
	// single unit args resolve to.
	Load(ctx context.Context, name string, args BuildArgs) (*Unit, error)
}

// Unit is one loaded, type-checked unit.
type Unit struct {
	Name  string
	Fset  *token.FileSet
	Files []*ast.File
	Types *types.Package
	Info  *types.Info

	decls      map[funcid.ID]*ast.FuncDecl
	order      []funcid.ID
	directives map[*token.File]directive.Map
	inspector  *inspector.Inspector
}

// NewUnit indexes the declarations and directives of a type-checked unit.
func NewUnit(name string, fset *token.FileSet, files []*ast.File, pkg *types.Package, info *types.Info) *Unit {
	u := &Unit{
		Name:       name,
		Fset:       fset,
		Files:      files,
		Types:      pkg,
		Info:       info,
		decls:      make(map[funcid.ID]*ast.FuncDecl),
		directives: make(map[*token.File]directive.Map),
	}

	for _, file := range files {
		if tf := fset.File(file.Pos()); tf != nil {
			u.directives[tf] = directive.Build(fset, file)
		}

		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Name.Name == "init" || fd.Name.Name == "_" {
				continue
			}
			fn, ok := info.Defs[fd.Name].(*types.Func)
			if !ok {
				continue
			}
			id := funcid.Of(fn)
			if _, dup := u.decls[id]; dup {
				continue
			}
			u.decls[id] = fd
			u.order = append(u.order, id)
		}
	}

	return u
}

// Inspector returns an inspector over the unit's files, built on first use.
func (u *Unit) Inspector() *inspector.Inspector {
	if u.inspector == nil {
		u.inspector = inspector.New(u.Files)
	}

	return u.inspector
}

// SetInspector reuses an inspector already built over the unit's files.
func (u *Unit) SetInspector(in *inspector.Inspector) {
	u.inspector = in
}

// Functions returns every function and method declared in the unit, in file
// and declaration order.
func (u *Unit) Functions() []funcid.ID {
	return u.order
}

// Decl returns the declaration of id.
func (u *Unit) Decl(id funcid.ID) (*ast.FuncDecl, bool) {
	fd, ok := u.decls[id]

	return fd, ok
}

// IsLocal reports whether id belongs to this unit.
func (u *Unit) IsLocal(id funcid.ID) bool {
	return id.Pkg == u.Types.Path()
}

// Position returns the position of pos in this unit's file set.
func (u *Unit) Position(pos token.Pos) token.Position {
	return u.Fset.Position(pos)
}

// Directive returns the directive attached to a node starting at pos.
func (u *Unit) Directive(pos token.Pos) *directive.Entry {
	tf := u.Fset.File(pos)
	if tf == nil {
		return nil
	}

	m, ok := u.directives[tf]
	if !ok {
		return nil
	}

	return m.At(tf.Line(pos))
}

// Directives returns the directive map of every file.
func (u *Unit) Directives() []directive.Map {
	out := make([]directive.Map, 0, len(u.Files))
	for _, file := range u.Files {
		if m, ok := u.directives[u.Fset.File(file.Pos())]; ok {
			out = append(out, m)
		}
	}

	return out
}

// FuncOf returns the function declared by decl.
func (u *Unit) FuncOf(decl *ast.FuncDecl) (*types.Func, bool) {
	fn, ok := u.Info.Defs[decl.Name].(*types.Func)

	return fn, ok
}
