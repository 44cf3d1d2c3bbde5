// Package region finds restricted regions in a loaded unit.
package region

import (
	"go/ast"

	"github.com/mpyw/nopanic/internal/directive"
	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/report"
)

// Region is a block marked with //nopanic:deny that is a direct statement of
// a function body.
type Region struct {
	Func  funcid.ID
	Decl  *ast.FuncDecl
	Block *ast.BlockStmt
	// Frame is the origin reported for every finding of the region.
	Frame report.Frame
}

// Scan returns every region of u in declaration order and marks the
// directives it consumed as used.
func Scan(u *model.Unit) []Region {
	var regions []Region

	for _, id := range u.Functions() {
		decl, ok := u.Decl(id)
		if !ok || decl.Body == nil {
			continue
		}

		for _, stmt := range decl.Body.List {
			block, ok := stmt.(*ast.BlockStmt)
			if !ok {
				continue
			}

			entry := u.Directive(block.Lbrace)
			if entry == nil || entry.Kind != directive.Deny {
				continue
			}
			entry.Use()

			regions = append(regions, Region{
				Func:  id,
				Decl:  decl,
				Block: block,
				Frame: report.Frame{
					Desc:     id.String(),
					Unit:     u.Name,
					Pos:      block.Lbrace,
					Position: u.Position(block.Lbrace),
				},
			})
		}
	}

	return regions
}

// Misplaced returns directives that do not mark a usable block: deny
// directives not consumed by Scan and allow directives attached neither to a
// block statement nor to a function body. Scan must run first.
func Misplaced(u *model.Unit) []*directive.Entry {
	allow := func(b *ast.BlockStmt) {
		if b == nil {
			return
		}
		if e := u.Directive(b.Lbrace); e != nil && e.Kind == directive.Allow {
			e.Use()
		}
	}

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
		(*ast.FuncLit)(nil),
		(*ast.BlockStmt)(nil),
		(*ast.CaseClause)(nil),
		(*ast.CommClause)(nil),
	}

	u.Inspector().Preorder(nodeFilter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.FuncDecl:
			allow(n.Body)
		case *ast.FuncLit:
			allow(n.Body)
		}

		for _, stmt := range stmtList(n) {
			if l, ok := stmt.(*ast.LabeledStmt); ok {
				stmt = l.Stmt
			}
			if block, ok := stmt.(*ast.BlockStmt); ok {
				allow(block)
			}
		}
	})

	var out []*directive.Entry
	for _, m := range u.Directives() {
		out = append(out, m.Unused()...)
	}

	return out
}

// stmtList returns the statements directly contained in n.
func stmtList(n ast.Node) []ast.Stmt {
	switch n := n.(type) {
	case *ast.BlockStmt:
		return n.List
	case *ast.CaseClause:
		return n.Body
	case *ast.CommClause:
		return n.Body
	}

	return nil
}
