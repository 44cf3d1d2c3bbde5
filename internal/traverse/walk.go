package traverse

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/model"
)

func (t *Traverser) stmts(list []ast.Stmt, fr *frame) error {
	for _, s := range list {
		if err := t.stmt(s, fr); err != nil {
			return err
		}
	}

	return nil
}

func (t *Traverser) stmt(s ast.Stmt, fr *frame) error {
	switch s := s.(type) {
	case nil:
		return nil
	case *ast.BlockStmt:
		return t.block(s, fr)
	case *ast.ExprStmt:
		return t.expr(s.X, fr)
	case *ast.AssignStmt:
		if err := t.exprs(s.Lhs, fr); err != nil {
			return err
		}

		return t.exprs(s.Rhs, fr)
	case *ast.DeclStmt:
		return t.decl(s.Decl, fr)
	case *ast.ReturnStmt:
		return t.exprs(s.Results, fr)
	case *ast.IfStmt:
		if err := t.stmt(s.Init, fr); err != nil {
			return err
		}
		if err := t.expr(s.Cond, fr); err != nil {
			return err
		}
		if err := t.inner(s.Body, fr); err != nil {
			return err
		}
		if b, ok := s.Else.(*ast.BlockStmt); ok {
			return t.inner(b, fr)
		}

		return t.stmt(s.Else, fr)
	case *ast.ForStmt:
		if err := t.stmt(s.Init, fr); err != nil {
			return err
		}
		if err := t.expr(s.Cond, fr); err != nil {
			return err
		}
		if err := t.stmt(s.Post, fr); err != nil {
			return err
		}

		return t.inner(s.Body, fr)
	case *ast.RangeStmt:
		if err := t.expr(s.X, fr); err != nil {
			return err
		}

		return t.inner(s.Body, fr)
	case *ast.SwitchStmt:
		if err := t.stmt(s.Init, fr); err != nil {
			return err
		}
		if err := t.expr(s.Tag, fr); err != nil {
			return err
		}

		return t.inner(s.Body, fr)
	case *ast.TypeSwitchStmt:
		if err := t.stmt(s.Init, fr); err != nil {
			return err
		}
		if err := t.stmt(s.Assign, fr); err != nil {
			return err
		}

		return t.inner(s.Body, fr)
	case *ast.SelectStmt:
		return t.inner(s.Body, fr)
	case *ast.CaseClause:
		if err := t.exprs(s.List, fr); err != nil {
			return err
		}

		return t.stmts(s.Body, fr)
	case *ast.CommClause:
		if err := t.stmt(s.Comm, fr); err != nil {
			return err
		}

		return t.stmts(s.Body, fr)
	case *ast.GoStmt:
		return t.expr(s.Call, fr)
	case *ast.DeferStmt:
		return t.expr(s.Call, fr)
	case *ast.LabeledStmt:
		return t.stmt(s.Stmt, fr)
	case *ast.IncDecStmt:
		return t.expr(s.X, fr)
	case *ast.SendStmt:
		if err := t.expr(s.Chan, fr); err != nil {
			return err
		}

		return t.expr(s.Value, fr)
	case *ast.BranchStmt, *ast.EmptyStmt:
		return nil
	}

	return t.unsupported(s)
}

func (t *Traverser) decl(d ast.Decl, fr *frame) error {
	gd, ok := d.(*ast.GenDecl)
	if !ok {
		return t.unsupported(d)
	}

	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			// Type and import specs contain no calls.
			continue
		}
		if err := t.exprs(vs.Values, fr); err != nil {
			return err
		}
	}

	return nil
}

func (t *Traverser) exprs(list []ast.Expr, fr *frame) error {
	for _, e := range list {
		if err := t.expr(e, fr); err != nil {
			return err
		}
	}

	return nil
}

func (t *Traverser) expr(e ast.Expr, fr *frame) error {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.CallExpr:
		return t.call(e, fr)
	case *ast.FuncLit:
		// Closures are expanded where they are defined.
		return t.block(e.Body, fr)
	case *ast.Ident:
		if fn, ok := t.unit.Info.Uses[e].(*types.Func); ok {
			return t.valueRef(e, fn, fr)
		}

		return nil
	case *ast.SelectorExpr:
		return t.selector(e, fr)
	case *ast.IndexExpr:
		if tgt := t.unit.ResolveRef(e); tgt.Kind == model.Function {
			return t.reference(tgt.Func, e.Pos(), tgt.TypeArgs, nil, fr)
		}
		if err := t.expr(e.X, fr); err != nil {
			return err
		}

		return t.expr(e.Index, fr)
	case *ast.IndexListExpr:
		if tgt := t.unit.ResolveRef(e); tgt.Kind == model.Function {
			return t.reference(tgt.Func, e.Pos(), tgt.TypeArgs, nil, fr)
		}

		return t.expr(e.X, fr)
	case *ast.BasicLit:
		return nil
	case *ast.CompositeLit:
		return t.exprs(e.Elts, fr)
	case *ast.KeyValueExpr:
		if err := t.expr(e.Key, fr); err != nil {
			return err
		}

		return t.expr(e.Value, fr)
	case *ast.ParenExpr:
		return t.expr(e.X, fr)
	case *ast.SliceExpr:
		return t.exprs([]ast.Expr{e.X, e.Low, e.High, e.Max}, fr)
	case *ast.TypeAssertExpr:
		return t.expr(e.X, fr)
	case *ast.StarExpr:
		return t.expr(e.X, fr)
	case *ast.UnaryExpr:
		return t.expr(e.X, fr)
	case *ast.BinaryExpr:
		if err := t.expr(e.X, fr); err != nil {
			return err
		}

		return t.expr(e.Y, fr)
	case *ast.ArrayType, *ast.ChanType, *ast.FuncType, *ast.InterfaceType,
		*ast.MapType, *ast.StructType, *ast.Ellipsis:
		return nil
	}

	return t.unsupported(e)
}

// valueRef handles a named function used as a value: it may be called by
// whoever receives it.
func (t *Traverser) valueRef(ident *ast.Ident, fn *types.Func, fr *frame) error {
	return t.reference(fn, ident.Pos(), t.unit.ResolveRef(ident).TypeArgs, nil, fr)
}

func (t *Traverser) selector(e *ast.SelectorExpr, fr *frame) error {
	tgt := t.unit.ResolveRef(e)

	switch tgt.Kind {
	case model.Function:
		return t.reference(tgt.Func, e.Sel.Pos(), tgt.TypeArgs, nil, fr)
	case model.Method:
		if err := t.expr(tgt.Recv, fr); err != nil {
			return err
		}
		recv := fr.subst.apply(tgt.RecvType)

		return t.reference(tgt.Func, e.Sel.Pos(), model.MethodTypeArgs(tgt.Func), recv, fr)
	case model.Abstract:
		if err := t.expr(tgt.Recv, fr); err != nil {
			return err
		}

		return t.dispatch(tgt, e.Sel.Pos(), fr)
	}

	// A field access or a qualified variable only evaluates its operand.
	if _, ok := t.unit.Info.Selections[e]; ok {
		return t.expr(e.X, fr)
	}

	return nil
}

func (t *Traverser) call(c *ast.CallExpr, fr *frame) error {
	if t.mode == Shallow {
		t.res.Calls = append(t.res.Calls, c)
	}

	tgt := t.unit.Resolve(c)

	var err error
	switch tgt.Kind {
	case model.Constructor:
		// Conversions never panic on their own.
	case model.Builtin:
		t.builtin(tgt.Builtin, c.Pos(), fr)
	case model.LocalBinding:
		t.param(tgt.Var, nil, fr)
	case model.Function:
		err = t.reference(tgt.Func, c.Pos(), tgt.TypeArgs, nil, fr)
	case model.Method:
		if err = t.expr(tgt.Recv, fr); err != nil {
			return err
		}
		recv := fr.subst.apply(tgt.RecvType)
		err = t.reference(tgt.Func, c.Pos(), model.MethodTypeArgs(tgt.Func), recv, fr)
	case model.Abstract:
		if err = t.expr(tgt.Recv, fr); err != nil {
			return err
		}
		if v := t.recvVar(tgt.Recv); v != nil {
			id := funcid.Of(tgt.Func)
			t.param(v, &id, fr)
		}
		err = t.dispatch(tgt, c.Pos(), fr)
	case model.FuncLit, model.Unknown:
		err = t.expr(c.Fun, fr)
	}
	if err != nil {
		return err
	}

	return t.exprs(c.Args, fr)
}

func (t *Traverser) recvVar(recv ast.Expr) *types.Var {
	ident, ok := ast.Unparen(recv).(*ast.Ident)
	if !ok {
		return nil
	}
	v, _ := t.unit.Info.Uses[ident].(*types.Var)

	return v
}

func (t *Traverser) builtin(name string, pos token.Pos, fr *frame) {
	if t.mode == Shallow || !t.opts.Sinks.Match(funcid.BuiltinUnit, name) {
		return
	}

	t.finding(fr.stack.Push(t.frameAt(name, pos)))
}

// dispatch resolves a dynamically dispatched method call.
func (t *Traverser) dispatch(tgt model.Target, pos token.Pos, fr *frame) error {
	if t.mode == Shallow {
		return nil
	}

	method := tgt.Func
	recv := fr.subst.apply(tgt.RecvType)

	if !types.IsInterface(recv) {
		// The receiver is a type parameter bound by the current instantiation.
		return t.concrete(method, recv, pos, fr)
	}

	if tgt.Recv != nil {
		if st, ok := t.unit.StaticType(tgt.Recv); ok {
			return t.concrete(method, st, pos, fr)
		}
	}

	id := funcid.Of(method)

	if t.opts.FanOut {
		if iface, ok := recv.Underlying().(*types.Interface); ok {
			for _, impl := range t.unit.Implementors(iface) {
				if err := t.concrete(method, impl, pos, fr); err != nil {
					return err
				}
			}
		}
		if !t.unit.IsLocal(id) && !t.opts.Terminal.IsTerminal(id.Pkg) && token.IsIdentifier(id.Recv) {
			t.abstractLeaf(id, pos, fr)
		}

		return nil
	}

	t.logger.Debug("dynamic dispatch not resolved",
		zap.Stringer("method", id),
		zap.String("at", t.unit.Position(pos).String()),
	)

	return nil
}

func (t *Traverser) concrete(method *types.Func, recv types.Type, pos token.Pos, fr *frame) error {
	impl, ok := t.unit.FindImplementation(method, recv)
	if !ok {
		t.logger.Debug("no implementation for receiver",
			zap.Stringer("method", funcid.Of(method)),
			zap.String("recv", types.TypeString(recv, nil)),
		)

		return nil
	}

	return t.reference(impl, pos, model.MethodTypeArgs(impl), recv, fr)
}

// abstractLeaf defers an interface method call to the interface's unit,
// where implementors are enumerated once it is loaded.
func (t *Traverser) abstractLeaf(id funcid.ID, pos token.Pos, fr *frame) {
	key := visitKey{id: id}
	if _, seen := t.visited[key]; seen {
		return
	}
	t.visited[key] = struct{}{}

	t.leaf(id, nil, nil, fr.stack.Push(t.frameAt(id.String(), pos)))
}

func (t *Traverser) unsupported(n ast.Node) error {
	return fmt.Errorf("%w: %T at %s", ErrUnsupportedNode, n, t.unit.Position(n.Pos()))
}
