package procparam

import (
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/report"
	"github.com/mpyw/nopanic/internal/traverse"
)

// Sweep finds every call site in u that passes an argument for a procedural
// parameter of m and traverses the argument as a new region. The stack of
// each such region starts at the call site.
//
// Calls in package-level variable initializers are not visited.
func Sweep(u *model.Unit, m *Map, opts traverse.Options) (*traverse.Result, error) {
	out := &traverse.Result{}
	if m.Len() == 0 {
		return out, nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &sweeper{
		unit:   u,
		params: m,
		tr:     traverse.New(u, traverse.Deep, opts),
		logger: logger.With(zap.String("unit", u.Name)),
		out:    out,
	}

	for _, id := range u.Functions() {
		decl, ok := u.Decl(id)
		if !ok {
			continue
		}

		calls, err := s.tr.CallSites(decl)
		if err != nil {
			return nil, err
		}
		for _, call := range calls {
			if err := s.call(decl, call); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

type sweeper struct {
	unit   *model.Unit
	params *Map
	tr     *traverse.Traverser
	logger *zap.Logger
	out    *traverse.Result
}

func (s *sweeper) call(decl *ast.FuncDecl, call *ast.CallExpr) error {
	tgt := s.unit.Resolve(call)
	if tgt.Kind != model.Function && tgt.Kind != model.Method {
		return nil
	}

	callee := funcid.Of(tgt.Func)
	params := s.params.Lookup(callee)
	if len(params) == 0 {
		return nil
	}

	sig, ok := tgt.Func.Type().(*types.Signature)
	if !ok {
		return nil
	}

	for _, p := range params {
		for _, arg := range Arguments(call, sig, p.Index, tgt.MethodExpr) {
			if err := s.argument(decl, call, callee, p, arg); err != nil {
				return err
			}
		}
	}

	return nil
}

// Arguments returns the argument expressions passed for the parameter at
// index of sig. A method expression call passes its receiver first, so its
// arguments are shifted by one. A variadic parameter receives every trailing
// argument, or the elements of a slice literal passed with "...".
func Arguments(call *ast.CallExpr, sig *types.Signature, index int, methodExpr bool) []ast.Expr {
	pos := index
	if methodExpr {
		pos++
	}

	if sig.Variadic() && index == sig.Params().Len()-1 {
		if !call.Ellipsis.IsValid() {
			if pos > len(call.Args) {
				return nil
			}

			return call.Args[pos:]
		}
		if pos >= len(call.Args) {
			return nil
		}
		lit, ok := ast.Unparen(call.Args[pos]).(*ast.CompositeLit)
		if !ok {
			return nil
		}

		elts := make([]ast.Expr, len(lit.Elts))
		for i, e := range lit.Elts {
			if kv, ok := e.(*ast.KeyValueExpr); ok {
				e = kv.Value
			}
			elts[i] = e
		}

		return elts
	}

	if pos >= len(call.Args) {
		return nil
	}

	return call.Args[pos : pos+1]
}

func (s *sweeper) argument(decl *ast.FuncDecl, call *ast.CallExpr, callee funcid.ID, p *Param, arg ast.Expr) error {
	site := s.frameAt("argument of "+callee.String(), call.Pos())
	stack := report.Stack{}.Push(site)

	var entries []traverse.Entry
	if p.Called {
		entries = append(entries, s.callables(decl, arg, true)...)
	}
	for _, method := range p.Methods {
		for _, t := range s.concreteTypes(decl, arg) {
			fn, ok := s.unit.MethodOf(t, method)
			if !ok {
				continue
			}
			entries = append(entries, traverse.Entry{
				Kind:     traverse.EntryFunc,
				Func:     fn,
				Pos:      arg.Pos(),
				Recv:     t,
				TypeArgs: model.MethodTypeArgs(fn),
			})
		}
	}

	if len(entries) == 0 {
		s.logger.Debug("higher-order argument not resolved",
			zap.Stringer("callee", callee),
			zap.Int("param", p.Index),
			zap.String("at", s.unit.Position(arg.Pos()).String()),
		)

		return nil
	}

	for _, e := range entries {
		e.Origin = p.Region
		e.Site = site
		e.Stack = stack

		res, err := s.tr.Run(e)
		if err != nil {
			return err
		}
		s.merge(res)
	}

	return nil
}

// callables resolves a function-valued argument to the bodies it may run.
func (s *sweeper) callables(decl *ast.FuncDecl, arg ast.Expr, followBindings bool) []traverse.Entry {
	arg = ast.Unparen(arg)

	if lit, ok := arg.(*ast.FuncLit); ok {
		return []traverse.Entry{{Kind: traverse.EntryBlock, Block: lit.Body}}
	}

	tgt := s.unit.ResolveRef(arg)
	switch tgt.Kind {
	case model.Function:
		return []traverse.Entry{{Kind: traverse.EntryFunc, Func: tgt.Func, Pos: arg.Pos(), TypeArgs: tgt.TypeArgs}}
	case model.Method:
		return []traverse.Entry{{
			Kind:     traverse.EntryFunc,
			Func:     tgt.Func,
			Pos:      arg.Pos(),
			Recv:     tgt.RecvType,
			TypeArgs: model.MethodTypeArgs(tgt.Func),
		}}
	case model.Abstract:
		if tgt.Recv == nil {
			return nil
		}
		st, ok := s.unit.StaticType(tgt.Recv)
		if !ok {
			return nil
		}
		impl, ok := s.unit.FindImplementation(tgt.Func, st)
		if !ok {
			return nil
		}

		return []traverse.Entry{{
			Kind:     traverse.EntryFunc,
			Func:     impl,
			Pos:      arg.Pos(),
			Recv:     st,
			TypeArgs: model.MethodTypeArgs(impl),
		}}
	case model.LocalBinding:
		if !followBindings {
			return nil
		}

		var out []traverse.Entry
		for _, b := range bindings(s.unit.Info, decl, tgt.Var) {
			out = append(out, s.callables(decl, b, false)...)
		}

		return out
	}

	return nil
}

// concreteTypes returns the dynamic types arg may have.
func (s *sweeper) concreteTypes(decl *ast.FuncDecl, arg ast.Expr) []types.Type {
	if t := s.unit.Info.TypeOf(arg); t != nil && !types.IsInterface(t) {
		return []types.Type{t}
	}
	if st, ok := s.unit.StaticType(arg); ok {
		return []types.Type{st}
	}

	ident, ok := ast.Unparen(arg).(*ast.Ident)
	if !ok {
		return nil
	}
	v, ok := s.unit.Info.Uses[ident].(*types.Var)
	if !ok {
		return nil
	}

	var out []types.Type
	for _, b := range bindings(s.unit.Info, decl, v) {
		if t := s.unit.Info.TypeOf(b); t != nil && !types.IsInterface(t) {
			out = append(out, t)
		} else if st, ok := s.unit.StaticType(b); ok {
			out = append(out, st)
		}
	}

	return out
}

// bindings returns the expressions assigned to v inside decl.
func bindings(info *types.Info, decl *ast.FuncDecl, v *types.Var) []ast.Expr {
	if decl.Body == nil {
		return nil
	}

	is := func(ident *ast.Ident) bool {
		return info.Defs[ident] == v || info.Uses[ident] == v
	}

	var out []ast.Expr
	ast.Inspect(decl.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if len(n.Lhs) != len(n.Rhs) {
				return true
			}
			for i, lhs := range n.Lhs {
				if ident, ok := lhs.(*ast.Ident); ok && is(ident) {
					out = append(out, n.Rhs[i])
				}
			}
		case *ast.ValueSpec:
			if len(n.Names) != len(n.Values) {
				return true
			}
			for i, name := range n.Names {
				if is(name) {
					out = append(out, n.Values[i])
				}
			}
		}

		return true
	})

	return out
}

func (s *sweeper) frameAt(desc string, pos token.Pos) report.Frame {
	return report.Frame{
		Desc:     desc,
		Unit:     s.unit.Name,
		Pos:      pos,
		Position: s.unit.Position(pos),
	}
}

func (s *sweeper) merge(res *traverse.Result) {
	s.out.Functions = append(s.out.Functions, res.Functions...)
	s.out.Methods = append(s.out.Methods, res.Methods...)
	s.out.Findings = append(s.out.Findings, res.Findings...)
	s.out.Suppressions = append(s.out.Suppressions, res.Suppressions...)
}
