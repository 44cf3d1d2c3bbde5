package model

import (
	"go/ast"
	"go/types"

	"github.com/mpyw/nopanic/internal/funcid"
)

// Kind classifies the callee of a call expression.
type Kind int

const (
	// Unknown is a call through an arbitrary function-valued expression:
	// a struct field, a map or slice element, a call result or a
	// package-level variable.
	Unknown Kind = iota
	// Function is a package-level function.
	Function
	// Method is a statically bound method.
	Method
	// Abstract is a method dispatched dynamically through an interface or
	// a type parameter.
	Abstract
	// Constructor is a type conversion.
	Constructor
	// Builtin is a predeclared function such as panic or len.
	Builtin
	// LocalBinding is a call through a parameter or local variable.
	LocalBinding
	// FuncLit is an immediately invoked function literal.
	FuncLit
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Method:
		return "method"
	case Abstract:
		return "abstract"
	case Constructor:
		return "constructor"
	case Builtin:
		return "builtin"
	case LocalBinding:
		return "local"
	case FuncLit:
		return "funclit"
	}

	return "unknown"
}

// Target is the resolved callee of a call expression.
type Target struct {
	Kind Kind

	// Func is set for Function, Method and Abstract.
	Func *types.Func
	// TypeArgs are the explicit or inferred type arguments of a generic
	// function call.
	TypeArgs []types.Type

	// Recv is the receiver expression of a method value call, nil for
	// method expressions.
	Recv ast.Expr
	// RecvType is the static receiver type of a method call.
	RecvType types.Type
	// MethodExpr is set for T.M(recv, args...), where the receiver is the
	// first argument.
	MethodExpr bool

	// Builtin names the predeclared function.
	Builtin string
	// Var is the variable called through for LocalBinding.
	Var *types.Var
}

// ID returns the identity of the resolved function.
func (t Target) ID() (funcid.ID, bool) {
	if t.Func == nil {
		return funcid.ID{}, false
	}

	return funcid.Of(t.Func), true
}

// Resolve classifies the callee of call.
func (u *Unit) Resolve(call *ast.CallExpr) Target {
	fun := ast.Unparen(call.Fun)

	if tv, ok := u.Info.Types[fun]; ok && tv.IsType() {
		return Target{Kind: Constructor}
	}

	if _, ok := fun.(*ast.FuncLit); ok {
		return Target{Kind: FuncLit}
	}

	return u.ResolveRef(fun)
}

// ResolveRef classifies a function-valued expression used as a callee or
// as a value.
func (u *Unit) ResolveRef(expr ast.Expr) Target {
	expr = ast.Unparen(expr)

	var ident *ast.Ident
	switch e := expr.(type) {
	case *ast.IndexExpr:
		// Only an instantiation F[T]; fns[i] is an ordinary index.
		if id := instIdent(e.X); id != nil {
			if _, ok := u.Info.Instances[id]; ok {
				ident = id
			}
		}
	case *ast.IndexListExpr:
		ident = instIdent(e.X)
	case *ast.Ident:
		ident = e
	case *ast.SelectorExpr:
		if sel, ok := u.Info.Selections[e]; ok {
			return u.resolveSelection(e, sel)
		}
		ident = e.Sel
	}

	if ident == nil {
		return Target{Kind: Unknown}
	}

	switch obj := u.Info.Uses[ident].(type) {
	case *types.Builtin:
		return Target{Kind: Builtin, Builtin: obj.Name()}
	case *types.Func:
		return Target{Kind: Function, Func: obj, TypeArgs: u.typeArgs(ident)}
	case *types.Var:
		if obj.Parent() != nil && (obj.Pkg() == nil || obj.Parent() != obj.Pkg().Scope()) {
			return Target{Kind: LocalBinding, Var: obj}
		}
	}

	return Target{Kind: Unknown}
}

func (u *Unit) resolveSelection(e *ast.SelectorExpr, sel *types.Selection) Target {
	fn, ok := sel.Obj().(*types.Func)
	if !ok {
		// Calls through a function-typed field are not resolved.
		return Target{Kind: Unknown}
	}

	t := Target{Kind: Method, Func: fn, RecvType: sel.Recv()}
	if sel.Kind() == types.MethodExpr {
		t.MethodExpr = true
	} else {
		t.Recv = e.X
	}

	if funcid.IsAbstract(fn) {
		t.Kind = Abstract
	}

	return t
}

// instIdent returns the identifier of a generic function instantiation
// operand: F or pkg.F.
func instIdent(x ast.Expr) *ast.Ident {
	switch x := ast.Unparen(x).(type) {
	case *ast.Ident:
		return x
	case *ast.SelectorExpr:
		return x.Sel
	}

	return nil
}

func (u *Unit) typeArgs(ident *ast.Ident) []types.Type {
	inst, ok := u.Info.Instances[ident]
	if !ok || inst.TypeArgs == nil {
		return nil
	}

	out := make([]types.Type, inst.TypeArgs.Len())
	for i := range out {
		out[i] = inst.TypeArgs.At(i)
	}

	return out
}

// RecvTypeArgs returns the type arguments of an instantiated receiver type.
func RecvTypeArgs(recv types.Type) []types.Type {
	named, ok := types.Unalias(funcid.Deref(recv)).(*types.Named)
	if !ok || named.TypeArgs() == nil {
		return nil
	}

	out := make([]types.Type, named.TypeArgs().Len())
	for i := range out {
		out[i] = named.TypeArgs().At(i)
	}

	return out
}

// MethodTypeArgs returns the type arguments of fn's receiver when fn is a
// method of an instantiated generic type.
func MethodTypeArgs(fn *types.Func) []types.Type {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return nil
	}

	return RecvTypeArgs(sig.Recv().Type())
}

// LookupFunc finds the function or method id in this unit's scope.
func (u *Unit) LookupFunc(id funcid.ID) (*types.Func, bool) {
	if !u.IsLocal(id) {
		return nil, false
	}

	scope := u.Types.Scope()
	if id.Recv == "" {
		fn, ok := scope.Lookup(id.Name).(*types.Func)

		return fn, ok
	}

	tn, ok := scope.Lookup(id.Recv).(*types.TypeName)
	if !ok {
		return nil, false
	}

	obj, _, _ := types.LookupFieldOrMethod(tn.Type(), true, u.Types, id.Name)
	fn, ok := obj.(*types.Func)

	return fn, ok
}

// FindImplementation returns the concrete method that implements method for
// a receiver of type recv. It fails when recv is itself an interface.
func (u *Unit) FindImplementation(method *types.Func, recv types.Type) (*types.Func, bool) {
	if recv == nil || types.IsInterface(recv) {
		return nil, false
	}

	obj, _, _ := types.LookupFieldOrMethod(recv, true, method.Pkg(), method.Name())
	fn, ok := obj.(*types.Func)
	if !ok || funcid.IsAbstract(fn) {
		return nil, false
	}

	return fn, true
}

// MethodOf returns the concrete method of t named like the abstract method id.
func (u *Unit) MethodOf(t types.Type, id funcid.ID) (*types.Func, bool) {
	if t == nil || types.IsInterface(t) {
		return nil, false
	}

	pkg := funcid.FindPackage(u.Types, id.Pkg)
	if pkg == nil {
		pkg = u.Types
	}

	obj, _, _ := types.LookupFieldOrMethod(t, true, pkg, id.Name)
	fn, ok := obj.(*types.Func)
	if !ok || funcid.IsAbstract(fn) {
		return nil, false
	}

	return fn, true
}

// Implementors returns every declared, non-generic, non-interface type of the
// unit that implements iface, as T when T's method set suffices and as *T
// otherwise.
func (u *Unit) Implementors(iface *types.Interface) []types.Type {
	var out []types.Type

	scope := u.Types.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 || types.IsInterface(named) {
			continue
		}

		switch {
		case types.Implements(named, iface):
			out = append(out, named)
		case types.Implements(types.NewPointer(named), iface):
			out = append(out, types.NewPointer(named))
		}
	}

	return out
}

// StaticType returns the dynamic type of expr when it is evident from the
// expression itself: a composite literal, its address, or a conversion of
// either to an interface.
func (u *Unit) StaticType(expr ast.Expr) (types.Type, bool) {
	switch e := ast.Unparen(expr).(type) {
	case *ast.CompositeLit:
		t := u.Info.TypeOf(e)

		return t, t != nil && !types.IsInterface(t)
	case *ast.UnaryExpr:
		if _, ok := ast.Unparen(e.X).(*ast.CompositeLit); !ok {
			return nil, false
		}
		t := u.Info.TypeOf(e)

		return t, t != nil
	case *ast.CallExpr:
		if tv, ok := u.Info.Types[ast.Unparen(e.Fun)]; ok && tv.IsType() && len(e.Args) == 1 {
			if t := u.Info.TypeOf(e.Args[0]); t != nil && !types.IsInterface(t) {
				return t, true
			}

			return u.StaticType(e.Args[0])
		}
	}

	return nil, false
}
