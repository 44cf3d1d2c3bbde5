package model_test

import (
	"go/ast"
	"go/types"
	"testing"

	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/model/modeltest"
)

const appSource = `package app

import "example.com/lib"

type T struct{ hook func() }

func (T) M()   {}
func (*T) P()  {}

type I interface{ M() }

type Num int

func Gen[X any](x X) {}

func helper() {}

var global = func() {}

func calls(f func(), i I, t T) {
	helper()             // function
	lib.Sink()           // qualified function
	t.M()                // method
	i.M()                // abstract
	_ = Num(1)           // constructor
	panic("x")           // builtin
	f()                  // local binding
	func() {}()          // function literal
	t.hook()             // field
	global()             // package variable
	T.M(t)               // method expression
	Gen[int](1)          // explicit instance
	Gen("s")             // inferred instance
	fs := []func(){}
	fs[0]()              // index
}

func init() {}
`

const libSource = `package lib

func Sink() { panic("boom") }

type Writer interface{ Write() }

type File struct{}

func (*File) Write() {}

type Buf struct{}

func (Buf) Write() {}

type Opaque struct{}
`

func program() *modeltest.Provider {
	return modeltest.New(modeltest.Program{
		"example.com/app": {"app.go": appSource},
		"example.com/lib": {"lib.go": libSource},
	})
}

func callsIn(t *testing.T, u *model.Unit, name string) []*ast.CallExpr {
	t.Helper()

	decl, ok := u.Decl(funcid.ID{Pkg: u.Name, Name: name})
	if !ok {
		t.Fatalf("%s not declared", name)
	}

	var calls []*ast.CallExpr
	for _, stmt := range decl.Body.List {
		var expr ast.Expr
		switch s := stmt.(type) {
		case *ast.ExprStmt:
			expr = s.X
		case *ast.AssignStmt:
			expr = s.Rhs[0]
		default:
			continue
		}
		if c, ok := expr.(*ast.CallExpr); ok {
			calls = append(calls, c)
		}
	}

	return calls
}

func TestResolve(t *testing.T) {
	u := program().Unit(t, "example.com/app")
	calls := callsIn(t, u, "calls")

	want := []struct {
		kind model.Kind
		id   string
	}{
		{model.Function, "example.com/app.helper"},
		{model.Function, "example.com/lib.Sink"},
		{model.Method, "example.com/app.T.M"},
		{model.Abstract, "example.com/app.I.M"},
		{model.Constructor, ""},
		{model.Builtin, ""},
		{model.LocalBinding, ""},
		{model.FuncLit, ""},
		{model.Unknown, ""},
		{model.Unknown, ""},
		{model.Method, "example.com/app.T.M"},
		{model.Function, "example.com/app.Gen"},
		{model.Function, "example.com/app.Gen"},
		{model.Unknown, ""},
	}

	if len(calls) != len(want) {
		t.Fatalf("found %d calls, want %d", len(calls), len(want))
	}

	for i, w := range want {
		got := u.Resolve(calls[i])
		if got.Kind != w.kind {
			t.Errorf("call %d: kind = %v, want %v", i, got.Kind, w.kind)

			continue
		}
		if w.id == "" {
			continue
		}
		id, ok := got.ID()
		if !ok || id.String() != w.id {
			t.Errorf("call %d: id = %v, want %s", i, id, w.id)
		}
	}

	if got := u.Resolve(calls[5]); got.Builtin != "panic" {
		t.Errorf("builtin = %q, want panic", got.Builtin)
	}
	if got := u.Resolve(calls[10]); !got.MethodExpr || got.Recv != nil {
		t.Errorf("method expression not flagged: %+v", got)
	}
	if got := u.Resolve(calls[11]); len(got.TypeArgs) != 1 || got.TypeArgs[0].String() != "int" {
		t.Errorf("explicit type args = %v", got.TypeArgs)
	}
	if got := u.Resolve(calls[12]); len(got.TypeArgs) != 1 || got.TypeArgs[0].String() != "string" {
		t.Errorf("inferred type args = %v", got.TypeArgs)
	}
}

func TestFunctions(t *testing.T) {
	u := program().Unit(t, "example.com/app")

	var names []string
	for _, id := range u.Functions() {
		names = append(names, id.Symbol())
	}

	want := []string{"T.M", "T.P", "Gen", "helper", "calls"}
	if len(names) != len(want) {
		t.Fatalf("Functions() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Functions()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if !u.IsLocal(funcid.ID{Pkg: "example.com/app", Name: "helper"}) {
		t.Error("helper should be local")
	}
	if u.IsLocal(funcid.ID{Pkg: "example.com/lib", Name: "Sink"}) {
		t.Error("lib.Sink should not be local")
	}
}

func TestLookupAndImplementation(t *testing.T) {
	u := program().Unit(t, "example.com/lib")

	fn, ok := u.LookupFunc(funcid.ID{Pkg: "example.com/lib", Recv: "File", Name: "Write"})
	if !ok || funcid.IsAbstract(fn) {
		t.Fatalf("LookupFunc(File.Write) = %v, %v", fn, ok)
	}

	write, ok := u.LookupFunc(funcid.ID{Pkg: "example.com/lib", Recv: "Writer", Name: "Write"})
	if !ok || !funcid.IsAbstract(write) {
		t.Fatalf("LookupFunc(Writer.Write) = %v, %v", write, ok)
	}

	if _, ok := u.LookupFunc(funcid.ID{Pkg: "example.com/lib", Name: "Missing"}); ok {
		t.Error("LookupFunc(Missing) should fail")
	}

	file := u.Types.Scope().Lookup("File").Type()
	impl, ok := u.FindImplementation(write, types.NewPointer(file))
	if !ok || funcid.Of(impl).String() != "example.com/lib.File.Write" {
		t.Errorf("FindImplementation(*File) = %v, %v", impl, ok)
	}

	iface := u.Types.Scope().Lookup("Writer").Type()
	if _, ok := u.FindImplementation(write, iface); ok {
		t.Error("FindImplementation(Writer) should fail")
	}

	impls := u.Implementors(iface.Underlying().(*types.Interface))
	var got []string
	for _, typ := range impls {
		got = append(got, typ.String())
	}
	if len(got) != 2 || got[0] != "example.com/lib.Buf" || got[1] != "*example.com/lib.File" {
		t.Errorf("Implementors = %v", got)
	}

	m, ok := u.MethodOf(file, funcid.Of(write))
	if !ok || funcid.Of(m).String() != "example.com/lib.File.Write" {
		t.Errorf("MethodOf(File) = %v, %v", m, ok)
	}
}
