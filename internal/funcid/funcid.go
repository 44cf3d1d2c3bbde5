// Package funcid provides unit-independent identities for functions and types.
package funcid

import (
	"go/types"
	"strings"
)

// BuiltinUnit is the unit name used for predeclared objects such as panic
// or the error interface.
const BuiltinUnit = "builtin"

// ID identifies a function or method declaration.
// IDs are comparable and stay valid across separate loads of the same unit.
type ID struct {
	Pkg  string // import path of the owning unit
	Recv string // receiver type name, empty for package-level functions
	Name string
}

// Of returns the ID of fn. Instantiated functions and methods map to their
// generic origin.
func Of(fn *types.Func) ID {
	fn = fn.Origin()

	id := ID{Pkg: BuiltinUnit, Name: fn.Name()}
	if pkg := fn.Pkg(); pkg != nil {
		id.Pkg = pkg.Path()
	}

	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return id
	}

	id.Recv = RecvName(sig.Recv().Type())

	return id
}

// RecvName returns the name used for a receiver type: the declared type name
// for named types and pointers to them, the type string otherwise.
func RecvName(t types.Type) string {
	t = types.Unalias(Deref(t))

	switch tt := t.(type) {
	case *types.Named:
		return tt.Origin().Obj().Name()
	case *types.TypeParam:
		return tt.Obj().Name()
	}

	return types.TypeString(t, nil)
}

// Symbol returns the unit-relative name: "Func" or "Type.Method".
func (id ID) Symbol() string {
	if id.Recv == "" {
		return id.Name
	}

	return id.Recv + "." + id.Name
}

// String returns "pkg/path.Func" or "pkg/path.Type.Method".
func (id ID) String() string {
	if id.Pkg == BuiltinUnit {
		return id.Symbol()
	}

	return id.Pkg + "." + id.Symbol()
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool {
	return id == ID{}
}

// IsAbstract reports whether fn is an interface method, i.e. a call through
// it is dynamically dispatched.
func IsAbstract(fn *types.Func) bool {
	sig, ok := fn.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}

	return types.IsInterface(sig.Recv().Type())
}

// Deref returns the element type if t is a pointer, otherwise returns t.
func Deref(t types.Type) types.Type {
	if ptr, ok := t.(*types.Pointer); ok {
		return ptr.Elem()
	}

	return t
}

// InstanceKey renders type arguments into a stable string used to tell
// instantiations of the same generic function apart.
func InstanceKey(targs []types.Type) string {
	if len(targs) == 0 {
		return ""
	}

	parts := make([]string, len(targs))
	for i, t := range targs {
		if t == nil {
			parts[i] = "?"

			continue
		}
		parts[i] = types.TypeString(t, nil)
	}

	return "[" + strings.Join(parts, ",") + "]"
}
