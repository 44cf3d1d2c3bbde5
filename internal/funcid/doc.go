// Package funcid identifies functions, methods and types by name rather
// than by object pointer.
//
// # Why names
//
// Each unit (package) is loaded and type-checked on its own, so the
// *types.Func seen at a call site in one load and the one declared in the
// callee's own load are different objects. [ID] and [TypeRef] carry the
// identity across loads:
//
//	ID{Pkg: "example.com/lib", Recv: "Buffer", Name: "Write"}
//	  String()  -> "example.com/lib.Buffer.Write"
//	  Symbol()  -> "Buffer.Write"
//
//	TypeRef{Pkg: "example.com/lib", Name: "Buffer", Pointer: true}
//	  String()  -> "*example.com/lib.Buffer"
//
// Generic functions and methods of generic types are identified by their
// origin. Instantiations are told apart with [InstanceKey].
//
// Predeclared objects (panic, the error interface's Error method) belong to
// the [BuiltinUnit] pseudo unit.
package funcid
