package funcid

import (
	"go/types"
)

// TypeRef names a declared type independently of any loaded unit, so that a
// receiver or type argument can be carried into a later unit load.
type TypeRef struct {
	Pkg     string
	Name    string
	Pointer bool
}

// RefOf returns a reference to t if t is a declared type or a pointer to one.
// Instantiated generic types lose their type arguments.
func RefOf(t types.Type) (*TypeRef, bool) {
	if t == nil {
		return nil, false
	}

	ref := &TypeRef{}
	if ptr, ok := t.(*types.Pointer); ok {
		ref.Pointer = true
		t = ptr.Elem()
	}

	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return nil, false
	}

	obj := named.Origin().Obj()
	if obj.Pkg() == nil {
		return nil, false
	}

	ref.Pkg = obj.Pkg().Path()
	ref.Name = obj.Name()

	return ref, true
}

// RefsOf converts type arguments; entries that cannot be referenced are nil.
func RefsOf(targs []types.Type) []*TypeRef {
	if len(targs) == 0 {
		return nil
	}

	refs := make([]*TypeRef, len(targs))
	for i, t := range targs {
		if ref, ok := RefOf(t); ok {
			refs[i] = ref
		}
	}

	return refs
}

// Resolve finds the referenced type in pkg or in its transitive imports.
func (r *TypeRef) Resolve(pkg *types.Package) (types.Type, bool) {
	if r == nil {
		return nil, false
	}

	owner := FindPackage(pkg, r.Pkg)
	if owner == nil {
		return nil, false
	}

	tn, ok := owner.Scope().Lookup(r.Name).(*types.TypeName)
	if !ok {
		return nil, false
	}

	t := tn.Type()
	if r.Pointer {
		t = types.NewPointer(t)
	}

	return t, true
}

// ResolveAll resolves a list produced by RefsOf. Unresolvable entries are nil.
func ResolveAll(refs []*TypeRef, pkg *types.Package) []types.Type {
	if len(refs) == 0 {
		return nil
	}

	out := make([]types.Type, len(refs))
	for i, r := range refs {
		if t, ok := r.Resolve(pkg); ok {
			out[i] = t
		}
	}

	return out
}

func (r *TypeRef) String() string {
	if r == nil {
		return "<nil>"
	}

	s := r.Pkg + "." + r.Name
	if r.Pointer {
		return "*" + s
	}

	return s
}

// FindPackage returns the package with the given path among root and its
// transitive imports.
func FindPackage(root *types.Package, path string) *types.Package {
	if root == nil {
		return nil
	}

	seen := make(map[*types.Package]bool)
	queue := []*types.Package{root}

	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]

		if seen[pkg] {
			continue
		}
		seen[pkg] = true

		if pkg.Path() == path {
			return pkg
		}
		queue = append(queue, pkg.Imports()...)
	}

	return nil
}
