package traverse

import (
	"go/types"
)

// subst maps the type parameters of the function being walked to the type
// arguments it was instantiated with.
type subst map[*types.TypeParam]types.Type

// bind maps the type parameters of the generic origin fn to targs. Methods
// of generic types bind their receiver type parameters.
func bind(fn *types.Func, targs []types.Type) subst {
	if len(targs) == 0 {
		return nil
	}

	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return nil
	}

	tparams := sig.TypeParams()
	if sig.RecvTypeParams().Len() > 0 {
		tparams = sig.RecvTypeParams()
	}

	s := make(subst, tparams.Len())
	for i := range min(tparams.Len(), len(targs)) {
		if targs[i] != nil {
			s[tparams.At(i)] = targs[i]
		}
	}

	return s
}

// apply substitutes t when it is a bound type parameter or a pointer to one.
func (s subst) apply(t types.Type) types.Type {
	switch tt := t.(type) {
	case *types.TypeParam:
		if r, ok := s[tt]; ok {
			return r
		}
	case *types.Pointer:
		if tp, ok := tt.Elem().(*types.TypeParam); ok {
			if r, ok := s[tp]; ok {
				return types.NewPointer(r)
			}
		}
	}

	return t
}

func (s subst) applyAll(ts []types.Type) []types.Type {
	if len(s) == 0 || len(ts) == 0 {
		return ts
	}

	out := make([]types.Type, len(ts))
	for i, t := range ts {
		if t != nil {
			out[i] = s.apply(t)
		}
	}

	return out
}
