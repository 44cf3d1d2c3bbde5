// Package traverse walks syntax trees from an entry point and builds the
// reachable call graph of one unit.
package traverse

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/directive"
	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/report"
	"github.com/mpyw/nopanic/internal/sink"
)

var (
	// ErrUnsupportedNode is returned for a syntax node the walker does not cover.
	ErrUnsupportedNode = errors.New("unsupported syntax node")
	// ErrMissingBody is returned when a local function has no declaration.
	ErrMissingBody = errors.New("local function has no declaration")
)

// Mode selects between full expansion and call-site enumeration.
type Mode int

const (
	// Deep expands every reachable local call.
	Deep Mode = iota
	// Shallow expands nothing and collects call sites.
	Shallow
)

// Options configure a Traverser.
type Options struct {
	Sinks    *sink.Table
	Terminal *sink.Terminal
	// FanOut resolves dynamic dispatch with no known receiver to every
	// implementor declared in the unit.
	FanOut bool
	Logger *zap.Logger
}

// Leaf is a call whose target lives in another unit.
type Leaf struct {
	ID       funcid.ID
	Method   bool
	Origin   report.Frame
	Site     report.Frame // call site of a higher-order argument, zero for regions
	Stack    report.Stack // the last frame names the call to ID
	Recv     *funcid.TypeRef
	TypeArgs []*funcid.TypeRef
}

// ParamUse records a call through a parameter of a region's function.
type ParamUse struct {
	Owner  funcid.ID
	Index  int
	Method *funcid.ID // nil when the parameter itself is called
	Region report.Frame
}

// Result is the output of one traversal.
type Result struct {
	Functions    []Leaf
	Methods      []Leaf
	Findings     []report.Finding
	Suppressions []report.Suppression
	Params       []ParamUse
	Calls        []*ast.CallExpr // Shallow only
}

// Leaves returns function and method leaves together.
func (r *Result) Leaves() []Leaf {
	return append(append([]Leaf(nil), r.Functions...), r.Methods...)
}

// EntryKind selects how an Entry starts.
type EntryKind int

const (
	// EntryBlock walks a block: a region or a function literal body.
	EntryBlock EntryKind = iota
	// EntryFunc treats Func as called at Pos.
	EntryFunc
	// EntryResume expands Func, whose call is already the last frame of Stack.
	EntryResume
)

// Entry is the starting point of a traversal.
type Entry struct {
	Kind   EntryKind
	Origin report.Frame
	Stack  report.Stack

	// Site is the call site a higher-order argument was passed at. Leaves
	// reached from different sites of the same region stay distinct.
	Site report.Frame

	// Block and Owner are used by EntryBlock. Owner enables parameter
	// tracking for a region's function.
	Block *ast.BlockStmt
	Owner *ast.FuncDecl

	// Func, Pos, Recv and TypeArgs are used by EntryFunc and EntryResume.
	Func     *types.Func
	Pos      token.Pos
	Recv     types.Type
	TypeArgs []types.Type
}

// Traverser walks one unit.
type Traverser struct {
	unit   *model.Unit
	mode   Mode
	opts   Options
	logger *zap.Logger

	visited map[visitKey]struct{}
	origin  report.Frame
	site    report.Frame
	res     *Result
}

type visitKey struct {
	id   funcid.ID
	inst string
}

// New creates a traverser over unit.
func New(unit *model.Unit, mode Mode, opts Options) *Traverser {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Traverser{
		unit:   unit,
		mode:   mode,
		opts:   opts,
		logger: logger.With(zap.String("unit", unit.Name)),
	}
}

// Run traverses from e with a fresh visited set.
func (t *Traverser) Run(e Entry) (*Result, error) {
	t.visited = make(map[visitKey]struct{})
	t.origin = e.Origin
	t.site = e.Site
	t.res = &Result{}

	fr := &frame{stack: e.Stack}
	if e.Owner != nil {
		if err := t.bindParams(fr, e.Owner); err != nil {
			return nil, err
		}
	}

	var err error
	switch e.Kind {
	case EntryBlock:
		err = t.block(e.Block, fr)
	case EntryFunc:
		err = t.reference(e.Func, e.Pos, e.TypeArgs, e.Recv, fr)
	case EntryResume:
		fn := e.Func.Origin()
		t.visited[visitKey{id: funcid.Of(fn), inst: funcid.InstanceKey(e.TypeArgs)}] = struct{}{}
		err = t.expand(fn, e.TypeArgs, fr.stack)
	}
	if err != nil {
		return nil, err
	}

	return t.res, nil
}

// CallSites returns every call expression in decl's body, including calls
// inside function literals, without expanding anything.
func (t *Traverser) CallSites(decl *ast.FuncDecl) ([]*ast.CallExpr, error) {
	if decl.Body == nil {
		return nil, nil
	}

	shallow := &Traverser{unit: t.unit, mode: Shallow, opts: t.opts, logger: t.logger}
	res, err := shallow.Run(Entry{Kind: EntryBlock, Block: decl.Body})
	if err != nil {
		return nil, err
	}

	return res.Calls, nil
}

// frame is the state of one function activation.
type frame struct {
	stack  report.Stack
	owner  funcid.ID
	params map[*types.Var]int
	subst  subst
}

func (t *Traverser) bindParams(fr *frame, decl *ast.FuncDecl) error {
	fn, ok := t.unit.FuncOf(decl)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingBody, decl.Name.Name)
	}

	sig := fn.Type().(*types.Signature)
	fr.owner = funcid.Of(fn)
	fr.params = make(map[*types.Var]int, sig.Params().Len())
	for i := range sig.Params().Len() {
		fr.params[sig.Params().At(i)] = i
	}

	return nil
}

func (t *Traverser) frameAt(desc string, pos token.Pos) report.Frame {
	return report.Frame{
		Desc:     desc,
		Unit:     t.unit.Name,
		Pos:      pos,
		Position: t.unit.Position(pos),
	}
}

// reference handles a call to fn at pos, or a reference to fn as a value.
func (t *Traverser) reference(fn *types.Func, pos token.Pos, targs []types.Type, recv types.Type, fr *frame) error {
	if t.mode == Shallow {
		return nil
	}

	targs = fr.subst.applyAll(targs)
	origin := fn.Origin()
	id := funcid.Of(origin)

	// Every reached call of a primitive is reported, not only the first.
	if t.opts.Sinks.MatchID(id) {
		t.finding(fr.stack.Push(t.frameAt(id.String(), pos)))

		return nil
	}

	if t.opts.Terminal.IsTerminal(id.Pkg) {
		return nil
	}

	key := visitKey{id: id, inst: funcid.InstanceKey(targs)}
	if _, seen := t.visited[key]; seen {
		return nil
	}
	t.visited[key] = struct{}{}

	stack := fr.stack.Push(t.frameAt(id.String(), pos))

	if !t.unit.IsLocal(id) {
		t.leaf(id, recv, targs, stack)

		return nil
	}

	return t.expand(origin, targs, stack)
}

// expand walks the body of the local function fn.
func (t *Traverser) expand(fn *types.Func, targs []types.Type, stack report.Stack) error {
	id := funcid.Of(fn)

	decl, ok := t.unit.Decl(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingBody, id)
	}

	if decl.Body == nil {
		t.logger.Debug("function without body treated as opaque", zap.Stringer("func", id))

		return nil
	}

	return t.block(decl.Body, &frame{stack: stack, subst: bind(fn, targs)})
}

func (t *Traverser) leaf(id funcid.ID, recv types.Type, targs []types.Type, stack report.Stack) {
	l := Leaf{
		ID:       id,
		Method:   id.Recv != "",
		Origin:   t.origin,
		Site:     t.site,
		Stack:    stack,
		TypeArgs: funcid.RefsOf(targs),
	}
	if recv != nil {
		if ref, ok := funcid.RefOf(recv); ok {
			l.Recv = ref
		}
	}

	if l.Method {
		t.res.Methods = append(t.res.Methods, l)
	} else {
		t.res.Functions = append(t.res.Functions, l)
	}
}

func (t *Traverser) finding(stack report.Stack) {
	t.res.Findings = append(t.res.Findings, report.Finding{Origin: t.origin, Stack: stack})
}

// param records a call through v when v is a parameter of the region's
// function.
func (t *Traverser) param(v *types.Var, method *funcid.ID, fr *frame) {
	idx, ok := fr.params[v]
	if !ok {
		return
	}

	t.res.Params = append(t.res.Params, ParamUse{
		Owner:  fr.owner,
		Index:  idx,
		Method: method,
		Region: t.origin,
	})
}

// block walks b unless it is a suppression region.
func (t *Traverser) block(b *ast.BlockStmt, fr *frame) error {
	if b == nil {
		return nil
	}

	if e := t.unit.Directive(b.Lbrace); e != nil && e.Kind == directive.Allow {
		if t.mode == Deep {
			t.res.Suppressions = append(t.res.Suppressions, report.Suppression{
				Origin: t.origin,
				Stack:  fr.stack,
				At:     t.frameAt(directive.Allow.String(), b.Lbrace),
				Reason: e.Reason,
			})
		}

		return nil
	}

	return t.stmts(b.List, fr)
}

// inner walks the body of a control-flow statement. An allow directive only
// applies to standalone blocks and function bodies, so none is looked up.
func (t *Traverser) inner(b *ast.BlockStmt, fr *frame) error {
	if b == nil {
		return nil
	}

	return t.stmts(b.List, fr)
}
