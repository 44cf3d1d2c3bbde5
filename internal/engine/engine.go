// Package engine drives the analysis across units: it traverses the target's
// restricted regions, resumes calls into dependencies one unit at a time
// until no call is pending, and then checks higher-order arguments.
package engine

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/loader"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/procparam"
	"github.com/mpyw/nopanic/internal/region"
	"github.com/mpyw/nopanic/internal/report"
	"github.com/mpyw/nopanic/internal/sink"
	"github.com/mpyw/nopanic/internal/traverse"
)

var (
	// ErrNoRegions is returned when the target unit has no restricted region.
	ErrNoRegions = errors.New("no restricted regions in target")
	// ErrUnknownUnit is returned when a pending call names a unit missing
	// from the dependency map.
	ErrUnknownUnit = errors.New("unit not in dependency map")
)

// State is the lifecycle state of a unit.
type State int

const (
	Unloaded State = iota
	Loading
	// Resolved means every pending call into the unit has been resumed
	// for the current round.
	Resolved
	Done
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Resolved:
		return "resolved"
	case Done:
		return "done"
	}

	return "unloaded"
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithProvider sets the program model provider. The default loads units
// with go/packages.
func WithProvider(p model.Provider) Option {
	return func(a *Analyzer) { a.provider = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithOutput sets where diagnostic blocks are written.
func WithOutput(w io.Writer) Option {
	return func(a *Analyzer) { a.out = w }
}

// WithSinks sets the table of panic primitives.
func WithSinks(t *sink.Table) Option {
	return func(a *Analyzer) { a.sinks = t }
}

// WithTerminal sets the units that are never loaded.
func WithTerminal(t *sink.Terminal) Option {
	return func(a *Analyzer) { a.terminal = t }
}

// WithFanOut enables resolving interface calls to every local implementor.
func WithFanOut(on bool) Option {
	return func(a *Analyzer) { a.fanOut = on }
}

// WithStyle sets the marker style of diagnostic blocks.
func WithStyle(s report.Style) Option {
	return func(a *Analyzer) { a.style = s }
}

// Analyzer checks one target unit.
type Analyzer struct {
	target   model.BuildArgs
	deps     model.DependencyMap
	goroot   string
	provider model.Provider
	logger   *zap.Logger
	out      io.Writer
	sinks    *sink.Table
	terminal *sink.Terminal
	fanOut   bool
	style    report.Style

	collector  *report.Collector
	params     *procparam.Map
	buckets    map[string][]traverse.Leaf
	states     map[string]State
	scanned    map[string]bool
	resumed    map[string]bool
	targetName string
}

// New creates an analyzer for the unit target resolves to. deps maps every
// dependency unit to the arguments that load it; toolchainRoot is passed to
// the default provider as GOROOT.
func New(target model.BuildArgs, deps model.DependencyMap, toolchainRoot string, opts ...Option) *Analyzer {
	a := &Analyzer{
		target: target,
		deps:   deps,
		goroot: toolchainRoot,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.provider == nil {
		a.provider = loader.New(toolchainRoot, a.logger)
	}
	if a.sinks == nil {
		a.sinks = sink.Default()
	}
	if a.terminal == nil {
		a.terminal = sink.NewTerminal(nil)
	}
	a.collector = report.NewCollector(a.out, a.style, a.logger)

	return a
}

// Run analyzes the target. Findings are written to the output as they are
// found and remain available through Findings.
func (a *Analyzer) Run(ctx context.Context) error {
	a.params = procparam.NewMap()
	a.buckets = make(map[string][]traverse.Leaf)
	a.states = make(map[string]State)
	a.scanned = make(map[string]bool)
	a.resumed = make(map[string]bool)

	if err := a.seed(ctx); err != nil {
		return err
	}
	if err := a.drain(ctx); err != nil {
		return err
	}
	if err := a.sweepUnloaded(ctx); err != nil {
		return err
	}
	if err := a.higherOrder(ctx); err != nil {
		return err
	}
	if err := a.drain(ctx); err != nil {
		return err
	}

	for name := range a.states {
		a.states[name] = Done
	}

	a.logger.Info("analysis finished",
		zap.Int("findings", len(a.collector.Findings())),
		zap.Int("suppressions", len(a.collector.Suppressions())),
		zap.Int("units", len(a.states)),
	)

	return nil
}

// Findings returns every panic finding in emission order.
func (a *Analyzer) Findings() []report.Finding {
	return a.collector.Findings()
}

// Suppressions returns every suppression event in emission order.
func (a *Analyzer) Suppressions() []report.Suppression {
	return a.collector.Suppressions()
}

// Failed reports whether any panic finding was emitted.
func (a *Analyzer) Failed() bool {
	return len(a.collector.Findings()) > 0
}

// State returns the lifecycle state of the named unit.
func (a *Analyzer) State(name string) State {
	return a.states[name]
}

func (a *Analyzer) options() traverse.Options {
	return traverse.Options{
		Sinks:    a.sinks,
		Terminal: a.terminal,
		FanOut:   a.fanOut,
		Logger:   a.logger,
	}
}

func (a *Analyzer) seed(ctx context.Context) error {
	u, err := a.provider.Load(ctx, "", a.target)
	if err != nil {
		return err
	}
	a.targetName = u.Name
	a.setState(u.Name, Loading)
	a.scanned[u.Name] = true

	regions := region.Scan(u)
	if len(regions) == 0 {
		return fmt.Errorf("%w: %s", ErrNoRegions, u.Name)
	}

	tr := traverse.New(u, traverse.Deep, a.options())
	for _, r := range regions {
		res, err := tr.Run(traverse.Entry{
			Kind:   traverse.EntryBlock,
			Origin: r.Frame,
			Block:  r.Block,
			Owner:  r.Decl,
		})
		if err != nil {
			return err
		}
		a.collect(res)
	}

	a.setState(u.Name, Resolved)

	return nil
}

// drain resumes pending calls until every bucket is empty. Buckets are
// drained in name order, one unit at a time.
func (a *Analyzer) drain(ctx context.Context) error {
	for len(a.buckets) > 0 {
		names := make([]string, 0, len(a.buckets))
		for name := range a.buckets {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			leaves := a.buckets[name]
			delete(a.buckets, name)

			if err := a.resolveUnit(ctx, name, leaves); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *Analyzer) resolveUnit(ctx context.Context, name string, leaves []traverse.Leaf) error {
	u, err := a.load(ctx, name)
	if err != nil {
		return err
	}

	tr := traverse.New(u, traverse.Deep, a.options())
	for _, l := range leaves {
		if err := a.resume(u, tr, l); err != nil {
			return err
		}
	}

	a.setState(name, Resolved)

	return nil
}

// load loads a unit by name and records its regions' procedural parameters
// on first load.
func (a *Analyzer) load(ctx context.Context, name string) (*model.Unit, error) {
	var (
		u   *model.Unit
		err error
	)

	a.setState(name, Loading)

	if name == a.targetName {
		u, err = a.provider.Load(ctx, "", a.target)
	} else {
		args, ok := a.deps[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
		}
		u, err = a.provider.Load(ctx, name, args)
	}
	if err != nil {
		return nil, err
	}

	if !a.scanned[name] {
		a.scanned[name] = true
		if err := a.recordParams(u); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// recordParams records procedural parameters of a dependency's regions
// without reporting anything found inside them.
func (a *Analyzer) recordParams(u *model.Unit) error {
	tr := traverse.New(u, traverse.Shallow, a.options())
	for _, r := range region.Scan(u) {
		res, err := tr.Run(traverse.Entry{
			Kind:   traverse.EntryBlock,
			Origin: r.Frame,
			Block:  r.Block,
			Owner:  r.Decl,
		})
		if err != nil {
			return err
		}
		a.params.RecordAll(res)
	}

	return nil
}

// resume continues a leaf inside its own unit.
func (a *Analyzer) resume(u *model.Unit, tr *traverse.Traverser, l traverse.Leaf) error {
	key := leafKey(l)
	if a.resumed[key] {
		return nil
	}
	a.resumed[key] = true

	fn, ok := u.LookupFunc(l.ID)
	if !ok {
		return fmt.Errorf("%w: %s", traverse.ErrMissingBody, l.ID)
	}

	if funcid.IsAbstract(fn) {
		return a.resumeAbstract(u, tr, fn, l)
	}

	var recv types.Type
	if t, ok := l.Recv.Resolve(u.Types); ok {
		recv = t
	}

	res, err := tr.Run(traverse.Entry{
		Kind:     traverse.EntryResume,
		Origin:   l.Origin,
		Site:     l.Site,
		Stack:    l.Stack,
		Func:     fn,
		Recv:     recv,
		TypeArgs: funcid.ResolveAll(l.TypeArgs, u.Types),
	})
	if err != nil {
		return err
	}
	a.collect(res)

	return nil
}

// resumeAbstract resolves an interface method leaf against the implementors
// declared next to the interface.
func (a *Analyzer) resumeAbstract(u *model.Unit, tr *traverse.Traverser, method *types.Func, l traverse.Leaf) error {
	sig := method.Type().(*types.Signature)
	iface, ok := sig.Recv().Type().Underlying().(*types.Interface)
	if !ok {
		return nil
	}

	impls := u.Implementors(iface)
	if len(impls) == 0 {
		a.logger.Debug("no implementation for interface method",
			zap.Stringer("method", l.ID),
			zap.String("unit", u.Name),
		)

		return nil
	}

	for _, t := range impls {
		impl, ok := u.FindImplementation(method, t)
		if !ok {
			continue
		}

		res, err := tr.Run(traverse.Entry{
			Kind:     traverse.EntryFunc,
			Origin:   l.Origin,
			Site:     l.Site,
			Stack:    l.Stack,
			Func:     impl,
			Recv:     t,
			TypeArgs: model.MethodTypeArgs(impl),
		})
		if err != nil {
			return err
		}
		a.collect(res)
	}

	return nil
}

// sweepUnloaded loads every dependency no pending call reached so that its
// procedural parameters are known to the higher-order phase.
func (a *Analyzer) sweepUnloaded(ctx context.Context) error {
	for _, name := range a.depNames() {
		if a.states[name] != Unloaded || a.terminal.IsTerminal(name) {
			continue
		}

		if _, err := a.load(ctx, name); err != nil {
			return err
		}
		a.setState(name, Resolved)
	}

	return nil
}

// higherOrder checks the arguments passed for procedural parameters in every
// loaded unit.
func (a *Analyzer) higherOrder(ctx context.Context) error {
	if a.params.Len() == 0 {
		return nil
	}

	names := make([]string, 0, len(a.states))
	for name := range a.states {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u, err := a.load(ctx, name)
		if err != nil {
			return err
		}

		res, err := procparam.Sweep(u, a.params, a.options())
		if err != nil {
			return err
		}
		a.collect(res)
		a.setState(name, Resolved)
	}

	return nil
}

func (a *Analyzer) collect(res *traverse.Result) {
	for _, f := range res.Findings {
		a.collector.Finding(f)
	}
	for _, s := range res.Suppressions {
		a.collector.Suppression(s)
	}
	for _, l := range res.Leaves() {
		a.buckets[l.ID.Pkg] = append(a.buckets[l.ID.Pkg], l)
	}
	a.params.RecordAll(res)
}

func (a *Analyzer) setState(name string, s State) {
	if a.states[name] == s {
		return
	}
	a.states[name] = s
	a.logger.Debug("unit state", zap.String("unit", name), zap.Stringer("state", s))
}

func (a *Analyzer) depNames() []string {
	names := make([]string, 0, len(a.deps))
	for name := range a.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func leafKey(l traverse.Leaf) string {
	var b strings.Builder
	b.WriteString(l.Origin.Key())
	b.WriteString("|")
	b.WriteString(l.Site.Key())
	b.WriteString("|")
	b.WriteString(l.ID.String())
	b.WriteString("|")
	b.WriteString(l.Recv.String())
	for _, ref := range l.TypeArgs {
		b.WriteString(",")
		b.WriteString(ref.String())
	}

	return b.String()
}
