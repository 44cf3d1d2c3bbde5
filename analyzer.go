// Package nopanic provides a go/analysis based analyzer that proves
// //nopanic:deny regions can never reach a panic.
package nopanic

import (
	"context"
	"errors"
	"flag"
	"go/ast"
	"go/token"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/mpyw/nopanic/internal/config"
	"github.com/mpyw/nopanic/internal/depmap"
	"github.com/mpyw/nopanic/internal/directive"
	"github.com/mpyw/nopanic/internal/engine"
	"github.com/mpyw/nopanic/internal/loader"
	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/region"
	"github.com/mpyw/nopanic/internal/report"
)

// Flags for the analyzer.
var (
	configPath    string
	extraSinks    string
	trustStdlib   bool
	fanOut        bool
	reportAllowed bool
	goroot        string
	verbose       bool
)

func init() {
	// Assigned here rather than in the literal to break the initialization
	// cycle Analyzer -> run -> loadConfig -> Analyzer.
	Analyzer.Run = run

	Analyzer.Flags.StringVar(&configPath, "config", "",
		"path to a .nopanic.yaml or .nopanic.toml file (default: searched from the package directory upwards)")
	Analyzer.Flags.StringVar(&extraSinks, "sinks", "",
		"comma-separated list of additional panic functions (e.g., pkg.Func or pkg.Type.Method)")
	Analyzer.Flags.BoolVar(&trustStdlib, "trust-stdlib", true,
		"never load standard library packages; only listed sinks in them are reported")
	Analyzer.Flags.BoolVar(&fanOut, "fanout", false,
		"resolve interface method calls to every implementation declared in the same package")
	Analyzer.Flags.BoolVar(&reportAllowed, "report-allowed", false,
		"report every path stopped by a nopanic:allow block")
	Analyzer.Flags.StringVar(&goroot, "goroot", "",
		"toolchain root used to load dependencies (default: GOROOT of the go command)")
	Analyzer.Flags.BoolVar(&verbose, "verbose", false, "log analysis progress to stderr")
}

// Analyzer is the main analyzer for nopanic.
var Analyzer = &analysis.Analyzer{
	Name:     "nopanic",
	Doc:      "checks that code in //nopanic:deny blocks cannot reach a panic, across packages",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Flags:    flag.FlagSet{},
}

// ErrNoInspector is returned when the inspect analyzer result is not available.
var ErrNoInspector = errors.New("inspector analyzer result not found")

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, ErrNoInspector
	}

	if len(pass.Files) == 0 {
		return nil, nil
	}

	// Generated files take part in the call graph but are never reported.
	r := &reporter{pass: pass, skip: buildSkipFiles(pass)}
	u := model.NewUnit(pass.Pkg.Path(), pass.Fset, pass.Files, pass.Pkg, pass.TypesInfo)
	u.SetInspector(insp)

	if len(region.Scan(u)) > 0 {
		if err := check(r, u); err != nil {
			return nil, err
		}
	}

	reportMisplaced(r, u)

	return nil, nil
}

// buildSkipFiles returns the names of generated files.
func buildSkipFiles(pass *analysis.Pass) map[string]bool {
	skip := make(map[string]bool)

	for _, f := range pass.Files {
		if ast.IsGenerated(f) {
			skip[pass.Fset.Position(f.Pos()).Filename] = true
		}
	}

	return skip
}

type reporter struct {
	pass *analysis.Pass
	skip map[string]bool
}

func (r *reporter) report(pos token.Pos, msg string) {
	if r.skip[r.pass.Fset.Position(pos).Filename] {
		return
	}

	r.pass.Reportf(pos, "%s", msg)
}

func check(r *reporter, u *model.Unit) error {
	ctx := context.Background()
	logger := newLogger()
	dir := filepath.Dir(r.pass.Fset.File(u.Files[0].Pos()).Name())

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	sinks, err := cfg.SinkTable()
	if err != nil {
		return err
	}

	std, err := stdlib(ctx)
	if err != nil {
		return err
	}
	terminal := cfg.Terminal(std)

	// Untrusted std packages are loaded like any other dependency.
	deps, err := depmap.Discover(ctx, model.BuildArgs{Patterns: []string{u.Name}, Dir: dir}, goroot, cfg.TrustedStdlib(std))
	if err != nil {
		return err
	}

	a := engine.New(
		model.BuildArgs{Patterns: []string{u.Name}, Dir: dir},
		deps,
		goroot,
		engine.WithProvider(&passProvider{unit: u, fallback: loader.New(goroot, logger)}),
		engine.WithLogger(logger),
		engine.WithSinks(sinks),
		engine.WithTerminal(terminal),
		engine.WithFanOut(cfg.InterfaceFanout),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}

	for _, f := range a.Findings() {
		r.report(reportPos(u, f.Origin, f.Stack), f.Message())
	}

	if reportAllowed {
		for _, s := range a.Suppressions() {
			pos := s.At.Pos
			if s.At.Unit != u.Name {
				pos = reportPos(u, s.Origin, s.Stack)
			}
			r.report(pos, s.Message())
		}
	}

	return nil
}

// reportPos picks a position in the analyzed package: the region when it is
// local, otherwise the first call made from the package.
func reportPos(u *model.Unit, origin report.Frame, stack report.Stack) token.Pos {
	if origin.Unit == u.Name {
		return origin.Pos
	}
	for _, f := range stack {
		if f.Unit == u.Name && f.Pos.IsValid() {
			return f.Pos
		}
	}

	return u.Files[0].Package
}

func reportMisplaced(r *reporter, u *model.Unit) {
	for _, e := range region.Misplaced(u) {
		switch e.Kind {
		case directive.Deny:
			r.report(e.Pos, e.Kind.String()+" directive must precede a top-level block of a function body")
		case directive.Allow:
			r.report(e.Pos, e.Kind.String()+" directive must precede a block")
		}
	}
}

func loadConfig(dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Discover(dir)
	}
	if err != nil {
		return nil, err
	}

	cfg.AddSinks(extraSinks)

	// Flags given on the command line override the file.
	Analyzer.Flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trust-stdlib":
			cfg.TrustStdlib = trustStdlib
		case "fanout":
			cfg.InterfaceFanout = fanOut
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

var (
	stdMu    sync.Mutex
	stdCache = make(map[string]map[string]bool)
)

// stdlib lists the standard library once per toolchain root.
func stdlib(ctx context.Context) (map[string]bool, error) {
	stdMu.Lock()
	defer stdMu.Unlock()

	if std, ok := stdCache[goroot]; ok {
		return std, nil
	}

	std, err := loader.Stdlib(ctx, loader.Env(goroot, nil))
	if err != nil {
		return nil, err
	}
	stdCache[goroot] = std

	return std, nil
}

// passProvider serves the analyzed package from the pass and loads every
// other unit with fallback.
type passProvider struct {
	unit     *model.Unit
	fallback model.Provider
}

func (p *passProvider) Load(ctx context.Context, name string, args model.BuildArgs) (*model.Unit, error) {
	if name == "" || name == p.unit.Name {
		return p.unit, nil
	}

	return p.fallback.Load(ctx, name, args)
}
