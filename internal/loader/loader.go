// Package loader loads units with golang.org/x/tools/go/packages.
package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/mpyw/nopanic/internal/model"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Loader implements model.Provider. Dependencies of a loaded unit come from
// export data, so only the unit's own syntax is kept in memory.
type Loader struct {
	goroot string
	logger *zap.Logger
}

// New creates a loader. A non-empty goroot overrides GOROOT for every load.
func New(goroot string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{goroot: goroot, logger: logger}
}

// Load loads the unit name with args. An empty name accepts the single
// package args resolve to.
func (l *Loader) Load(ctx context.Context, name string, args model.BuildArgs) (*model.Unit, error) {
	patterns := args.Patterns
	if len(patterns) == 0 {
		if name == "" {
			return nil, fmt.Errorf("%w: no patterns", model.ErrConfiguration)
		}
		patterns = []string{name}
	}

	cfg := &packages.Config{
		Context:    ctx,
		Mode:       loadMode,
		Dir:        args.Dir,
		BuildFlags: args.BuildFlags,
		Env:        Env(l.goroot, args.Env),
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %v: %w", model.ErrConfiguration, patterns, err)
	}

	pkg, err := pick(pkgs, name)
	if err != nil {
		return nil, err
	}

	if len(pkg.Errors) > 0 {
		msgs := make([]string, len(pkg.Errors))
		for i, e := range pkg.Errors {
			msgs[i] = e.Error()
		}

		return nil, fmt.Errorf("%w: %s:\n  %s", model.ErrConfiguration, pkg.PkgPath, strings.Join(msgs, "\n  "))
	}

	l.logger.Info("unit loaded",
		zap.String("unit", pkg.PkgPath),
		zap.Int("files", len(pkg.Syntax)),
	)

	return model.NewUnit(pkg.PkgPath, pkg.Fset, pkg.Syntax, pkg.Types, pkg.TypesInfo), nil
}

func pick(pkgs []*packages.Package, name string) (*packages.Package, error) {
	if name == "" {
		if len(pkgs) != 1 {
			return nil, fmt.Errorf("%w: expected one package, got %d", model.ErrConfiguration, len(pkgs))
		}

		return pkgs[0], nil
	}

	for _, pkg := range pkgs {
		if pkg.PkgPath == name {
			return pkg, nil
		}
	}

	return nil, fmt.Errorf("%w: %s not among loaded packages", model.ErrConfiguration, name)
}

// Env returns the process environment extended with extra and, when goroot
// is set, GOROOT. Later entries win.
func Env(goroot string, extra []string) []string {
	env := append(os.Environ(), extra...)
	if goroot != "" {
		env = append(env, "GOROOT="+goroot)
	}

	return env
}

// Stdlib lists the standard library packages of the toolchain env selects.
func Stdlib(ctx context.Context, env []string) (map[string]bool, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName,
		Env:     env,
	}

	pkgs, err := packages.Load(cfg, "std")
	if err != nil {
		return nil, fmt.Errorf("%w: listing std: %w", model.ErrConfiguration, err)
	}

	std := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		std[pkg.PkgPath] = true
	}

	return std, nil
}
