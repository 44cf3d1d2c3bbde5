// Package depmap discovers the dependency units of a target and persists the
// arguments that load each of them.
package depmap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/tools/go/packages"

	"github.com/mpyw/nopanic/internal/loader"
	"github.com/mpyw/nopanic/internal/model"
)

// SchemaVersion is incremented when the file format changes.
const SchemaVersion uint16 = 1

// DefaultPath is where the dependency file is written, relative to the
// module root.
var DefaultPath = filepath.Join(".nopanic", "deps.msgpack")

// ErrSchema is returned when a dependency file was written by an
// incompatible version.
var ErrSchema = errors.New("dependency file schema mismatch")

// File is the persisted form of a dependency map.
type File struct {
	Schema uint16              `msgpack:"schema"`
	Target model.BuildArgs     `msgpack:"target"`
	Units  model.DependencyMap `msgpack:"units"`
}

// Discover lists the transitive dependencies of the package target resolves
// to. Every dependency is loaded with the target's directory, flags and
// environment. Packages in std are skipped.
func Discover(ctx context.Context, target model.BuildArgs, goroot string, std map[string]bool) (model.DependencyMap, error) {
	cfg := &packages.Config{
		Context:    ctx,
		Mode:       packages.NeedName | packages.NeedImports | packages.NeedDeps,
		Dir:        target.Dir,
		BuildFlags: target.BuildFlags,
		Env:        loader.Env(goroot, target.Env),
	}

	roots, err := packages.Load(cfg, target.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	var errs []error
	deps := make(model.DependencyMap)

	packages.Visit(roots, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Errorf("%w: %s: %s", model.ErrConfiguration, pkg.PkgPath, e.Msg))
		}
		if std[pkg.PkgPath] || pkg.PkgPath == "unsafe" || pkg.PkgPath == "C" {
			return
		}

		deps[pkg.PkgPath] = model.BuildArgs{
			Patterns:   []string{pkg.PkgPath},
			Dir:        target.Dir,
			BuildFlags: target.BuildFlags,
			Env:        target.Env,
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, root := range roots {
		delete(deps, root.PkgPath)
	}

	return deps, nil
}

// Names returns the unit names of m in sorted order.
func Names(m model.DependencyMap) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Save writes f to path atomically.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "deps-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	f.Schema = SchemaVersion
	if err := msgpack.NewEncoder(tmp).Encode(f); err != nil {
		_ = tmp.Close()

		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Load reads a file written by Save.
func Load(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	var f File
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrConfiguration, path, err)
	}
	if f.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema %d, want %d", ErrSchema, path, f.Schema, SchemaVersion)
	}
	if f.Units == nil {
		f.Units = make(model.DependencyMap)
	}

	return &f, nil
}
