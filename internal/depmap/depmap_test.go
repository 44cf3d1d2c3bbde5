package depmap_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mpyw/nopanic/internal/depmap"
	"github.com/mpyw/nopanic/internal/loader"
	"github.com/mpyw/nopanic/internal/model"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), depmap.DefaultPath)

	in := &depmap.File{
		Target: model.BuildArgs{Patterns: []string{"."}, Dir: "/src/app"},
		Units: model.DependencyMap{
			"example.com/lib": {Patterns: []string{"example.com/lib"}, Dir: "/src/app", BuildFlags: []string{"-tags=x"}},
		},
	}
	if err := depmap.Save(path, in); err != nil {
		t.Fatal(err)
	}

	out, err := depmap.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if out.Schema != depmap.SchemaVersion {
		t.Errorf("schema = %d", out.Schema)
	}
	if out.Target.Dir != "/src/app" {
		t.Errorf("target = %+v", out.Target)
	}
	lib, ok := out.Units["example.com/lib"]
	if !ok || !slices.Equal(lib.BuildFlags, []string{"-tags=x"}) {
		t.Errorf("units = %+v", out.Units)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestLoadSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.msgpack")

	data, err := msgpack.Marshal(&depmap.File{Schema: depmap.SchemaVersion + 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := depmap.Load(path); !errors.Is(err, depmap.ErrSchema) {
		t.Errorf("err = %v, want ErrSchema", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.msgpack")
	if err := os.WriteFile(path, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := depmap.Load(path); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestDiscover(t *testing.T) {
	gopath, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatal(err)
	}

	env := []string{"GOPATH=" + gopath, "GO111MODULE=off", "GOWORK=off", "GOFLAGS="}
	std, err := loader.Stdlib(context.Background(), loader.Env("", env))
	if err != nil {
		t.Fatal(err)
	}

	target := model.BuildArgs{Patterns: []string{"app"}, Dir: gopath, Env: env}
	deps, err := depmap.Discover(context.Background(), target, "", std)
	if err != nil {
		t.Fatal(err)
	}

	if got := depmap.Names(deps); !slices.Equal(got, []string{"lib", "lib/inner"}) {
		t.Errorf("deps = %v", got)
	}
	if args := deps["lib/inner"]; args.Dir != gopath || !slices.Equal(args.Patterns, []string{"lib/inner"}) {
		t.Errorf("lib/inner args = %+v", args)
	}
}

func TestDiscoverWithoutStdlib(t *testing.T) {
	gopath, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatal(err)
	}

	env := []string{"GOPATH=" + gopath, "GO111MODULE=off", "GOWORK=off", "GOFLAGS="}
	target := model.BuildArgs{Patterns: []string{"app"}, Dir: gopath, Env: env}

	deps, err := depmap.Discover(context.Background(), target, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"fmt", "lib", "lib/inner"} {
		if _, ok := deps[name]; !ok {
			t.Errorf("%s missing from %v", name, depmap.Names(deps))
		}
	}
	if _, ok := deps["unsafe"]; ok {
		t.Error("unsafe must never be loaded")
	}
}
