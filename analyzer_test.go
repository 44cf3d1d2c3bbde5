package nopanic_test

import (
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"

	"github.com/mpyw/nopanic"
)

// testdata prepares GOPATH mode so that dependencies of the analyzed
// package are loaded from testdata/src as well.
func testdata(t *testing.T) string {
	t.Helper()

	dir, err := filepath.Abs(analysistest.TestData())
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOPATH", dir)
	t.Setenv("GO111MODULE", "off")
	t.Setenv("GOWORK", "off")
	t.Setenv("GOFLAGS", "")

	return dir
}

func TestBasic(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "basic")
}

func TestCrossUnit(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "crossunit")
}

func TestSuppress(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "suppress")
}

func TestReportAllowed(t *testing.T) {
	dir := testdata(t)

	if err := nopanic.Analyzer.Flags.Set("report-allowed", "true"); err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = nopanic.Analyzer.Flags.Set("report-allowed", "false")
	}()

	analysistest.Run(t, dir, nopanic.Analyzer, "allowed")
}

func TestRecursion(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "recursion")
}

func TestClosure(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "closure")
}

func TestHigherOrder(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "higherorder")
}

func TestGeneric(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "generic")
}

func TestMisplaced(t *testing.T) {
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "misplaced")
}

func TestCustomSinks(t *testing.T) {
	dir := testdata(t)

	if err := nopanic.Analyzer.Flags.Set("sinks", "mustsink.must"); err != nil {
		t.Fatal(err)
	}

	defer func() {
		_ = nopanic.Analyzer.Flags.Set("sinks", "")
	}()

	analysistest.Run(t, dir, nopanic.Analyzer, "mustsink")
}

func TestConfigFile(t *testing.T) {
	// Tests that .nopanic.yaml next to the package is picked up
	analysistest.Run(t, testdata(t), nopanic.Analyzer, "configured")
}
