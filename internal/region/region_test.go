package region_test

import (
	"testing"

	"github.com/mpyw/nopanic/internal/directive"
	"github.com/mpyw/nopanic/internal/model/modeltest"
	"github.com/mpyw/nopanic/internal/region"
)

const source = `package app

func sink() { panic("x") }

func top() {
	//nopanic:deny
	{
		sink()
	}
}

func two() {
	//nopanic:deny
	{
	}
	_ = 1
	{ //nopanic:deny
	}
}

type T struct{}

func (T) method() {
	//nopanic:deny
	{
		sink()
	}
}

func nested() {
	if true {
		//nopanic:deny
		{
			sink()
		}
	}
}

func plain() {
	{
		sink()
	}
}

func allowed() {
	for {
		//nopanic:allow - fine
		{
			sink()
		}
	}
}

//nopanic:allow
func whole() { sink() }

//nopanic:allow
var stray = 1
`

func TestScan(t *testing.T) {
	p := modeltest.New(modeltest.Program{"example.com/app": {"app.go": source}})
	u := p.Unit(t, "example.com/app")

	regions := region.Scan(u)

	want := []struct {
		fn   string
		line int
	}{
		{"example.com/app.top", 7},
		{"example.com/app.two", 14},
		{"example.com/app.two", 17},
		{"example.com/app.T.method", 25},
	}

	if len(regions) != len(want) {
		t.Fatalf("found %d regions, want %d", len(regions), len(want))
	}

	for i, w := range want {
		r := regions[i]
		if got := r.Func.String(); got != w.fn {
			t.Errorf("region %d: func = %s, want %s", i, got, w.fn)
		}
		if got := r.Frame.Position.Line; got != w.line {
			t.Errorf("region %d: line = %d, want %d", i, got, w.line)
		}
		if r.Frame.Desc != w.fn || r.Frame.Unit != "example.com/app" {
			t.Errorf("region %d: frame = %+v", i, r.Frame)
		}
	}
}

func TestScanNoRegions(t *testing.T) {
	p := modeltest.New(modeltest.Program{"example.com/lib": {"lib.go": "package lib\n\nfunc F() {}\n"}})

	if got := region.Scan(p.Unit(t, "example.com/lib")); len(got) != 0 {
		t.Errorf("expected no regions, got %d", len(got))
	}
}

func TestMisplaced(t *testing.T) {
	p := modeltest.New(modeltest.Program{"example.com/app": {"app.go": source}})
	u := p.Unit(t, "example.com/app")

	region.Scan(u)
	misplaced := region.Misplaced(u)

	if len(misplaced) != 2 {
		t.Fatalf("expected 2 misplaced directives, got %d", len(misplaced))
	}

	if misplaced[0].Kind != directive.Deny || misplaced[0].Line != 32 {
		t.Errorf("misplaced[0] = %+v, want deny on line 32", misplaced[0])
	}
	if misplaced[1].Kind != directive.Allow || misplaced[1].Line != 57 {
		t.Errorf("misplaced[1] = %+v, want allow on line 57", misplaced[1])
	}
}
