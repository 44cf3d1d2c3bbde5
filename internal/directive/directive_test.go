package directive

import (
	"go/parser"
	"go/token"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantKind   Kind
		wantReason string
		wantOk     bool
	}{
		{
			name:     "deny",
			text:     "//nopanic:deny",
			wantKind: Deny,
			wantOk:   true,
		},
		{
			name:     "allow",
			text:     "//nopanic:allow",
			wantKind: Allow,
			wantOk:   true,
		},
		{
			name:       "allow with reason",
			text:       "//nopanic:allow - startup only",
			wantKind:   Allow,
			wantReason: "startup only",
			wantOk:     true,
		},
		{
			name:     "allow with bare dash",
			text:     "//nopanic:allow -",
			wantKind: Allow,
			wantOk:   true,
		},
		{
			name:     "deny with trailing comment",
			text:     "//nopanic:deny // want `x`",
			wantKind: Deny,
			wantOk:   true,
		},
		{
			name:     "leading space",
			text:     "// nopanic:deny",
			wantKind: Deny,
			wantOk:   true,
		},
		{
			name:   "unknown directive",
			text:   "//nopanic:ignore",
			wantOk: false,
		},
		{
			name:   "prefix only",
			text:   "//nopanic:denyall",
			wantOk: false,
		},
		{
			name:   "regular comment",
			text:   "// regular comment",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, reason, ok := Parse(tt.text)
			if ok != tt.wantOk {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.text, ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if kind != tt.wantKind {
				t.Errorf("Parse(%q) kind = %v, want %v", tt.text, kind, tt.wantKind)
			}
			if reason != tt.wantReason {
				t.Errorf("Parse(%q) reason = %q, want %q", tt.text, reason, tt.wantReason)
			}
		})
	}
}

func TestBuildAndAt(t *testing.T) {
	src := `package p

func f() {
	//nopanic:deny
	{
		//nopanic:allow - reviewed
		{
		}
	}
	{ //nopanic:allow
	}
}
`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	m := Build(fset, file)
	if len(m) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m))
	}

	if e := m.At(5); e == nil || e.Kind != Deny {
		t.Errorf("At(5) = %v, want deny", e)
	}

	e := m.At(7)
	if e == nil || e.Kind != Allow || e.Reason != "reviewed" {
		t.Errorf("At(7) = %+v, want allow with reason", e)
	}

	if e := m.At(10); e == nil || e.Kind != Allow {
		t.Errorf("At(10) = %v, want same-line allow", e)
	}

	if e := m.At(3); e != nil {
		t.Errorf("At(3) = %v, want nil", e)
	}
}

func TestUnused(t *testing.T) {
	m := Map{
		10: {Kind: Deny, Line: 10},
		4:  {Kind: Allow, Line: 4},
		7:  {Kind: Deny, Line: 7},
	}
	m[7].Use()

	unused := m.Unused()
	if len(unused) != 2 {
		t.Fatalf("expected 2 unused entries, got %d", len(unused))
	}
	if unused[0].Line != 4 || unused[1].Line != 10 {
		t.Errorf("unused lines = %d, %d; want 4, 10", unused[0].Line, unused[1].Line)
	}
	if !m[7].Used() {
		t.Error("entry on line 7 should be used")
	}
}

func TestKindString(t *testing.T) {
	if got := Deny.String(); got != "nopanic:deny" {
		t.Errorf("Deny.String() = %q", got)
	}
	if got := Allow.String(); got != "nopanic:allow" {
		t.Errorf("Allow.String() = %q", got)
	}
}
