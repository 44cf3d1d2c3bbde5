package sink

import (
	"errors"
	"testing"

	"github.com/mpyw/nopanic/internal/funcid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Entry
	}{
		{"builtin.panic", Entry{Unit: "builtin", Symbol: "panic"}},
		{"os.Exit", Entry{Unit: "os", Symbol: "Exit"}},
		{"log.Logger.Fatal", Entry{Unit: "log", Symbol: "Logger.Fatal"}},
		{"github.com/acme/must.Do", Entry{Unit: "github.com/acme/must", Symbol: "Do"}},
		{"github.com/acme/must.Checker.Must", Entry{Unit: "github.com/acme/must", Symbol: "Checker.Must"}},
		{"gopkg.in/Yaml.v3.Fail", Entry{Unit: "gopkg.in/Yaml.v3", Symbol: "Fail"}},
		{" os.Exit ", Entry{Unit: "os", Symbol: "Exit"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "panic", ".panic", "os."} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidSink) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidSink", in, err)
		}
	}
}

func TestParseList(t *testing.T) {
	entries, err := ParseList("os.Exit, ,log.Fatal")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if _, err := ParseList("os.Exit,bad"); err == nil {
		t.Error("expected error for invalid entry")
	}
}

func TestTable(t *testing.T) {
	table := Default()
	if !table.Match("builtin", "panic") {
		t.Error("default table should contain builtin.panic")
	}
	if table.Match("os", "Exit") {
		t.Error("default table should not contain os.Exit")
	}

	table = WithAbort()
	if !table.MatchID(funcid.ID{Pkg: "log", Recv: "Logger", Name: "Fatalf"}) {
		t.Error("abort table should contain log.Logger.Fatalf")
	}
	if table.Len() != len(Abort)+1 {
		t.Errorf("Len() = %d, want %d", table.Len(), len(Abort)+1)
	}

	entries := table.Entries()
	if entries[0].String() != "builtin.panic" {
		t.Errorf("Entries()[0] = %s, want builtin.panic", entries[0])
	}

	var nilTable *Table
	if nilTable.Match("builtin", "panic") {
		t.Error("nil table should match nothing")
	}
}

func TestTerminal(t *testing.T) {
	term := NewTerminal(map[string]bool{"fmt": true}, "example.com/trusted")

	tests := []struct {
		unit string
		want bool
	}{
		{"builtin", true},
		{"runtime", true},
		{"fmt", true},
		{"example.com/trusted", true},
		{"example.com/lib", false},
	}
	for _, tt := range tests {
		if got := term.IsTerminal(tt.unit); got != tt.want {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.unit, got, tt.want)
		}
	}

	var none *Terminal
	if !none.IsTerminal("runtime") || none.IsTerminal("fmt") {
		t.Error("nil Terminal should only trust builtin and runtime")
	}
}
