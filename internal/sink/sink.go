// Package sink holds the table of recognized panic primitives and the set of
// terminal units that are never loaded.
package sink

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mpyw/nopanic/internal/funcid"
)

// ErrInvalidSink is returned when a sink specification cannot be parsed.
var ErrInvalidSink = errors.New("invalid sink specification")

// Entry is one recognized primitive.
// Format: "pkg/path.Func" or "pkg/path.Type.Method".
type Entry struct {
	Unit   string
	Symbol string // "Func" or "Type.Method"
}

func (e Entry) String() string {
	return e.Unit + "." + e.Symbol
}

// Parse parses a single sink specification.
// A type segment is recognized by its leading upper-case letter, so
// "log.Logger.Fatal" is the Fatal method of log.Logger.
func Parse(s string) (Entry, error) {
	s = strings.TrimSpace(s)

	lastDot := strings.LastIndex(s, ".")
	if lastDot <= 0 || lastDot == len(s)-1 {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidSink, s)
	}

	name := s[lastDot+1:]
	prefix := s[:lastDot]

	if secondLastDot := strings.LastIndex(prefix, "."); secondLastDot > 0 {
		possibleType := prefix[secondLastDot+1:]
		if possibleType != "" && !strings.Contains(possibleType, "/") && unicode.IsUpper(rune(possibleType[0])) {
			return Entry{Unit: prefix[:secondLastDot], Symbol: possibleType + "." + name}, nil
		}
	}

	return Entry{Unit: prefix, Symbol: name}, nil
}

// ParseList parses a comma-separated list of sink specifications.
func ParseList(s string) ([]Entry, error) {
	var entries []Entry

	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		e, err := Parse(part)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Panic is the language's panic primitive.
var Panic = Entry{Unit: funcid.BuiltinUnit, Symbol: "panic"}

// Abort lists standard library functions that end the program or panic on
// the caller's behalf.
var Abort = []Entry{
	{Unit: "log", Symbol: "Panic"},
	{Unit: "log", Symbol: "Panicf"},
	{Unit: "log", Symbol: "Panicln"},
	{Unit: "log", Symbol: "Fatal"},
	{Unit: "log", Symbol: "Fatalf"},
	{Unit: "log", Symbol: "Fatalln"},
	{Unit: "log", Symbol: "Logger.Panic"},
	{Unit: "log", Symbol: "Logger.Panicf"},
	{Unit: "log", Symbol: "Logger.Panicln"},
	{Unit: "log", Symbol: "Logger.Fatal"},
	{Unit: "log", Symbol: "Logger.Fatalf"},
	{Unit: "log", Symbol: "Logger.Fatalln"},
	{Unit: "os", Symbol: "Exit"},
}

// Table is a set of recognized primitives.
type Table struct {
	entries map[Entry]struct{}
}

// NewTable creates a table holding entries.
func NewTable(entries ...Entry) *Table {
	t := &Table{entries: make(map[Entry]struct{})}
	t.Add(entries...)

	return t
}

// Default returns a table with the panic builtin only.
func Default() *Table {
	return NewTable(Panic)
}

// WithAbort returns a table with the panic builtin and the Abort functions.
func WithAbort() *Table {
	return NewTable(append([]Entry{Panic}, Abort...)...)
}

// Add adds entries to the table.
func (t *Table) Add(entries ...Entry) {
	for _, e := range entries {
		t.entries[e] = struct{}{}
	}
}

// Match reports whether (unit, symbol) is a recognized primitive.
func (t *Table) Match(unit, symbol string) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[Entry{Unit: unit, Symbol: symbol}]

	return ok
}

// MatchID reports whether id is a recognized primitive.
func (t *Table) MatchID(id funcid.ID) bool {
	return t.Match(id.Pkg, id.Symbol())
}

// Entries returns the table's entries in sorted order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })

	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}
