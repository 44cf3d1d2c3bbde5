// Package directive handles //nopanic:deny and //nopanic:allow directives.
package directive

import (
	"go/ast"
	"go/token"
	"sort"
	"strings"
)

// Prefix is the comment prefix shared by all directives.
const Prefix = "nopanic:"

// Kind is the kind of a directive.
type Kind int

const (
	// Deny marks a restricted region.
	Deny Kind = iota + 1
	// Allow marks a suppression region.
	Allow
)

func (k Kind) String() string {
	switch k {
	case Deny:
		return Prefix + "deny"
	case Allow:
		return Prefix + "allow"
	}

	return "unknown"
}

// Entry tracks a directive and its usage.
type Entry struct {
	Kind   Kind
	Pos    token.Pos // Position of the directive comment
	Line   int
	Reason string // Text after " - ", if any
	used   bool
}

// Use marks the entry as attached to a node.
func (e *Entry) Use() {
	e.used = true
}

// Used reports whether the entry was attached to a node.
func (e *Entry) Used() bool {
	return e.used
}

// Map tracks directive entries by line number.
type Map map[int]*Entry

// Build scans a file for directive comments and returns a map.
func Build(fset *token.FileSet, file *ast.File) Map {
	m := make(Map)

	for _, cg := range file.Comments {
		for _, c := range cg.List {
			kind, reason, ok := Parse(c.Text)
			if !ok {
				continue
			}
			line := fset.Position(c.Pos()).Line
			m[line] = &Entry{
				Kind:   kind,
				Pos:    c.Pos(),
				Line:   line,
				Reason: reason,
			}
		}
	}

	return m
}

// Parse parses a directive comment.
// Returns false if the comment is not a directive.
//
// Supported formats:
//   - //nopanic:deny
//   - //nopanic:allow
//   - //nopanic:allow - reason
//   - //nopanic:allow // trailing comment
func Parse(text string) (Kind, string, bool) {
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, Prefix) {
		return 0, "", false
	}
	text = strings.TrimPrefix(text, Prefix)

	// Anything after " //" is a trailing comment.
	if idx := strings.Index(text, " //"); idx >= 0 {
		text = text[:idx]
	}

	name, rest, _ := strings.Cut(text, " ")

	var kind Kind
	switch name {
	case "deny":
		kind = Deny
	case "allow":
		kind = Allow
	default:
		return 0, "", false
	}

	rest = strings.TrimSpace(rest)
	if rest == "-" {
		return kind, "", true
	}
	if r, ok := strings.CutPrefix(rest, "- "); ok {
		return kind, strings.TrimSpace(r), true
	}

	return kind, rest, true
}

// At returns the directive attached to a node starting at line: a directive
// on the same line or on the previous line.
func (m Map) At(line int) *Entry {
	if e := m[line]; e != nil {
		return e
	}

	return m[line-1]
}

// Unused returns the entries that were never attached to a node, in line order.
func (m Map) Unused() []*Entry {
	var unused []*Entry

	for _, e := range m {
		if !e.used {
			unused = append(unused, e)
		}
	}

	sort.Slice(unused, func(i, j int) bool { return unused[i].Line < unused[j].Line })

	return unused
}
