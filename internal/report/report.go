// Package report holds call stacks, findings and suppression events, and
// renders them as marker-prefixed diagnostic blocks.
package report

import (
	"fmt"
	"go/token"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Markers prefix each diagnostic block.
const (
	PanicMarker = "PANIC REACHABLE"
	AllowMarker = "PANIC ALLOWED"
)

// Frame is one diagnostic frame of a call stack.
type Frame struct {
	Desc     string
	Unit     string    // unit whose file set Pos belongs to
	Pos      token.Pos // valid only while Unit is loaded
	Position token.Position
}

func (f Frame) String() string {
	if !f.Position.IsValid() {
		return f.Desc
	}

	return fmt.Sprintf("%s at %s", f.Desc, f.location())
}

func (f Frame) location() string {
	return fmt.Sprintf("%s:%d:%d", filepath.Base(f.Position.Filename), f.Position.Line, f.Position.Column)
}

// Key identifies the frame's source location.
func (f Frame) Key() string {
	return fmt.Sprintf("%s|%s:%d:%d", f.Desc, f.Position.Filename, f.Position.Line, f.Position.Column)
}

// Stack is an ordered call stack, outermost call first.
type Stack []Frame

// Push returns a new stack with f appended. The receiver is never modified,
// so stacks of sibling paths never share frames.
func (s Stack) Push(f Frame) Stack {
	out := make(Stack, len(s), len(s)+1)
	copy(out, s)

	return append(out, f)
}

// Descs returns the frame descriptions joined by " -> ".
func (s Stack) Descs() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Desc
	}

	return strings.Join(parts, " -> ")
}

// Last returns the innermost frame.
func (s Stack) Last() (Frame, bool) {
	if len(s) == 0 {
		return Frame{}, false
	}

	return s[len(s)-1], true
}

// Finding is a path from a restricted region to a panic primitive.
type Finding struct {
	Origin Frame // the restricted region
	Stack  Stack // the primitive is the last frame
}

// Message renders the finding on one line.
func (f Finding) Message() string {
	return fmt.Sprintf("panic reachable in deny region of %s: %s", f.Origin.Desc, f.Stack.Descs())
}

func (f Finding) key() string {
	var b strings.Builder
	b.WriteString(f.Origin.Key())
	for _, fr := range f.Stack {
		b.WriteString(";")
		b.WriteString(fr.Key())
	}

	return b.String()
}

// Suppression records that traversal reached an allow block.
type Suppression struct {
	Origin Frame  // the restricted region
	Stack  Stack  // calls leading to the allow block
	At     Frame  // the allow block
	Reason string // text after "- " in the directive
}

// Message renders the suppression on one line.
func (s Suppression) Message() string {
	msg := fmt.Sprintf("panic check suppressed in deny region of %s", s.Origin.Desc)
	if len(s.Stack) > 0 {
		msg += ": " + s.Stack.Descs()
	}
	if s.Reason != "" {
		msg += " (" + s.Reason + ")"
	}

	return msg
}

func (s Suppression) key() string {
	var b strings.Builder
	b.WriteString(s.Origin.Key())
	b.WriteString(";")
	b.WriteString(s.At.Key())
	for _, fr := range s.Stack {
		b.WriteString(";")
		b.WriteString(fr.Key())
	}

	return b.String()
}

// Style decorates markers, e.g. with terminal colors.
type Style struct {
	Panic func(a ...any) string
	Allow func(a ...any) string
}

// Collector accumulates findings and suppressions and writes a block for
// each to its output. Identical events are recorded once.
type Collector struct {
	mu           sync.Mutex
	out          io.Writer
	style        Style
	logger       *zap.Logger
	findings     []Finding
	suppressions []Suppression
	seen         map[string]bool
}

// NewCollector creates a collector writing to out. A nil out discards blocks.
func NewCollector(out io.Writer, style Style, logger *zap.Logger) *Collector {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if style.Panic == nil {
		style.Panic = fmt.Sprint
	}
	if style.Allow == nil {
		style.Allow = fmt.Sprint
	}

	return &Collector{
		out:    out,
		style:  style,
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// Finding records f and writes its block.
func (c *Collector) Finding(f Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := "F" + f.key()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.findings = append(c.findings, f)

	c.logger.Debug("panic reachable",
		zap.String("region", f.Origin.String()),
		zap.String("path", f.Stack.Descs()),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s\n", c.style.Panic(PanicMarker), f.Origin)
	writeFrames(&b, f.Stack)
	_, _ = io.WriteString(c.out, b.String())
}

// Suppression records s and writes its block.
func (c *Collector) Suppression(s Suppression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := "S" + s.key()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.suppressions = append(c.suppressions, s)

	c.logger.Info("panic check suppressed",
		zap.String("region", s.Origin.String()),
		zap.String("at", s.At.String()),
		zap.String("reason", s.Reason),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s\n", c.style.Allow(AllowMarker), s.Origin)
	writeFrames(&b, s.Stack.Push(s.At))
	_, _ = io.WriteString(c.out, b.String())
}

func writeFrames(b *strings.Builder, s Stack) {
	for _, f := range s {
		fmt.Fprintf(b, "    %s\n", f)
	}
}

// Findings returns the recorded findings in emission order.
func (c *Collector) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Finding(nil), c.findings...)
}

// Suppressions returns the recorded suppressions in emission order.
func (c *Collector) Suppressions() []Suppression {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Suppression(nil), c.suppressions...)
}
