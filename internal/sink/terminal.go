package sink

import (
	"github.com/mpyw/nopanic/internal/funcid"
)

// RuntimeUnit is the language runtime's unit.
const RuntimeUnit = "runtime"

// Terminal decides which units are never loaded. Calls into them are checked
// against the sink table and otherwise trusted.
type Terminal struct {
	stdlib map[string]bool
	extra  map[string]bool
}

// NewTerminal creates a Terminal. stdlib lists trusted standard library
// packages and may be nil; extra lists additional trusted units.
func NewTerminal(stdlib map[string]bool, extra ...string) *Terminal {
	t := &Terminal{stdlib: stdlib, extra: make(map[string]bool)}
	for _, u := range extra {
		t.extra[u] = true
	}

	return t
}

// IsTerminal reports whether unit is never loaded.
func (t *Terminal) IsTerminal(unit string) bool {
	if unit == funcid.BuiltinUnit || unit == RuntimeUnit {
		return true
	}
	if t == nil {
		return false
	}

	return t.stdlib[unit] || t.extra[unit]
}
