// Package procparam tracks parameters that restricted regions invoke and
// checks the arguments callers pass for them.
package procparam

import (
	"sort"

	"github.com/mpyw/nopanic/internal/funcid"
	"github.com/mpyw/nopanic/internal/report"
	"github.com/mpyw/nopanic/internal/traverse"
)

// Param is a parameter invoked inside a restricted region of its function.
type Param struct {
	Index int
	// Called is set when the parameter itself is called.
	Called bool
	// Methods are the abstract methods invoked on the parameter.
	Methods []funcid.ID
	// Region is the first region found invoking the parameter.
	Region report.Frame
}

// Map holds procedural parameters by function.
type Map struct {
	params map[funcid.ID]map[int]*Param
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{params: make(map[funcid.ID]map[int]*Param)}
}

// Record adds a parameter use found by a region traversal.
func (m *Map) Record(use traverse.ParamUse) {
	byIndex, ok := m.params[use.Owner]
	if !ok {
		byIndex = make(map[int]*Param)
		m.params[use.Owner] = byIndex
	}

	p, ok := byIndex[use.Index]
	if !ok {
		p = &Param{Index: use.Index, Region: use.Region}
		byIndex[use.Index] = p
	}

	if use.Method == nil {
		p.Called = true

		return
	}
	for _, id := range p.Methods {
		if id == *use.Method {
			return
		}
	}
	p.Methods = append(p.Methods, *use.Method)
}

// RecordAll adds every parameter use of res.
func (m *Map) RecordAll(res *traverse.Result) {
	for _, use := range res.Params {
		m.Record(use)
	}
}

// Lookup returns the procedural parameters of id ordered by index.
func (m *Map) Lookup(id funcid.ID) []*Param {
	byIndex := m.params[id]
	if len(byIndex) == 0 {
		return nil
	}

	out := make([]*Param, 0, len(byIndex))
	for _, p := range byIndex {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// Len returns the number of functions with procedural parameters.
func (m *Map) Len() int {
	return len(m.params)
}
