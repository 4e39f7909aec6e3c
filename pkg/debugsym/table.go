// Package debugsym implements spec.md §4.8's DebugSymbolTable: it maps a
// bytecode PC to the source node that produced it and to the PC of that
// frame's end-locals release sequence, for the unwinders in pkg/runtime.
//
// Grounded on vm/debugger.go and the teacher's pkg/bytecode Chunk
// SourceMap/VarNames fields (kept from the prior pass), binary-searched by
// PC as the spec requires.
package debugsym

import (
	"sort"

	"github.com/chazu/emberc/pkg/ast"
)

// NoEndLocalsPC is the sentinel for "this frame has no rc-candidate
// locals, nothing to release at block end" (spec.md §4.8).
const NoEndLocalsPC = -1

// DebugSym is one emission-site record.
type DebugSym struct {
	PC          int
	NodeID      ast.NodeID
	EndLocalsPC int
}

// Table holds every DebugSym registered during emission of one Chunk,
// kept sorted by PC for binary search.
type Table struct {
	entries []DebugSym
	sorted  bool
}

// NewTable creates an empty DebugSymbolTable.
func NewTable() *Table {
	return &Table{}
}

// Add records a DebugSym at pc. Called by the emitter at every call,
// throw, and yield site (spec.md §4.8).
func (t *Table) Add(pc int, node ast.NodeID, endLocalsPC int) {
	t.entries = append(t.entries, DebugSym{PC: pc, NodeID: node, EndLocalsPC: endLocalsPC})
	t.sorted = false
}

func (t *Table) ensureSorted() {
	if t.sorted {
		return
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].PC < t.entries[j].PC })
	t.sorted = true
}

// Lookup binary-searches for the DebugSym whose PC is the greatest value
// <= pc (the record describing the frame the given PC is currently
// executing within). Returns false if the table is empty or pc precedes
// every recorded entry.
func (t *Table) Lookup(pc int) (DebugSym, bool) {
	t.ensureSorted()
	if len(t.entries) == 0 {
		return DebugSym{}, false
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].PC > pc })
	if i == 0 {
		return DebugSym{}, false
	}
	return t.entries[i-1], true
}

// All returns every recorded DebugSym in PC order.
func (t *Table) All() []DebugSym {
	t.ensureSorted()
	return append([]DebugSym(nil), t.entries...)
}
