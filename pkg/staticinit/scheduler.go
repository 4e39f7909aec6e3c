// Package staticinit implements spec.md §4.7's StaticInitScheduler: a
// mark-on-entry DFS over the initializer-dependency graph pkg/semantic
// records while walking each top-level variable's initializer, producing
// the order pkg/emit's EmitModule must emit setStaticVar calls in.
//
// New relative to the teacher: chazu-maggie's classes have no top-level
// static-initializer dependency graph to schedule. Grounded in general
// shape on the mark-on-entry recursive-walk idiom used throughout the
// pack for cycle-tolerant graph traversal (compiler/hash/normalize.go's
// scope-stack AST walk is the closest analogue of "walk once, remember
// what's been visited, recurse into dependencies before acting").
package staticinit

import "github.com/chazu/emberc/pkg/symbol"

// DepGraph is the read-only view the scheduler needs of
// pkg/semantic.Analyzer's recorded dependency edges: every symbol that
// initedSym's initializer referenced, directly, while it was being
// walked.
type DepGraph interface {
	Dependencies(sym symbol.SymID) []symbol.SymID
}

// Schedule runs spec.md §4.7's DFS over vars (in source order, so ties
// among symbols with no dependency relation keep their declaration
// order) and returns them in a valid topological order for acyclic
// graphs. A back edge — sym A depends on sym B but B's DFS is already in
// progress — is permitted, not diagnosed (spec.md §9's noted-not-decided
// Open Question: this implementation keeps the reference behavior of a
// silent half-initialized `none` rather than turning it into a
// diagnostic).
func Schedule(vars []symbol.SymID, deps DepGraph) []symbol.SymID {
	visited := make(map[symbol.SymID]bool, len(vars))
	inProgress := make(map[symbol.SymID]bool, len(vars))
	order := make([]symbol.SymID, 0, len(vars))

	var visit func(sym symbol.SymID)
	visit = func(sym symbol.SymID) {
		if visited[sym] || inProgress[sym] {
			return
		}
		inProgress[sym] = true
		for _, dep := range deps.Dependencies(sym) {
			visit(dep)
		}
		inProgress[sym] = false
		visited[sym] = true
		order = append(order, sym)
	}

	for _, sym := range vars {
		visit(sym)
	}
	return order
}

// HasCycle reports whether an initializer dependency cycle is reachable
// from sym (the cycle need not pass through sym itself), for callers that want to warn without changing emission order
// (the DFS itself tolerates cycles per spec.md §9).
func HasCycle(sym symbol.SymID, deps DepGraph) bool {
	visited := make(map[symbol.SymID]bool)
	var walk func(cur symbol.SymID, stack map[symbol.SymID]bool) bool
	walk = func(cur symbol.SymID, stack map[symbol.SymID]bool) bool {
		if stack[cur] {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		stack[cur] = true
		for _, dep := range deps.Dependencies(cur) {
			if walk(dep, stack) {
				return true
			}
		}
		stack[cur] = false
		return false
	}
	return walk(sym, make(map[symbol.SymID]bool))
}
