// Package diag is the compile-error sink (spec.md §7): compile errors never
// propagate into emitted code, they abort the current chunk's compilation.
//
// Grounded on compiler/semantic.go's errors []string + errorf/errorAt
// accumulation idiom — the teacher's compiler core has no logging library
// at all, diagnostics are plain values returned to the caller. This
// generalizes that to a structured Kind so callers can switch on it
// instead of grepping formatted text.
package diag

import (
	"fmt"

	"github.com/chazu/emberc/pkg/ast"
)

// Kind enumerates spec.md §7's compile-time error kinds.
type Kind string

const (
	ParseFailure                  Kind = "ParseFailure"
	UnknownSymbol                 Kind = "UnknownSymbol"
	DuplicateSymbol               Kind = "DuplicateSymbol"
	AmbiguousOverload             Kind = "AmbiguousOverload"
	IncompatibleSignature         Kind = "IncompatibleSignature"
	InvalidAssignmentTarget       Kind = "InvalidAssignmentTarget"
	TypeMismatch                  Kind = "TypeMismatch"
	CaptureInStaticFunc           Kind = "CaptureInStaticFunc"
	LocalReferencedFromStaticInit Kind = "LocalReferencedFromStaticInit"
	UnsupportedNode               Kind = "UnsupportedNode"
)

// Diagnostic carries a node id for source-location recovery, per spec.md §7.
type Diagnostic struct {
	Kind    Kind
	NodeID  ast.NodeID
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s at node %d: %s", d.Kind, d.NodeID, d.Message)
}

// Sink accumulates diagnostics for the current chunk. A non-empty Sink
// means the chunk must not be emitted.
type Sink struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (s *Sink) Add(kind Kind, node ast.NodeID, format string, args ...interface{}) {
	s.items = append(s.items, Diagnostic{Kind: kind, NodeID: node, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic has been recorded.
func (s *Sink) HasErrors() bool { return len(s.items) > 0 }

// All returns every recorded diagnostic in report order.
func (s *Sink) All() []Diagnostic { return s.items }
