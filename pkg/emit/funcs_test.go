package emit

import (
	"testing"

	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/diag"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/symbol"
)

// findCallObjSymGroupID scans c for the first OpCallObjSym and decodes its
// groupId operand (bytes 5-6 of the instruction, per opcodes.go's layout).
func findCallObjSymGroupID(c *bytecode.Chunk) (int, bool) {
	pc := 0
	for pc < len(c.Code) {
		op := bytecode.Op(c.Code[pc])
		w := bytecode.FixedOperandWidth(op)
		if op == bytecode.OpCallObjSym {
			return int(c.Code[pc+5])<<8 | int(c.Code[pc+6]), true
		}
		if w < 0 {
			count := int(c.Code[pc+1])
			pc += 2 + count
			continue
		}
		pc += 1 + w
	}
	return 0, false
}

// TestCompileChunkMethodAndCallSiteAgreeOnGroupID builds a Point object
// with one method and a free function that calls it dynamically, and
// checks that the compiled method's recorded GroupID (funcs.go's
// MethodChunk) is the exact id the call site's OpCallObjSym embeds — the
// two must agree for a downstream methodSyms[(typeId, mgId)] table to
// ever resolve a dispatch.
func TestCompileChunkMethodAndCallSiteAgreeOnGroupID(t *testing.T) {
	table := symbol.NewTable()
	sink := &diag.Sink{}
	analyzer := semantic.NewAnalyzer(table, sink, symbol.NullSym)

	field := &ast.Node{ID: 2, Kind: ast.KindVarDecl, Name: "x", Left: &ast.Node{ID: 3, Kind: ast.KindIntLit, IntValue: 0}}
	methodBody := &ast.Node{ID: 5, Kind: ast.KindReturn, Left: &ast.Node{ID: 6, Kind: ast.KindField, Name: "x", Left: &ast.Node{ID: 7, Kind: ast.KindIdent, Name: "self"}}}
	method := &ast.Node{ID: 4, Kind: ast.KindMethodDecl, Name: "getX", Params: []string{"self"}, Children: methodBody}
	field.Next = method
	obj := &ast.Node{ID: 1, Kind: ast.KindObjectDecl, Name: "Point", Children: field}

	callBody := &ast.Node{ID: 11, Kind: ast.KindReturn, Left: &ast.Node{ID: 12, Kind: ast.KindMethodCall, Name: "getX", Left: &ast.Node{ID: 13, Kind: ast.KindIdent, Name: "p"}}}
	fn := &ast.Node{ID: 10, Kind: ast.KindFuncDecl, Name: "callIt", Params: []string{"p"}, Children: callBody}
	obj.Next = fn

	mod := CompileChunk(table, analyzer, 0, obj)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}

	mc, ok := mod.Methods[method.ID]
	if !ok {
		t.Fatal("expected a MethodChunk recorded for Point.getX")
	}

	objSym, err := table.ResolveDistinct(symbol.NullSym, table.Names.Intern("Point"))
	if err != nil || objSym == nil {
		t.Fatalf("expected Point to resolve, err=%v", err)
	}
	if mc.OwnerType != objSym.RuntimeTypeID {
		t.Errorf("MethodChunk.OwnerType = %v, want %v", mc.OwnerType, objSym.RuntimeTypeID)
	}

	fnChunk, ok := mod.Functions[fn.ID]
	if !ok {
		t.Fatal("expected a Chunk recorded for callIt")
	}
	groupID, found := findCallObjSymGroupID(fnChunk)
	if !found {
		t.Fatal("expected callIt's body to emit OpCallObjSym for p.getX()")
	}
	if groupID != mc.GroupID {
		t.Errorf("call site groupID = %d, method declaration groupID = %d; they must agree", groupID, mc.GroupID)
	}
}

// TestEmitFunctionChunkZeroInitializesUndeclaredLocalsOnce checks that a
// `var` with no initializer is zero-initialized once at frame entry via
// OpSetInitN rather than inline at its declaration statement, so a release
// along a path that skips the declaration never reads a garbage slot.
func TestEmitFunctionChunkZeroInitializesUndeclaredLocalsOnce(t *testing.T) {
	table := symbol.NewTable()
	sink := &diag.Sink{}
	analyzer := semantic.NewAnalyzer(table, sink, symbol.NullSym)

	decl := &ast.Node{ID: 2, Kind: ast.KindVarDecl, Name: "acc"}
	ret := &ast.Node{ID: 3, Kind: ast.KindReturn, Left: &ast.Node{ID: 4, Kind: ast.KindIdent, Name: "acc"}}
	decl.Next = ret
	fn := &ast.Node{ID: 1, Kind: ast.KindFuncDecl, Name: "f", Children: decl}

	mod := CompileChunk(table, analyzer, 0, fn)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}

	fnChunk, ok := mod.Functions[fn.ID]
	if !ok {
		t.Fatal("expected a Chunk recorded for f")
	}

	if !containsOp(fnChunk, bytecode.OpSetInitN) {
		t.Fatal("an uninitialized local should be zero-initialized via OpSetInitN at frame entry")
	}
	if findOpPC(fnChunk, bytecode.OpSetInitN) != 0 {
		t.Error("OpSetInitN should be the very first instruction emitted, before the body runs")
	}
}
