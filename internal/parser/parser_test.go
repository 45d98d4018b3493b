package parser

import (
	"testing"

	"github.com/hyung-hwan/hawk-sub000/internal/ast"
	"github.com/hyung-hwan/hawk-sub000/internal/lexer"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := New(lexer.NewStringSource("test", src), "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func TestParseBeginEndRules(t *testing.T) {
	prog := mustParse(t, `BEGIN { x = 1 } END { print x }`)
	if len(prog.Rules) != 2 {
		t.Fatalf("want 2 rules, got %d", len(prog.Rules))
	}
	if prog.Rules[0].Kind != ast.PatternBegin || prog.Rules[1].Kind != ast.PatternEnd {
		t.Fatalf("unexpected rule kinds: %v %v", prog.Rules[0].Kind, prog.Rules[1].Kind)
	}
}

func TestParsePatternRange(t *testing.T) {
	prog := mustParse(t, "/start/, /end/ { print }")
	if len(prog.Rules) != 1 || prog.Rules[0].Kind != ast.PatternRange {
		t.Fatalf("expected one range-pattern rule, got %+v", prog.Rules)
	}
}

func TestParseFunctionDefAndCall(t *testing.T) {
	prog := mustParse(t, `
function add(a, b) { return a + b }
BEGIN { print add(1, 2) }
`)
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "add" {
		t.Fatalf("expected function 'add', got %+v", prog.Functions)
	}
	call, ok := prog.Rules[0].Action.Stmts[0].(*ast.PrintStmt).Args[0].(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected a CallExpr argument")
	}
	if call.Kind != ast.CallUser || call.Name != "add" {
		t.Fatalf("expected user call to add, got %+v", call)
	}
}

func TestUndefinedFunctionCallFails(t *testing.T) {
	p, err := New(lexer.NewStringSource("test", `BEGIN { print missing(1) }`), "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Parse(); err == nil {
		t.Fatalf("expected an error for a call to an undefined function")
	}
}

func TestScopeResolvesLocalsParamsGlobals(t *testing.T) {
	prog := mustParse(t, `
function f(p) {
	@local l
	l = p
	g = l
	return g
}
`)
	body := prog.Functions[0].Body.Stmts
	// l = p
	assign1 := body[1].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	if _, ok := assign1.Left.(*ast.LocalExpr); !ok {
		t.Fatalf("expected l to resolve as a LocalExpr, got %T", assign1.Left)
	}
	if _, ok := assign1.Right.(*ast.ArgExpr); !ok {
		t.Fatalf("expected p to resolve as an ArgExpr, got %T", assign1.Right)
	}
	// g = l
	assign2 := body[2].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	if _, ok := assign2.Left.(*ast.GlobalExpr); !ok {
		t.Fatalf("expected g to resolve as a GlobalExpr (implicit global), got %T", assign2.Left)
	}
}

func TestConstantFoldingArithmetic(t *testing.T) {
	prog := mustParse(t, `BEGIN { x = 2 + 3 * 4 }`)
	assign := prog.Rules[0].Action.Stmts[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	lit, ok := assign.Right.(*ast.IntLit)
	if !ok {
		t.Fatalf("expected constant folding to produce an IntLit, got %T", assign.Right)
	}
	if lit.Value != 14 {
		t.Fatalf("want 14, got %d", lit.Value)
	}
}

func TestDivisionByZeroConstantFoldingFails(t *testing.T) {
	p, err := New(lexer.NewStringSource("test", `BEGIN { x = 1 / 0 }`), "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Parse(); err == nil {
		t.Fatalf("expected a division-by-zero parse error")
	}
}

func TestImplicitConcatenation(t *testing.T) {
	prog := mustParse(t, `BEGIN { x = "a" "b" }`)
	assign := prog.Rules[0].Action.Stmts[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	bin, ok := assign.Right.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected implicit concatenation to produce a BinaryExpr, got %T", assign.Right)
	}
	if bin.Left.(*ast.StrLit).Value != "a" || bin.Right.(*ast.StrLit).Value != "b" {
		t.Fatalf("unexpected concat operands: %+v", bin)
	}
}

func TestForInLoop(t *testing.T) {
	prog := mustParse(t, `BEGIN { for (k in arr) print k }`)
	forIn, ok := prog.Rules[0].Action.Stmts[0].(*ast.ForInStmt)
	if !ok {
		t.Fatalf("expected a ForInStmt, got %T", prog.Rules[0].Action.Stmts[0])
	}
	if _, ok := forIn.Var.(*ast.GlobalExpr); !ok {
		t.Fatalf("expected loop variable to resolve as a global, got %T", forIn.Var)
	}
}

func TestGetlineVariants(t *testing.T) {
	prog := mustParse(t, `
BEGIN {
	getline
	getline line
	getline line < "file.txt"
	"cmd" | getline line
}
`)
	stmts := prog.Rules[0].Action.Stmts
	g0 := stmts[0].(*ast.ExprStmt).Expr.(*ast.GetlineExpr)
	if g0.Source != ast.GetlineCurrent || g0.Var != nil {
		t.Fatalf("expected plain getline, got %+v", g0)
	}
	g2 := stmts[2].(*ast.ExprStmt).Expr.(*ast.GetlineExpr)
	if g2.Source != ast.GetlineFile {
		t.Fatalf("expected getline-from-file, got %+v", g2)
	}
	g3 := stmts[3].(*ast.ExprStmt).Expr.(*ast.GetlineExpr)
	if g3.Source != ast.GetlineCommand {
		t.Fatalf("expected cmd | getline, got %+v", g3)
	}
}

func TestPrintRedirect(t *testing.T) {
	prog := mustParse(t, `BEGIN { print "hi" > "out.txt" }`)
	stmt := prog.Rules[0].Action.Stmts[0].(*ast.PrintStmt)
	if stmt.Target == nil || stmt.Target.Kind != ast.RedirectTruncate {
		t.Fatalf("expected a truncating redirect, got %+v", stmt.Target)
	}
}

func TestDeleteWholeArrayAndElement(t *testing.T) {
	prog := mustParse(t, `BEGIN { delete arr[1]; delete arr }`)
	d1 := prog.Rules[0].Action.Stmts[0].(*ast.DeleteStmt)
	if d1.Index == nil {
		t.Fatalf("expected delete arr[1] to carry an index expression")
	}
	d2 := prog.Rules[0].Action.Stmts[1].(*ast.DeleteStmt)
	if d2.Index != nil {
		t.Fatalf("expected bare delete arr to have no index")
	}
}

func TestIfElseDanglingElseBindsToNearestIf(t *testing.T) {
	prog := mustParse(t, `
BEGIN {
	if (a)
		if (b)
			x = 1
		else
			x = 2
}
`)
	outer := prog.Rules[0].Action.Stmts[0].(*ast.IfStmt)
	inner, ok := outer.Then.(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected the outer if's body to be the inner if")
	}
	if inner.Else == nil {
		t.Fatalf("expected the else to bind to the inner if")
	}
	if outer.Else != nil {
		t.Fatalf("expected the outer if to have no else")
	}
}

func TestIncludeDirectivePushesAndPopsTransparently(t *testing.T) {
	// The shared StringSource callback has already served its one body to
	// the root source, so the pushed include frame reads EOF immediately
	// and the lexer pops back to the root transparently (spec §4.3
	// "continues parsing" / "pops back to the parent source on EOF");
	// this exercises that plumbing without needing a real multi-file
	// SourceIO.
	prog := mustParse(t, `@include_once "helpers.hawk"
BEGIN { print 1 }`)
	if len(prog.Rules) != 1 {
		t.Fatalf("expected parsing to continue past the include, got %+v", prog.Rules)
	}
}

func TestPragmaImplicitOffRejectsUndeclaredVariable(t *testing.T) {
	p, err := New(lexer.NewStringSource("test", `
@pragma implicit off
BEGIN { x = 1 }
`), "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Parse(); err == nil {
		t.Fatalf("expected an undefined-variable error with implicit variables off")
	}
}
