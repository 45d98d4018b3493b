package hawk

import (
	"testing"

	"github.com/hyung-hwan/hawk-sub000/internal/ast"
	"github.com/hyung-hwan/hawk-sub000/internal/lexer"
)

func TestPresetsComposeExpectedBits(t *testing.T) {
	if Classic&OptImplicit == 0 {
		t.Fatalf("Classic should include Implicit")
	}
	if Modern&OptFlexMap == 0 || Modern&OptRexBound == 0 || Modern&OptTolerant == 0 {
		t.Fatalf("Modern should add FlexMap/RexBound/Tolerant over Classic")
	}
	if Modern&Classic != Classic {
		t.Fatalf("Modern should be a superset of Classic")
	}
}

func TestGlobalBuiltinsPreregistered(t *testing.T) {
	it := New(Classic, nil)
	prog, err := it.Parse(lexer.NewStringSource("t", `BEGIN { FS = ","; NF = NF }`), "t")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assign := prog.Rules[0].Action.Stmts[0].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	if _, ok := assign.Left.(*ast.GlobalExpr); !ok {
		t.Fatalf("expected FS to resolve as a pre-registered global, got %T", assign.Left)
	}
}

func TestImplicitOffRejectsUndeclaredGlobalViaOption(t *testing.T) {
	it := New(Modern&^OptImplicit, nil)
	if _, err := it.Parse(lexer.NewStringSource("t", `BEGIN { x = 1 }`), "t"); err == nil {
		t.Fatalf("expected an undefined-variable error with Implicit cleared via Option")
	}
}

func TestHaltFlag(t *testing.T) {
	it := New(Classic, nil)
	if it.Halted() {
		t.Fatalf("expected a fresh Interpreter to not be halted")
	}
	it.Halt()
	if !it.Halted() {
		t.Fatalf("expected Halted() to report true after Halt()")
	}
}

func TestAddGlobalBeforeParse(t *testing.T) {
	it := New(Classic, nil)
	it.AddGlobal("MY_CONST")
	prog, err := it.Parse(lexer.NewStringSource("t", `BEGIN { print MY_CONST }`), "t")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Rules) != 1 {
		t.Fatalf("expected one rule")
	}
}
