package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"tally/internal/ast"
	"tally/internal/ir"
	"tally/internal/parser"
)

func compile(t *testing.T, src string) *ir.ByteCode {
	t.Helper()
	list, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return ir.Compile(list)
}

func flt(v float64) ir.Instruction { return ir.Instruction{Op: ir.OpFlt, Float: v} }
func op(o ir.OpCode) ir.Instruction { return ir.Instruction{Op: o} }
func slot(o ir.OpCode, s int) ir.Instruction { return ir.Instruction{Op: o, Slot: s} }

func expectCode(t *testing.T, src string, got []ir.Instruction, want ...ir.Instruction) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%q: expected %d instructions %v, got %d %v", src, len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: instruction %d: expected %s, got %s", src, i, want[i], got[i])
		}
	}
}

func TestCompile_Intrinsic(t *testing.T) {
	bc := compile(t, "pow(2,3);")
	expectCode(t, "pow(2,3);", bc.Instructions(), flt(2), flt(3), op(ir.OpPow))
	if bc.Results() != 1 {
		t.Fatalf("expected 1 result, got %d", bc.Results())
	}
}

func TestCompile_LeftAssociative(t *testing.T) {
	bc := compile(t, "8 - 2 - 3;")
	expectCode(t, "8 - 2 - 3;", bc.Instructions(),
		flt(8), flt(2), op(ir.OpSub), flt(3), op(ir.OpSub))
}

func TestCompile_Unary(t *testing.T) {
	bc := compile(t, "-+1; !2;")
	expectCode(t, "-+1; !2;", bc.Instructions(),
		flt(1), op(ir.OpNeg), flt(2), op(ir.OpNot))
	if bc.Results() != 2 {
		t.Fatalf("expected 2 results, got %d", bc.Results())
	}
}

func TestCompile_IntrinsicMapping(t *testing.T) {
	tests := []struct {
		src  string
		want ir.OpCode
	}{
		{"abs(1);", ir.OpAbs},
		{"add(1,2);", ir.OpAdd},
		{"sub(1,2);", ir.OpSub},
		{"mul(1,2);", ir.OpMul},
		{"div(1,2);", ir.OpDiv},
		{"not(1);", ir.OpNot},
	}
	for _, tt := range tests {
		code := compile(t, tt.src).Instructions()
		if last := code[len(code)-1]; last.Op != tt.want {
			t.Errorf("%q: expected last op %s, got %s", tt.src, tt.want, last.Op)
		}
	}
}

func TestCompile_ExternAndLocal(t *testing.T) {
	bc := compile(t, "x + 1;")
	expectCode(t, "x + 1;", bc.Instructions(), slot(ir.OpLoadC, 0), flt(1), op(ir.OpAdd))
	if s, ok := bc.FindExternalRef("x"); !ok || s != 0 {
		t.Fatalf("expected extern x at slot 0, got %d %v", s, ok)
	}
	if bc.Locals().Len() != 0 {
		t.Fatalf("expected no locals, got %v", bc.Locals().Names())
	}

	bc = compile(t, "a = 10; a;")
	expectCode(t, "a = 10; a;", bc.Instructions(), flt(10), slot(ir.OpStore, 0), slot(ir.OpLoad, 0))
	if bc.Externs().Len() != 0 {
		t.Fatalf("expected no externs, got %v", bc.Externs().Names())
	}
	if bc.Results() != 1 {
		t.Fatalf("expected 1 result, got %d", bc.Results())
	}
}

func TestCompile_SelfReferentialAssignment(t *testing.T) {
	bc := compile(t, "a = a + 1; a;")
	expectCode(t, "a = a + 1; a;", bc.Instructions(),
		slot(ir.OpLoadC, 0), flt(1), op(ir.OpAdd), slot(ir.OpStore, 0), slot(ir.OpLoad, 0))
	if _, ok := bc.FindExternalRef("a"); !ok {
		t.Fatalf("expected a in extern table")
	}
	if _, ok := bc.FindLocalVariable("a"); !ok {
		t.Fatalf("expected a in local table")
	}
}

func TestCompile_DenseSlots(t *testing.T) {
	bc := compile(t, "a = p; b = q; c = p + q + r; a = 1;")
	locals := bc.Locals().Names()
	externs := bc.Externs().Names()
	if strings.Join(locals, ",") != "a,b,c" {
		t.Fatalf("expected locals a,b,c, got %v", locals)
	}
	if strings.Join(externs, ",") != "p,q,r" {
		t.Fatalf("expected externs p,q,r, got %v", externs)
	}
	if bc.Results() != 0 {
		t.Fatalf("expected 0 results, got %d", bc.Results())
	}
}

func TestCompile_Idempotent(t *testing.T) {
	src := "x = pow(y, 2) - abs(z); x * 2; div(mul(2,2),not(0));"
	list, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := ir.Compile(list)
	b := ir.Compile(list)
	if !a.Equal(b) {
		t.Fatalf("expected identical units for the same tree")
	}
}

func TestCompileInto_SharesSymbols(t *testing.T) {
	bc := ir.New()
	first, _ := parser.Parse("a = x;")
	second, _ := parser.Parse("a + x;")
	ir.CompileInto(first, bc)
	ir.CompileInto(second, bc)
	expectCode(t, "linked", bc.Instructions(),
		slot(ir.OpLoadC, 0), slot(ir.OpStore, 0), slot(ir.OpLoad, 0), slot(ir.OpLoadC, 0), op(ir.OpAdd))
	if err := ir.Validate(bc); err != nil {
		t.Fatalf("expected valid unit, got %v", err)
	}

	bc.Clear()
	if len(bc.Instructions()) != 0 || bc.Locals().Len() != 0 || bc.Externs().Len() != 0 || bc.Results() != 0 {
		t.Fatalf("expected Clear to empty the unit")
	}
}

func TestCompile_PanicsOnMalformedTree(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on nil term")
		}
	}()
	ir.Compile(&ast.StatementList{Statements: []ast.Statement{&ast.Expression{}}})
}

func TestValidate(t *testing.T) {
	if err := ir.Validate(compile(t, "a = pow(x, 2); a - y; -a;")); err != nil {
		t.Fatalf("expected compiled unit to validate, got %v", err)
	}

	bad := []func(bc *ir.ByteCode){
		func(bc *ir.ByteCode) { bc.Emit(ir.OpAdd) },
		func(bc *ir.ByteCode) { bc.EmitSlot(ir.OpLoad, 0) },
		func(bc *ir.ByteCode) { bc.EmitSlot(ir.OpLoadC, 3) },
		func(bc *ir.ByteCode) { bc.EmitFloat(1) },
		func(bc *ir.ByteCode) { bc.Emit(ir.OpCode(200)) },
	}
	for i, mutate := range bad {
		bc := ir.New()
		mutate(bc)
		if err := ir.Validate(bc); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestMaxStack(t *testing.T) {
	bc := compile(t, "1 + (2 * (3 - 4));")
	if got := ir.MaxStack(bc); got != 4 {
		t.Fatalf("expected max stack 4, got %d", got)
	}
}

func TestDisassemble(t *testing.T) {
	bc := compile(t, "a = x * 2; a;")
	var buf bytes.Buffer
	if err := ir.Disassemble(&buf, bc); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"; 5 instructions, 1 locals, 1 externs, 1 results",
		"0000  loadc  0 (x)",
		"0001  flt    2",
		"0003  store  0 (a)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in listing:\n%s", want, out)
		}
	}
}
