package ir

import (
	"fmt"

	"tally/internal/ast"
)

// Compiler lowers a statement list into a ByteCode unit by post-order
// traversal. Compilation cannot fail on parser output; a malformed tree
// (nil term, unknown variant) is a bug and panics.
type Compiler struct {
	bc *ByteCode
}

// Compile compiles list into a fresh unit.
func Compile(list *ast.StatementList) *ByteCode {
	bc := New()
	CompileInto(list, bc)
	return bc
}

// CompileInto appends list to bc, reusing its symbol tables. Linking several
// statement lists into one unit this way gives them a shared slot space.
func CompileInto(list *ast.StatementList, bc *ByteCode) {
	if list == nil {
		panic("ir: nil statement list")
	}
	c := &Compiler{bc: bc}
	for _, st := range list.Statements {
		c.compileStatement(st)
	}
}

func (c *Compiler) compileStatement(st ast.Statement) {
	switch st := st.(type) {
	case *ast.Assignment:
		c.compileExpression(st.Value)
		// Writes always target a local, allocated on first assignment.
		slot := c.bc.AddLocalVariable(st.Name)
		c.bc.EmitSlot(OpStore, slot)
	case *ast.Expression:
		c.compileExpression(st)
		c.bc.results++
	default:
		panic(fmt.Sprintf("ir: unexpected statement %T", st))
	}
}

func (c *Compiler) compileExpression(x *ast.Expression) {
	if x == nil {
		panic("ir: nil expression")
	}
	c.compileTerm(x.First)
	for _, op := range x.Rest {
		if op == nil {
			panic("ir: nil binary operation")
		}
		c.compileTerm(op.Right)
		switch op.Op {
		case ast.OpAdd:
			c.bc.Emit(OpAdd)
		case ast.OpSubtract:
			c.bc.Emit(OpSub)
		case ast.OpMultiply:
			c.bc.Emit(OpMul)
		case ast.OpDivide:
			c.bc.Emit(OpDiv)
		default:
			panic(fmt.Sprintf("ir: unknown binary operator %d", op.Op))
		}
	}
}

func (c *Compiler) compileTerm(t ast.Term) {
	switch t := t.(type) {
	case nil:
		panic("ir: nil term")

	case *ast.FloatLiteral:
		c.bc.EmitFloat(t.Value)

	case *ast.IdentExpr:
		if slot, ok := c.bc.FindLocalVariable(t.Name); ok {
			c.bc.EmitSlot(OpLoad, slot)
			return
		}
		// Unknown names read before any assignment come from the host.
		c.bc.EmitSlot(OpLoadC, c.bc.AddExternalRef(t.Name))

	case *ast.UnaryExpr:
		c.compileTerm(t.X)
		switch t.Op {
		case ast.OpNegative:
			c.bc.Emit(OpNeg)
		case ast.OpPositive:
			// identity
		case ast.OpNot:
			c.bc.Emit(OpNot)
		default:
			panic(fmt.Sprintf("ir: unknown unary operator %d", t.Op))
		}

	case *ast.IntrinsicCall:
		for _, arg := range t.Args {
			c.compileExpression(arg)
		}
		switch t.Intrinsic {
		case ast.IntrinsicAbs:
			c.bc.Emit(OpAbs)
		case ast.IntrinsicPow:
			c.bc.Emit(OpPow)
		case ast.IntrinsicAdd:
			c.bc.Emit(OpAdd)
		case ast.IntrinsicSubtract:
			c.bc.Emit(OpSub)
		case ast.IntrinsicMultiply:
			c.bc.Emit(OpMul)
		case ast.IntrinsicDivide:
			c.bc.Emit(OpDiv)
		case ast.IntrinsicNot:
			c.bc.Emit(OpNot)
		default:
			panic(fmt.Sprintf("ir: unknown intrinsic %d", t.Intrinsic))
		}

	case *ast.Expression:
		c.compileExpression(t)

	default:
		panic(fmt.Sprintf("ir: unexpected term %T", t))
	}
}
