package ast

import "tally/internal/token"

// Basic interfaces

type Node interface {
	Pos() token.Position
}

// Term is an operand position in an expression. The set of terms is closed:
// *FloatLiteral, *IdentExpr, *UnaryExpr, *IntrinsicCall and *Expression.
type Term interface {
	Node
	termNode()
}

// Statement is either an *Expression or an *Assignment.
type Statement interface {
	Node
	stmtNode()
}

// ---------- Operators ----------

type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
)

func (op BinaryOperator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return "?"
	}
}

// BinaryOperatorFor maps an infix token to its operator.
func BinaryOperatorFor(k token.Kind) (BinaryOperator, bool) {
	switch k {
	case token.Plus:
		return OpAdd, true
	case token.Minus:
		return OpSubtract, true
	case token.Star:
		return OpMultiply, true
	case token.Slash:
		return OpDivide, true
	}
	return 0, false
}

type UnaryOperator int

const (
	OpPositive UnaryOperator = iota
	OpNegative
	OpNot
)

func (op UnaryOperator) String() string {
	switch op {
	case OpPositive:
		return "+"
	case OpNegative:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// UnaryOperatorFor maps a prefix token to its operator.
func UnaryOperatorFor(k token.Kind) (UnaryOperator, bool) {
	switch k {
	case token.Plus:
		return OpPositive, true
	case token.Minus:
		return OpNegative, true
	case token.Bang:
		return OpNot, true
	}
	return 0, false
}

type Intrinsic int

const (
	IntrinsicAbs Intrinsic = iota
	IntrinsicPow
	IntrinsicAdd
	IntrinsicSubtract
	IntrinsicMultiply
	IntrinsicDivide
	IntrinsicNot
)

// LookupIntrinsic maps a reserved name to its intrinsic.
func LookupIntrinsic(name string) (Intrinsic, bool) {
	switch name {
	case "abs":
		return IntrinsicAbs, true
	case "pow":
		return IntrinsicPow, true
	case "add":
		return IntrinsicAdd, true
	case "sub":
		return IntrinsicSubtract, true
	case "mul":
		return IntrinsicMultiply, true
	case "div":
		return IntrinsicDivide, true
	case "not":
		return IntrinsicNot, true
	}
	return 0, false
}

func (i Intrinsic) String() string {
	switch i {
	case IntrinsicAbs:
		return "abs"
	case IntrinsicPow:
		return "pow"
	case IntrinsicAdd:
		return "add"
	case IntrinsicSubtract:
		return "sub"
	case IntrinsicMultiply:
		return "mul"
	case IntrinsicDivide:
		return "div"
	case IntrinsicNot:
		return "not"
	default:
		return "?"
	}
}

// Arity is the fixed number of arguments the intrinsic takes.
func (i Intrinsic) Arity() int {
	switch i {
	case IntrinsicAbs, IntrinsicNot:
		return 1
	default:
		return 2
	}
}

// ---------- Terms ----------

type FloatLiteral struct {
	Value  float64
	LitPos token.Position
	Raw    string
}

func (l *FloatLiteral) Pos() token.Position { return l.LitPos }
func (*FloatLiteral) termNode() {}

// IdentExpr is a name. Whether it denotes a local or an extern is decided
// by the compiler, not the parser.
type IdentExpr struct {
	Name    string
	NamePos token.Position
}

func (e *IdentExpr) Pos() token.Position { return e.NamePos }
func (*IdentExpr) termNode() {}

type UnaryExpr struct {
	OpPos token.Position
	Op    UnaryOperator
	X     Term
}

func (e *UnaryExpr) Pos() token.Position { return e.OpPos }
func (*UnaryExpr) termNode() {}

type IntrinsicCall struct {
	Intrinsic Intrinsic
	NamePos   token.Position
	Args      []*Expression
	RParen    token.Position
}

func (c *IntrinsicCall) Pos() token.Position { return c.NamePos }
func (*IntrinsicCall) termNode() {}

// BinaryOp is one link of an expression chain: the operator and the
// operand to its right. The left operand is everything before it.
type BinaryOp struct {
	OpPos token.Position
	Op    BinaryOperator
	Right Term
}

func (b *BinaryOp) Pos() token.Position { return b.OpPos }

// Expression is a left fold: First, then each of Rest applied in order.
// All binary operators bind equally; grouping needs parentheses, which
// produce a nested *Expression term.
type Expression struct {
	First Term
	Rest  []*BinaryOp
}

func (e *Expression) Pos() token.Position {
	if e.First == nil {
		return token.Position{}
	}
	return e.First.Pos()
}
func (*Expression) termNode() {}
func (*Expression) stmtNode() {}

// ---------- Statements ----------

type Assignment struct {
	Name    string
	NamePos token.Position
	Value   *Expression
}

func (a *Assignment) Pos() token.Position { return a.NamePos }
func (*Assignment) stmtNode() {}

// StatementList is the unit produced by one parse and consumed by one compile.
type StatementList struct {
	Statements []Statement
}

func (l *StatementList) Pos() token.Position {
	if len(l.Statements) > 0 {
		return l.Statements[0].Pos()
	}
	return token.Position{}
}
