package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump returns a human-readable representation of the AST.
func Dump(node Node) string {
	var sb strings.Builder
	fprintNode(&sb, node, 0)
	return sb.String()
}

func fprintNode(w io.Writer, n Node, indent int) {
	if n == nil {
		return
	}

	ind := strings.Repeat("  ", indent)

	switch n := n.(type) {
	case *StatementList:
		fmt.Fprintf(w, "%sStatementList\n", ind)
		for _, st := range n.Statements {
			fprintNode(w, st, indent+1)
		}

	case *Assignment:
		fmt.Fprintf(w, "%sAssignment name=%s\n", ind, n.Name)
		fprintNode(w, n.Value, indent+1)

	case *Expression:
		fmt.Fprintf(w, "%sExpression\n", ind)
		fprintNode(w, n.First, indent+1)
		for _, op := range n.Rest {
			fprintNode(w, op, indent+1)
		}

	case *BinaryOp:
		fmt.Fprintf(w, "%sBinaryOp %s\n", ind, n.Op)
		fprintNode(w, n.Right, indent+1)

	case *UnaryExpr:
		fmt.Fprintf(w, "%sUnaryExpr %s\n", ind, n.Op)
		fprintNode(w, n.X, indent+1)

	case *IntrinsicCall:
		fmt.Fprintf(w, "%sIntrinsicCall %s args=%d\n", ind, n.Intrinsic, len(n.Args))
		for _, arg := range n.Args {
			fprintNode(w, arg, indent+1)
		}

	case *IdentExpr:
		fmt.Fprintf(w, "%sIdentExpr %s\n", ind, n.Name)

	case *FloatLiteral:
		fmt.Fprintf(w, "%sFloatLiteral %s\n", ind, formatFloat(n))

	default:
		fmt.Fprintf(w, "%s<unknown %T>\n", ind, n)
	}
}

// Format renders a statement list back to source, one statement per line.
// Parsing the result yields an equivalent tree.
func Format(list *StatementList) string {
	var sb strings.Builder
	for i, st := range list.Statements {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch st := st.(type) {
		case *Assignment:
			sb.WriteString(st.Name)
			sb.WriteString(" = ")
			writeExpression(&sb, st.Value)
		case *Expression:
			writeExpression(&sb, st)
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

func writeExpression(sb *strings.Builder, e *Expression) {
	writeTerm(sb, e.First)
	for _, op := range e.Rest {
		sb.WriteByte(' ')
		sb.WriteString(op.Op.String())
		sb.WriteByte(' ')
		writeTerm(sb, op.Right)
	}
}

func writeTerm(sb *strings.Builder, t Term) {
	switch t := t.(type) {
	case *FloatLiteral:
		sb.WriteString(formatFloat(t))
	case *IdentExpr:
		sb.WriteString(t.Name)
	case *UnaryExpr:
		sb.WriteString(t.Op.String())
		writeTerm(sb, t.X)
	case *IntrinsicCall:
		sb.WriteString(t.Intrinsic.String())
		sb.WriteByte('(')
		for i, arg := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpression(sb, arg)
		}
		sb.WriteByte(')')
	case *Expression:
		sb.WriteByte('(')
		writeExpression(sb, t)
		sb.WriteByte(')')
	}
}

func formatFloat(l *FloatLiteral) string {
	if l.Raw != "" {
		return l.Raw
	}
	return strconv.FormatFloat(l.Value, 'g', -1, 64)
}
