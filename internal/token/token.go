package token

import "fmt"

type Kind int

const (
	Illegal Kind = iota
	EOF

	Float     // Numeric literal
	Ident     // Identifier
	Intrinsic // Reserved intrinsic name (abs, pow, ...)

	// Operators
	Assign // =

	Plus  // +
	Minus // -
	Star  // *
	Slash // /
	Bang  // !

	// Symbols
	Comma     // ,
	Semicolon // ;

	LParen // (
	RParen // )
)

// Position is a location in source text. Offset counts runes from the
// start of the whole text; Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
}

func (k Kind) String() string {
	switch k {
	case Illegal:
		return "Illegal"
	case EOF:
		return "EOF"
	case Float:
		return "Float"
	case Ident:
		return "Ident"
	case Intrinsic:
		return "Intrinsic"
	case Assign:
		return "Assign"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Star:
		return "Star"
	case Slash:
		return "Slash"
	case Bang:
		return "Bang"
	case Comma:
		return "Comma"
	case Semicolon:
		return "Semicolon"
	case LParen:
		return "LParen"
	case RParen:
		return "RParen"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Describe returns the form used in "expected ..." diagnostics.
func (k Kind) Describe() string {
	switch k {
	case EOF:
		return "end of input"
	case Float:
		return "number"
	case Ident:
		return "identifier"
	case Intrinsic:
		return "intrinsic"
	case Assign:
		return "'='"
	case Plus:
		return "'+'"
	case Minus:
		return "'-'"
	case Star:
		return "'*'"
	case Slash:
		return "'/'"
	case Bang:
		return "'!'"
	case Comma:
		return "','"
	case Semicolon:
		return "';'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	default:
		return k.String()
	}
}

// IntrinsicNames returns the reserved intrinsic names in declaration order.
func IntrinsicNames() []string {
	return []string{"abs", "pow", "add", "sub", "mul", "div", "not"}
}

// IsIntrinsic reports whether name is a reserved intrinsic name.
func IsIntrinsic(name string) bool {
	switch name {
	case "abs", "pow", "add", "sub", "mul", "div", "not":
		return true
	}
	return false
}

// LookupIdent classifies a scanned word.
func LookupIdent(lit string) Kind {
	if IsIntrinsic(lit) {
		return Intrinsic
	}
	return Ident
}
