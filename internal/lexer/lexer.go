package lexer

import (
	"tally/internal/token"
)

type Lexer struct {
	input []rune

	pos int // index of the rune after ch
	end int

	ch   rune
	line int
	col  int
}

// New returns a lexer over the whole input.
func New(input string) *Lexer {
	rs := []rune(input)
	return newLexer(rs, 0, len(rs))
}

// NewRange returns a lexer over input[begin:end] (rune offsets). Token
// positions stay relative to the start of input so diagnostics point into
// the full text.
func NewRange(input string, begin, end int) *Lexer {
	rs := []rune(input)
	if begin < 0 {
		begin = 0
	}
	if begin > len(rs) {
		begin = len(rs)
	}
	if end > len(rs) {
		end = len(rs)
	}
	if end < begin {
		end = begin
	}
	return newLexer(rs, begin, end)
}

func newLexer(rs []rune, begin, end int) *Lexer {
	l := &Lexer{
		input: rs,
		end:   end,
		line:  1,
		col:   0,
	}
	for l.pos < begin {
		l.readChar()
	}
	l.readChar()
	return l
}

// Start returns the position of the first rune the lexer will scan.
func (l *Lexer) Start() token.Position {
	return l.position()
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := l.position()
	ch := l.ch

	if l.atEOF() {
		return token.Token{
			Kind:   token.EOF,
			Lexeme: "",
			Pos:    pos,
		}
	}

	// Numbers: 12, 1.5, 1., .5, 2e10, 2.5E-3
	if isDigit(ch) || (ch == '.' && isDigit(l.peekChar())) {
		return token.Token{
			Kind:   token.Float,
			Lexeme: l.readNumber(),
			Pos:    pos,
		}
	}

	// Identifiers / intrinsic names
	if isLetter(ch) {
		lit := l.readIdentifier()
		return token.Token{
			Kind:   token.LookupIdent(lit),
			Lexeme: lit,
			Pos:    pos,
		}
	}

	var kind token.Kind
	var lexeme string

	switch ch {
	case ';':
		kind = token.Semicolon
		lexeme = ";"
	case ',':
		kind = token.Comma
		lexeme = ","
	case '(':
		kind = token.LParen
		lexeme = "("
	case ')':
		kind = token.RParen
		lexeme = ")"
	case '=':
		kind = token.Assign
		lexeme = "="
	case '+':
		kind = token.Plus
		lexeme = "+"
	case '-':
		kind = token.Minus
		lexeme = "-"
	case '*':
		kind = token.Star
		lexeme = "*"
	case '/':
		kind = token.Slash
		lexeme = "/"
	case '!':
		kind = token.Bang
		lexeme = "!"
	default:
		kind = token.Illegal
		lexeme = string(ch)
	}

	l.readChar()

	return token.Token{
		Kind:   kind,
		Lexeme: lexeme,
		Pos:    pos,
	}
}

// Helpers

func (l *Lexer) position() token.Position {
	return token.Position{
		Offset: l.pos - 1,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) readChar() {
	if l.pos > l.end {
		l.ch = 0
		return
	}

	if l.pos > 0 && l.input[l.pos-1] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	// One step past the range end yields EOF at the position after the last rune.
	if l.pos == l.end {
		l.ch = 0
	} else {
		l.ch = l.input[l.pos]
	}
	l.pos++
}

func (l *Lexer) atEOF() bool {
	return l.pos > l.end
}

func (l *Lexer) peekChar() rune {
	if l.pos >= l.end {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipWhitespace() {
	for isSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos - 1 // current rune is already in l.ch
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return string(l.input[start : l.pos-1])
}

func (l *Lexer) readNumber() string {
	start := l.pos - 1
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	// Exponent only when digits follow, so "2e" lexes as 2 then e.
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(1))) {
			l.readChar() // consume 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return string(l.input[start : l.pos-1])
}

func (l *Lexer) peekAt(n int) rune {
	i := l.pos + n
	if i >= l.end {
		return 0
	}
	return l.input[i]
}

func isSpace(ch rune) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isLetter(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
