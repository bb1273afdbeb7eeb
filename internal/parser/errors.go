package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"tally/internal/token"
)

// Error describes the first ungrammatical construct of a failed parse.
type Error struct {
	Expected string         // description of the construct the rule wanted
	Found    token.Token    // token found instead
	Pos      token.Position // where the rule expected more input
	Start    token.Position // where the overall parse began
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: expected %s, got %s", e.Pos.Line, e.Pos.Column, e.Expected, describe(e.Found))
}

// Incomplete reports whether the parse failed only because input ran out.
func (e *Error) Incomplete() bool {
	return e.Found.Kind == token.EOF
}

// IsIncomplete reports whether err is a parse error at end of input.
func IsIncomplete(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Incomplete()
	}
	return false
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of input"
	case token.Illegal:
		return fmt.Sprintf("illegal character %q", tok.Lexeme)
	case token.Float:
		return "number " + tok.Lexeme
	case token.Ident:
		return fmt.Sprintf("identifier %q", tok.Lexeme)
	case token.Intrinsic:
		return fmt.Sprintf("intrinsic %q", tok.Lexeme)
	default:
		return tok.Kind.Describe()
	}
}

// ErrorHandler is notified when a parse fails, with the expected-construct
// description, the error site and the position where the parse began.
type ErrorHandler interface {
	HandleError(expected string, at, start token.Position)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(expected string, at, start token.Position)

func (f ErrorHandlerFunc) HandleError(expected string, at, start token.Position) {
	f(expected, at, start)
}

// Reporter is an ErrorHandler that writes a diagnostic with the offending
// source line and a caret under the error site.
type Reporter struct {
	w     io.Writer
	lines []string
}

func NewReporter(w io.Writer, src string) *Reporter {
	return &Reporter{
		w:     w,
		lines: strings.Split(src, "\n"),
	}
}

func (r *Reporter) HandleError(expected string, at, start token.Position) {
	line := ""
	if at.Line >= 1 && at.Line <= len(r.lines) {
		line = strings.TrimRight(r.lines[at.Line-1], "\r")
	}
	runes := []rune(line)
	col := at.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}

	fmt.Fprintf(r.w, "Error! Expecting %s here: %q\n", expected, string(runes[col:]))
	fmt.Fprintf(r.w, "  line %d, column %d (statement list began at %s)\n", at.Line, at.Column, start)
	fmt.Fprintf(r.w, "  %s\n", line)
	fmt.Fprintf(r.w, "  %s^\n", caretPad(runes[:col]))
}

// caretPad keeps tabs so the caret lines up with the source line.
func caretPad(prefix []rune) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteRune('\t')
		} else {
			sb.WriteRune(' ')
		}
	}
	return sb.String()
}
