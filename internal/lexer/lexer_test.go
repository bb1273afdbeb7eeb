package lexer_test

import (
	"testing"

	"tally/internal/lexer"
	"tally/internal/token"
)

func TestNextToken_Statements(t *testing.T) {
	input := `rate = pow(base, 2) * -x;
absvalue = abs(1.5e3) / !y;`

	tests := []struct {
		kind token.Kind
		lit  string
	}{
		{token.Ident, "rate"},
		{token.Assign, "="},
		{token.Intrinsic, "pow"},
		{token.LParen, "("},
		{token.Ident, "base"},
		{token.Comma, ","},
		{token.Float, "2"},
		{token.RParen, ")"},
		{token.Star, "*"},
		{token.Minus, "-"},
		{token.Ident, "x"},
		{token.Semicolon, ";"},

		{token.Ident, "absvalue"},
		{token.Assign, "="},
		{token.Intrinsic, "abs"},
		{token.LParen, "("},
		{token.Float, "1.5e3"},
		{token.RParen, ")"},
		{token.Slash, "/"},
		{token.Bang, "!"},
		{token.Ident, "y"},
		{token.Semicolon, ";"},

		{token.EOF, ""},
	}

	l := lexer.New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Kind != tt.kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (lexeme=%q, pos=%+v)",
				i, tt.kind, tok.Kind, tok.Lexeme, tok.Pos)
		}

		if tok.Lexeme != tt.lit {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.lit, tok.Lexeme)
		}
	}
}

func TestNumberForms(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"12", []string{"12"}},
		{"1.5", []string{"1.5"}},
		{"1.", []string{"1."}},
		{".25", []string{".25"}},
		{"2e10", []string{"2e10"}},
		{"2.5E-3", []string{"2.5E-3"}},
		{"2e", []string{"2", "e"}},
		{"2e+", []string{"2", "e", "+"}},
		{"1foo", []string{"1", "foo"}},
	}

	for _, tt := range tests {
		l := lexer.New(tt.input)
		var got []string
		for {
			tok := l.NextToken()
			if tok.Kind == token.EOF {
				break
			}
			got = append(got, tok.Lexeme)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%q: expected lexemes %q, got %q", tt.input, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("%q: expected lexemes %q, got %q", tt.input, tt.want, got)
			}
		}
	}
}

func TestIntrinsicNamesAreReserved(t *testing.T) {
	for _, name := range token.IntrinsicNames() {
		tok := lexer.New(name).NextToken()
		if tok.Kind != token.Intrinsic {
			t.Errorf("%q: expected Intrinsic, got %s", name, tok.Kind)
		}
		tok = lexer.New(name + "x").NextToken()
		if tok.Kind != token.Ident {
			t.Errorf("%q: expected Ident, got %s", name+"x", tok.Kind)
		}
		tok = lexer.New(name + "_1").NextToken()
		if tok.Kind != token.Ident {
			t.Errorf("%q: expected Ident, got %s", name+"_1", tok.Kind)
		}
	}
}

func TestPositions(t *testing.T) {
	l := lexer.New("a =\n  10;")

	want := []token.Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 2, Line: 1, Column: 3},
		{Offset: 6, Line: 2, Column: 3},
		{Offset: 8, Line: 2, Column: 5},
		{Offset: 9, Line: 2, Column: 6},
	}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Pos != w {
			t.Fatalf("token %d (%s %q): expected pos %+v, got %+v", i, tok.Kind, tok.Lexeme, w, tok.Pos)
		}
	}
}

func TestNewRange(t *testing.T) {
	src := "junk\nx + 1; trailing"
	l := lexer.NewRange(src, 5, 11)

	if start := l.Start(); start.Line != 2 || start.Column != 1 || start.Offset != 5 {
		t.Fatalf("expected start 2:1 offset 5, got %+v", start)
	}

	kinds := []token.Kind{token.Ident, token.Plus, token.Float, token.Semicolon, token.EOF}
	for i, k := range kinds {
		tok := l.NextToken()
		if tok.Kind != k {
			t.Fatalf("token %d: expected %s, got %s (%q)", i, k, tok.Kind, tok.Lexeme)
		}
	}
}

func TestNewRange_OutOfBounds(t *testing.T) {
	tests := []struct {
		src        string
		begin, end int
	}{
		{"ab", 5, 10},
		{"ab", 2, 2},
		{"ab", -3, -1},
		{"1;", 3, 3},
		{"x\ny", 9, 1},
	}
	for _, tt := range tests {
		l := lexer.NewRange(tt.src, tt.begin, tt.end)
		tok := l.NextToken()
		if tt.begin < 0 {
			// A negative range collapses to empty at the start.
			if tok.Kind != token.EOF || tok.Pos.Offset != 0 {
				t.Errorf("%q [%d:%d]: expected EOF at offset 0, got %s at %+v", tt.src, tt.begin, tt.end, tok.Kind, tok.Pos)
			}
			continue
		}
		if tok.Kind != token.EOF {
			t.Errorf("%q [%d:%d]: expected EOF, got %s", tt.src, tt.begin, tt.end, tok.Kind)
		}
		if n := len([]rune(tt.src)); tok.Pos.Offset != n {
			t.Errorf("%q [%d:%d]: expected EOF at offset %d, got %d", tt.src, tt.begin, tt.end, n, tok.Pos.Offset)
		}
	}
}

func TestIllegalCharacters(t *testing.T) {
	for _, input := range []string{"#", "%", "x\x00", "é"} {
		l := lexer.New(input)
		found := false
		for {
			tok := l.NextToken()
			if tok.Kind == token.Illegal {
				found = true
				break
			}
			if tok.Kind == token.EOF {
				break
			}
		}
		if !found {
			t.Errorf("%q: expected an Illegal token", input)
		}
	}
}
