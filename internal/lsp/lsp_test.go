package lsp

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"tally/internal/runtime"
)

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func TestDiagnostics_Valid(t *testing.T) {
	if d := Diagnostics("a = 1;\na * 2;\n"); len(d) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", d)
	}
}

func TestDiagnostics_Error(t *testing.T) {
	d := Diagnostics("a = 1;\nb = a 22;")
	if len(d) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(d))
	}
	r := d[0].Range
	if r.Start.Line != 1 || r.Start.Character != 6 || r.End.Character != 8 {
		t.Errorf("expected range 1:6-1:8, got %+v", r)
	}
	if d[0].Message != "expected ';'" {
		t.Errorf("unexpected message %q", d[0].Message)
	}
	if d[0].Severity == nil || *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("expected error severity")
	}
}

func TestDiagnostics_EndOfInput(t *testing.T) {
	d := Diagnostics("1 + 1")
	if len(d) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(d))
	}
	if r := d[0].Range; r.Start.Character != 5 || r.End.Character != 6 {
		t.Errorf("expected a one-character range at end of input, got %+v", r)
	}
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"ab", pos(0, 2), "ab"},
		{"x = po", pos(0, 6), "po"},
		{"first;\nsecond_1", pos(1, 8), "second_1"},
		{"hello", pos(0, 0), ""},
		{"single line", pos(5, 0), ""},
		{"a + (b", pos(0, 6), "b"},
	}
	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.pos); got != tt.want {
			t.Errorf("extractPrefix(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func labels(items []protocol.CompletionItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestComplete(t *testing.T) {
	text := "amount = price * 2;\nabsolute = a;\n"
	items := Complete(text, pos(1, 12), []string{"alpha", "beta"})
	got := strings.Join(labels(items), ",")
	// the document parses, so names used in it are offered
	for _, want := range []string{"abs", "add", "amount", "absolute", "alpha"} {
		if !strings.Contains(","+got+",", ","+want+",") {
			t.Errorf("expected %s in completions %s", want, got)
		}
	}
	if strings.Contains(got, "beta") || strings.Contains(got, "price") {
		t.Errorf("expected only a-prefixed names, got %s", got)
	}
}

func TestHover(t *testing.T) {
	env := runtime.DefaultEnv()
	env.Set("price", 9.5)
	text := "total = price * qty;\ntotal;"

	h := Hover(text, pos(0, 10), env)
	if h == nil {
		t.Fatalf("expected hover on price")
	}
	content := h.Contents.(protocol.MarkupContent).Value
	if !strings.Contains(content, "**price** extern slot 0 = 9.5") {
		t.Errorf("unexpected hover %q", content)
	}

	h = Hover(text, pos(0, 17), env)
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "(unbound)") {
		t.Errorf("expected qty to hover as unbound")
	}

	h = Hover(text, pos(1, 2), env)
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "**total** local slot 0") {
		t.Errorf("expected total to hover as local")
	}

	if Hover(text, pos(0, 6), env) != nil {
		t.Errorf("expected no hover on '='")
	}
}

func TestDefinitionAndReferences(t *testing.T) {
	text := "n = 1;\nn = n + 1;\nn * 2;"

	def, ok := Definition(text, pos(2, 0))
	if !ok {
		t.Fatalf("expected a definition")
	}
	if def.Start.Line != 0 || def.Start.Character != 0 || def.End.Character != 1 {
		t.Errorf("expected definition at 0:0-0:1, got %+v", def)
	}

	all := References(text, pos(2, 0), true)
	if len(all) != 4 {
		t.Errorf("expected 4 occurrences with declarations, got %d", len(all))
	}
	reads := References(text, pos(2, 0), false)
	if len(reads) != 2 {
		t.Errorf("expected 2 reads, got %d", len(reads))
	}

	if _, ok := Definition("x + 1;", pos(0, 0)); ok {
		t.Errorf("expected no definition for an extern")
	}
}
