package lsp

import (
	"errors"
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"tally/internal/ast"
	"tally/internal/parser"
	"tally/internal/resolver"
	"tally/internal/runtime"
	"tally/internal/token"
)

// Positions: token.Position is 1-based line and column counted in runes;
// LSP positions are 0-based. Sources are expected to be ASCII, where runes
// and UTF-16 units agree.

func toLSP(p token.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func nameRange(p token.Position, name string) protocol.Range {
	start := toLSP(p)
	end := start
	end.Character += protocol.UInteger(len([]rune(name)))
	return protocol.Range{Start: start, End: end}
}

// Diagnostics parses text and returns at most one diagnostic, covering the
// token the parser rejected.
func Diagnostics(text string) []protocol.Diagnostic {
	_, err := parser.Parse(text)
	if err == nil {
		return []protocol.Diagnostic{}
	}
	var perr *parser.Error
	if !errors.As(err, &perr) {
		return []protocol.Diagnostic{}
	}

	width := len([]rune(perr.Found.Lexeme))
	if width == 0 {
		width = 1
	}
	start := toLSP(perr.Pos)
	end := start
	end.Character += protocol.UInteger(width)

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  "expected " + perr.Expected,
	}}
}

func references(text string) []resolver.Reference {
	list, err := parser.Parse(text)
	if err != nil {
		return nil
	}
	return resolver.Resolve(list)
}

func referenceAt(text string, pos protocol.Position) (resolver.Reference, []resolver.Reference, bool) {
	refs := references(text)
	ref, ok := resolver.At(refs, int(pos.Line)+1, int(pos.Character)+1)
	return ref, refs, ok
}

// Complete returns intrinsics, names used in text and env names matching
// the identifier prefix before pos.
func Complete(text string, pos protocol.Position, envNames []string) []protocol.CompletionItem {
	prefix := extractPrefix(text, pos)
	var items []protocol.CompletionItem

	for _, name := range token.IntrinsicNames() {
		if !hasPrefixFold(name, prefix) {
			continue
		}
		in, _ := ast.LookupIntrinsic(name)
		kind := protocol.CompletionItemKindFunction
		detail := fmt.Sprintf("intrinsic, %d argument(s)", in.Arity())
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   &kind,
			Detail: &detail,
		})
	}

	var locals, externs []string
	for _, ref := range references(text) {
		if ref.Kind == resolver.Local {
			locals = append(locals, ref.Name)
		} else {
			externs = append(externs, ref.Name)
		}
	}
	seen := make(map[string]bool)
	add := func(names []string, detail string, kind protocol.CompletionItemKind) {
		for _, name := range sortedUnique(names) {
			if seen[name] || !hasPrefixFold(name, prefix) {
				continue
			}
			seen[name] = true
			d := detail
			k := kind
			items = append(items, protocol.CompletionItem{
				Label:  name,
				Kind:   &k,
				Detail: &d,
			})
		}
	}
	add(locals, "local", protocol.CompletionItemKindVariable)
	add(externs, "extern", protocol.CompletionItemKindConstant)
	add(append([]string(nil), envNames...), "constant", protocol.CompletionItemKindConstant)

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// Hover describes the identifier under pos: its class, slot and, for
// externs, the value env currently binds.
func Hover(text string, pos protocol.Position, env *runtime.Env) *protocol.Hover {
	ref, _, ok := referenceAt(text, pos)
	if !ok {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** %s slot %d", ref.Name, ref.Kind, ref.Slot)
	if ref.Kind == resolver.Extern {
		sb.WriteString(describeValue(env, ref.Name))
	}
	if ref.Write {
		sb.WriteString("\n\nassignment")
	}

	r := nameRange(ref.Pos, ref.Name)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: sb.String(),
		},
		Range: &r,
	}
}

// Definition returns the first assignment of the local under pos.
func Definition(text string, pos protocol.Position) (protocol.Range, bool) {
	ref, refs, ok := referenceAt(text, pos)
	if !ok || ref.Kind != resolver.Local {
		return protocol.Range{}, false
	}
	for _, r := range refs {
		if r.Name == ref.Name && r.Kind == resolver.Local && r.Write {
			return nameRange(r.Pos, r.Name), true
		}
	}
	return protocol.Range{}, false
}

// References returns every occurrence of the name under pos with the same
// class. Assignments count as declarations.
func References(text string, pos protocol.Position, includeDeclaration bool) []protocol.Range {
	ref, refs, ok := referenceAt(text, pos)
	if !ok {
		return nil
	}
	var out []protocol.Range
	for _, r := range refs {
		if r.Name != ref.Name || r.Kind != ref.Kind {
			continue
		}
		if r.Write && !includeDeclaration {
			continue
		}
		out = append(out, nameRange(r.Pos, r.Name))
	}
	return out
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
