package resolver

import (
	"tally/internal/ast"
	"tally/internal/token"
)

// Kind classifies an identifier occurrence.
type Kind int

const (
	Local Kind = iota
	Extern
)

func (k Kind) String() string {
	if k == Extern {
		return "extern"
	}
	return "local"
}

// Reference is one identifier occurrence in a statement list.
type Reference struct {
	Name  string
	Pos   token.Position
	Kind  Kind
	Slot  int  // slot in the local or extern table, as the compiler assigns it
	Write bool // assignment target
}

// Resolver classifies identifier occurrences the way the compiler does:
// an assignment target is a local; a read is a local if the name has been
// assigned earlier in source order, otherwise an extern.
type Resolver struct {
	locals  map[string]int
	externs map[string]int
	refs    []Reference
}

// NewResolver creates a new resolver.
func NewResolver() *Resolver {
	return &Resolver{
		locals:  make(map[string]int),
		externs: make(map[string]int),
	}
}

// Resolve returns every identifier occurrence in list, in source order.
// Calling it again on the same Resolver continues the same slot space,
// mirroring ir.CompileInto.
func (r *Resolver) Resolve(list *ast.StatementList) []Reference {
	start := len(r.refs)
	for _, st := range list.Statements {
		r.statement(st)
	}
	return r.refs[start:]
}

// Resolve classifies the occurrences of a single statement list.
func Resolve(list *ast.StatementList) []Reference {
	return NewResolver().Resolve(list)
}

// Locals returns the local names in slot order.
func (r *Resolver) Locals() []string {
	return ordered(r.locals)
}

// Externs returns the extern names in slot order.
func (r *Resolver) Externs() []string {
	return ordered(r.externs)
}

func (r *Resolver) statement(st ast.Statement) {
	switch st := st.(type) {
	case *ast.Assignment:
		// The value is resolved before the target is allocated, so a
		// self-referencing first assignment reads an extern.
		r.expression(st.Value)
		r.refs = append(r.refs, Reference{
			Name:  st.Name,
			Pos:   st.NamePos,
			Kind:  Local,
			Slot:  slotFor(r.locals, st.Name),
			Write: true,
		})
	case *ast.Expression:
		r.expression(st)
	}
}

func (r *Resolver) expression(x *ast.Expression) {
	if x == nil {
		return
	}
	r.term(x.First)
	for _, op := range x.Rest {
		r.term(op.Right)
	}
}

func (r *Resolver) term(t ast.Term) {
	switch t := t.(type) {
	case *ast.IdentExpr:
		ref := Reference{Name: t.Name, Pos: t.NamePos}
		if slot, ok := r.locals[t.Name]; ok {
			ref.Kind, ref.Slot = Local, slot
		} else {
			ref.Kind, ref.Slot = Extern, slotFor(r.externs, t.Name)
		}
		r.refs = append(r.refs, ref)
	case *ast.UnaryExpr:
		r.term(t.X)
	case *ast.IntrinsicCall:
		for _, arg := range t.Args {
			r.expression(arg)
		}
	case *ast.Expression:
		r.expression(t)
	}
}

func slotFor(table map[string]int, name string) int {
	if slot, ok := table[name]; ok {
		return slot
	}
	slot := len(table)
	table[name] = slot
	return slot
}

func ordered(table map[string]int) []string {
	out := make([]string, len(table))
	for name, slot := range table {
		out[slot] = name
	}
	return out
}

// At returns the reference whose name spans the given line and column, if
// any. Columns are 1-based like token.Position.
func At(refs []Reference, line, column int) (Reference, bool) {
	for _, ref := range refs {
		if ref.Pos.Line != line {
			continue
		}
		if column >= ref.Pos.Column && column < ref.Pos.Column+len([]rune(ref.Name)) {
			return ref, true
		}
	}
	return Reference{}, false
}
