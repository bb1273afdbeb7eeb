package vm

import (
	"fmt"
	"math"

	"tally/internal/ir"
)

// Resolver supplies extern values at execution time. The same unit can be
// run against different resolvers.
type Resolver interface {
	Resolve(name string, slot int) (float64, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string, slot int) (float64, error)

func (f ResolverFunc) Resolve(name string, slot int) (float64, error) {
	return f(name, slot)
}

// Machine executes one ByteCode unit. It owns its operand stack and local
// slots; the unit itself is only read, so many machines may share it.
//
// A Machine remembers how far it has run. When more code is appended to the
// unit (ir.CompileInto), the next Run executes only the new instructions
// with the locals left by earlier runs.
type Machine struct {
	bc     *ir.ByteCode
	pc     int
	stack  []float64
	locals []float64
	seen   int // results already drained by earlier runs
}

// New creates a machine for bc with all locals at 0.
func New(bc *ir.ByteCode) *Machine {
	return &Machine{
		bc:    bc,
		stack: make([]float64, 0, ir.MaxStack(bc)),
	}
}

// Reset rewinds the machine to the start of the unit and zeroes locals.
func (m *Machine) Reset() {
	m.pc = 0
	m.stack = m.stack[:0]
	m.locals = m.locals[:0]
	m.seen = 0
}

// Locals returns a copy of the local slots as of the last run.
func (m *Machine) Locals() []float64 {
	return append([]float64(nil), m.locals...)
}

// Execute runs bc from the start on a fresh machine.
func Execute(bc *ir.ByteCode, r Resolver) (*Result, error) {
	return New(bc).Run(r)
}

// Run executes the instructions not yet run. It returns the values left by
// expression statements, in order, and a snapshot of the locals.
//
// A resolver error stops the run; the rest of the pending code is skipped so
// the machine stays usable for code appended later. Broken units (stack
// underflow, bad slot, leftover stack) panic.
func (m *Machine) Run(r Resolver) (*Result, error) {
	code := m.bc.Instructions()
	if n := m.bc.Locals().Len(); len(m.locals) < n {
		m.locals = append(m.locals, make([]float64, n-len(m.locals))...)
	}

	for m.pc < len(code) {
		inst := code[m.pc]
		m.pc++

		switch inst.Op {
		case ir.OpFlt:
			m.push(inst.Float)

		case ir.OpLoad:
			m.push(m.locals[m.localSlot(inst)])

		case ir.OpStore:
			m.locals[m.localSlot(inst)] = m.pop()

		case ir.OpLoadC:
			v, err := m.resolve(r, inst.Slot)
			if err != nil {
				m.abort()
				return nil, err
			}
			m.push(v)

		case ir.OpNeg:
			m.push(-m.pop())

		case ir.OpAbs:
			m.push(math.Abs(m.pop()))

		case ir.OpNot:
			if m.pop() == 0 {
				m.push(1)
			} else {
				m.push(0)
			}

		case ir.OpAdd:
			b, a := m.pop(), m.pop()
			m.push(a + b)

		case ir.OpSub:
			b, a := m.pop(), m.pop()
			m.push(a - b)

		case ir.OpMul:
			b, a := m.pop(), m.pop()
			m.push(a * b)

		case ir.OpDiv:
			b, a := m.pop(), m.pop()
			m.push(a / b)

		case ir.OpPow:
			exp, base := m.pop(), m.pop()
			m.push(math.Pow(base, exp))

		default:
			panic(fmt.Sprintf("vm: pc %d: unknown opcode %s", m.pc-1, inst.Op))
		}
	}

	want := m.bc.Results() - m.seen
	if len(m.stack) != want {
		panic(fmt.Sprintf("vm: stack depth %d at end of run, want %d", len(m.stack), want))
	}
	res := &Result{
		Values: append([]float64(nil), m.stack...),
		Locals: append([]float64(nil), m.locals...),
		names:  m.bc.Locals().Names(),
	}
	m.stack = m.stack[:0]
	m.seen = m.bc.Results()
	return res, nil
}

func (m *Machine) resolve(r Resolver, slot int) (float64, error) {
	ext := m.bc.Externs()
	if slot < 0 || slot >= ext.Len() {
		panic(fmt.Sprintf("vm: pc %d: extern slot %d out of range", m.pc-1, slot))
	}
	name := ext.Name(slot)
	if r == nil {
		return 0, fmt.Errorf("extern %s: no resolver", name)
	}
	v, err := r.Resolve(name, slot)
	if err != nil {
		return 0, fmt.Errorf("extern %s: %w", name, err)
	}
	return v, nil
}

// abort drops the rest of the pending code after a failed run.
func (m *Machine) abort() {
	m.pc = len(m.bc.Instructions())
	m.stack = m.stack[:0]
	m.seen = m.bc.Results()
}

func (m *Machine) localSlot(inst ir.Instruction) int {
	if inst.Slot < 0 || inst.Slot >= len(m.locals) {
		panic(fmt.Sprintf("vm: pc %d: local slot %d out of range", m.pc-1, inst.Slot))
	}
	return inst.Slot
}

func (m *Machine) push(v float64) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() float64 {
	n := len(m.stack)
	if n == 0 {
		panic(fmt.Sprintf("vm: pc %d: stack underflow", m.pc-1))
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v
}
