package ir

import "fmt"

// OpCode is an opcode for the stack machine.
type OpCode byte

const (
	OpNeg   OpCode = iota // negate the top stack entry
	OpAdd                 // add top two stack entries
	OpSub                 // subtract top from the entry below it
	OpMul                 // multiply top two stack entries
	OpDiv                 // divide the entry below the top by the top
	OpAbs                 // absolute value of the top stack entry
	OpPow                 // raise stack[-2] to the power of the top
	OpNot                 // logical not of the top: 1 if zero, else 0
	OpFlt                 // push Instruction.Float
	OpLoad                // push local[Slot]
	OpStore               // pop into local[Slot]
	OpLoadC               // push extern[Slot] from the resolver

	numOpCodes
)

// OperandKind tells which field of an Instruction an opcode reads.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandFloat
	OperandSlot
)

func (op OpCode) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpAbs:
		return "abs"
	case OpPow:
		return "pow"
	case OpNot:
		return "not"
	case OpFlt:
		return "flt"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpLoadC:
		return "loadc"
	default:
		return fmt.Sprintf("op(%d)", byte(op))
	}
}

// Valid reports whether op is a known opcode.
func (op OpCode) Valid() bool {
	return op < numOpCodes
}

// Operand returns the operand the opcode carries.
func (op OpCode) Operand() OperandKind {
	switch op {
	case OpFlt:
		return OperandFloat
	case OpLoad, OpStore, OpLoadC:
		return OperandSlot
	default:
		return OperandNone
	}
}

// Pops is the number of stack entries the opcode consumes.
func (op OpCode) Pops() int {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		return 2
	case OpNeg, OpAbs, OpNot, OpStore:
		return 1
	default:
		return 0
	}
}

// Pushes is the number of stack entries the opcode produces.
func (op OpCode) Pushes() int {
	if op == OpStore {
		return 0
	}
	return 1
}

// Instruction is one bytecode instruction. Float is meaningful only for
// OpFlt and Slot only for OpLoad, OpStore and OpLoadC.
type Instruction struct {
	Op    OpCode
	Float float64
	Slot  int
}

func (i Instruction) String() string {
	switch i.Op.Operand() {
	case OperandFloat:
		return fmt.Sprintf("%s %g", i.Op, i.Float)
	case OperandSlot:
		return fmt.Sprintf("%s %d", i.Op, i.Slot)
	default:
		return i.Op.String()
	}
}

// SymbolTable maps names to dense, zero-based slots in first-add order.
type SymbolTable struct {
	names []string
	index map[string]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Add returns the slot for name, allocating the next one if needed.
func (t *SymbolTable) Add(name string) int {
	if slot, ok := t.index[name]; ok {
		return slot
	}
	slot := len(t.names)
	t.names = append(t.names, name)
	t.index[name] = slot
	return slot
}

func (t *SymbolTable) Lookup(name string) (int, bool) {
	slot, ok := t.index[name]
	return slot, ok
}

// Name returns the name bound to slot, or "" if out of range.
func (t *SymbolTable) Name(slot int) string {
	if slot < 0 || slot >= len(t.names) {
		return ""
	}
	return t.names[slot]
}

func (t *SymbolTable) Len() int {
	return len(t.names)
}

// Names returns the names in slot order.
func (t *SymbolTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Map returns a name -> slot copy of the table.
func (t *SymbolTable) Map() map[string]int {
	out := make(map[string]int, len(t.index))
	for k, v := range t.index {
		out[k] = v
	}
	return out
}

func (t *SymbolTable) clear() {
	t.names = t.names[:0]
	t.index = make(map[string]int)
}

// ByteCode is one compiled unit: the instruction sequence plus the local
// and extern symbol tables. It is mutated only while compiling; after that
// it may be shared read-only between concurrent executions.
type ByteCode struct {
	code    []Instruction
	locals  *SymbolTable
	externs *SymbolTable
	results int // values left on the stack by expression statements
}

func New() *ByteCode {
	return &ByteCode{
		locals:  NewSymbolTable(),
		externs: NewSymbolTable(),
	}
}

// Clear empties the unit, including both symbol tables.
func (bc *ByteCode) Clear() {
	bc.code = bc.code[:0]
	bc.locals.clear()
	bc.externs.clear()
	bc.results = 0
}

// Push appends an instruction and returns its index.
func (bc *ByteCode) Push(inst Instruction) int {
	bc.code = append(bc.code, inst)
	return len(bc.code) - 1
}

// Emit appends an operand-less instruction.
func (bc *ByteCode) Emit(op OpCode) int {
	return bc.Push(Instruction{Op: op})
}

// EmitFloat appends OpFlt with its immediate.
func (bc *ByteCode) EmitFloat(v float64) int {
	return bc.Push(Instruction{Op: OpFlt, Float: v})
}

// EmitSlot appends a slot-addressed instruction.
func (bc *ByteCode) EmitSlot(op OpCode, slot int) int {
	return bc.Push(Instruction{Op: op, Slot: slot})
}

func (bc *ByteCode) AddLocalVariable(name string) int {
	return bc.locals.Add(name)
}

func (bc *ByteCode) FindLocalVariable(name string) (int, bool) {
	return bc.locals.Lookup(name)
}

func (bc *ByteCode) AddExternalRef(name string) int {
	return bc.externs.Add(name)
}

func (bc *ByteCode) FindExternalRef(name string) (int, bool) {
	return bc.externs.Lookup(name)
}

// Instructions returns the instruction sequence. Callers must not modify it.
func (bc *ByteCode) Instructions() []Instruction {
	return bc.code
}

func (bc *ByteCode) Locals() *SymbolTable {
	return bc.locals
}

func (bc *ByteCode) Externs() *SymbolTable {
	return bc.externs
}

// Results is the number of values the unit leaves on the stack, one per
// expression statement, in statement order.
func (bc *ByteCode) Results() int {
	return bc.results
}

// Equal reports whether two units have the same code and symbol tables.
func (bc *ByteCode) Equal(other *ByteCode) bool {
	if bc.results != other.results || len(bc.code) != len(other.code) {
		return false
	}
	for i := range bc.code {
		if bc.code[i] != other.code[i] {
			return false
		}
	}
	return equalNames(bc.locals.names, other.locals.names) &&
		equalNames(bc.externs.names, other.externs.names)
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
