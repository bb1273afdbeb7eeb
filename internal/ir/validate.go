package ir

import "fmt"

// Validate checks that a unit is well formed: every opcode is known, every
// slot is in range for its table, the stack never underflows and the final
// depth equals Results. Units produced by Compile always pass; units read
// from disk or a cache are checked before execution.
func Validate(bc *ByteCode) error {
	if bc == nil {
		return fmt.Errorf("validate: nil bytecode")
	}
	if bc.results < 0 {
		return fmt.Errorf("validate: negative result count %d", bc.results)
	}
	depth := 0
	for pc, inst := range bc.code {
		if !inst.Op.Valid() {
			return fmt.Errorf("validate: pc %d: unknown opcode %d", pc, byte(inst.Op))
		}
		switch inst.Op {
		case OpLoad, OpStore:
			if inst.Slot < 0 || inst.Slot >= bc.locals.Len() {
				return fmt.Errorf("validate: pc %d: %s slot %d out of range (%d locals)", pc, inst.Op, inst.Slot, bc.locals.Len())
			}
		case OpLoadC:
			if inst.Slot < 0 || inst.Slot >= bc.externs.Len() {
				return fmt.Errorf("validate: pc %d: %s slot %d out of range (%d externs)", pc, inst.Op, inst.Slot, bc.externs.Len())
			}
		}
		if depth < inst.Op.Pops() {
			return fmt.Errorf("validate: pc %d: %s needs %d operands, stack has %d", pc, inst.Op, inst.Op.Pops(), depth)
		}
		depth += inst.Op.Pushes() - inst.Op.Pops()
	}
	if depth != bc.results {
		return fmt.Errorf("validate: final stack depth %d, want %d", depth, bc.results)
	}
	return nil
}

// MaxStack returns the deepest stack the unit reaches. It assumes the unit
// is valid.
func MaxStack(bc *ByteCode) int {
	depth, deepest := 0, 0
	for _, inst := range bc.code {
		depth += inst.Op.Pushes() - inst.Op.Pops()
		if depth > deepest {
			deepest = depth
		}
	}
	return deepest
}
