package ir

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of bc to w.
func Disassemble(w io.Writer, bc *ByteCode) error {
	if _, err := fmt.Fprintf(w, "; %d instructions, %d locals, %d externs, %d results\n",
		len(bc.code), bc.locals.Len(), bc.externs.Len(), bc.results); err != nil {
		return err
	}
	for slot, name := range bc.locals.names {
		if _, err := fmt.Fprintf(w, "; local  %d %s\n", slot, name); err != nil {
			return err
		}
	}
	for slot, name := range bc.externs.names {
		if _, err := fmt.Fprintf(w, "; extern %d %s\n", slot, name); err != nil {
			return err
		}
	}
	for pc, inst := range bc.code {
		line := fmt.Sprintf("%04d  %-6s", pc, inst.Op)
		switch inst.Op {
		case OpFlt:
			line += fmt.Sprintf(" %g", inst.Float)
		case OpLoad, OpStore:
			line += fmt.Sprintf(" %d (%s)", inst.Slot, bc.locals.Name(inst.Slot))
		case OpLoadC:
			line += fmt.Sprintf(" %d (%s)", inst.Slot, bc.externs.Name(inst.Slot))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
