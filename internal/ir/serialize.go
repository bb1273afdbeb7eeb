package ir

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

var magicV1 = [4]byte{'T', 'L', 'C', '1'}

// Limits applied while reading, so a corrupt header cannot force a huge
// allocation.
const (
	maxNameLen      = 0xFFFF
	maxSymbols      = 1 << 20
	maxInstructions = 1 << 24
)

func WriteByteCodeToFile(filename string, bc *ByteCode) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteByteCode(f, bc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadByteCodeFromFile(filename string) (*ByteCode, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadByteCode(bufio.NewReader(f))
}

// WriteByteCode writes bc in the TLC1 binary format:
//
//	magic "TLC1"
//	u32 results
//	u32 nlocals  { u16 len, bytes }
//	u32 nexterns { u16 len, bytes }
//	u32 ninstr   { u8 op, operand }
//
// The operand is present only when the opcode carries one: f64 bits for
// flt, u32 slot for load/store/loadc.
func WriteByteCode(w io.Writer, bc *ByteCode) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magicV1[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(bc.results)); err != nil {
		return err
	}
	if err := writeNames(bw, bc.locals.names); err != nil {
		return err
	}
	if err := writeNames(bw, bc.externs.names); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(bc.code))); err != nil {
		return err
	}
	for _, inst := range bc.code {
		if err := bw.WriteByte(byte(inst.Op)); err != nil {
			return err
		}
		switch inst.Op.Operand() {
		case OperandFloat:
			if err := binary.Write(bw, binary.LittleEndian, inst.Float); err != nil {
				return err
			}
		case OperandSlot:
			if inst.Slot < 0 {
				return fmt.Errorf("negative slot %d", inst.Slot)
			}
			if err := binary.Write(bw, binary.LittleEndian, uint32(inst.Slot)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeNames(w io.Writer, names []string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		b := []byte(name)
		if len(b) > maxNameLen {
			return fmt.Errorf("symbol name too long: %s", name)
		}
		// name len (uint16) + name bytes
		if err := binary.Write(w, binary.LittleEndian, uint16(len(b))); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// ReadByteCode reads a unit written by WriteByteCode and validates it.
func ReadByteCode(r io.Reader) (*ByteCode, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr != magicV1 {
		return nil, fmt.Errorf("invalid magic header: %q", string(hdr[:]))
	}

	bc := New()

	var results uint32
	if err := binary.Read(r, binary.LittleEndian, &results); err != nil {
		return nil, err
	}
	bc.results = int(results)

	if err := readNames(r, bc.locals); err != nil {
		return nil, fmt.Errorf("locals: %w", err)
	}
	if err := readNames(r, bc.externs); err != nil {
		return nil, fmt.Errorf("externs: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxInstructions {
		return nil, fmt.Errorf("too many instructions: %d", n)
	}
	bc.code = make([]Instruction, 0, n)
	for i := uint32(0); i < n; i++ {
		var op [1]byte
		if _, err := io.ReadFull(r, op[:]); err != nil {
			return nil, err
		}
		inst := Instruction{Op: OpCode(op[0])}
		if !inst.Op.Valid() {
			return nil, fmt.Errorf("unknown opcode %d at pc %d", op[0], i)
		}
		switch inst.Op.Operand() {
		case OperandFloat:
			if err := binary.Read(r, binary.LittleEndian, &inst.Float); err != nil {
				return nil, err
			}
		case OperandSlot:
			var slot uint32
			if err := binary.Read(r, binary.LittleEndian, &slot); err != nil {
				return nil, err
			}
			inst.Slot = int(slot)
		}
		bc.code = append(bc.code, inst)
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}
	return bc, nil
}

func readNames(r io.Reader, t *SymbolTable) error {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	if n > maxSymbols {
		return fmt.Errorf("too many symbols: %d", n)
	}
	for i := uint32(0); i < n; i++ {
		var l uint16
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return err
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		name := string(buf)
		if _, dup := t.Lookup(name); dup {
			return fmt.Errorf("duplicate symbol %q", name)
		}
		t.Add(name)
	}
	return nil
}
