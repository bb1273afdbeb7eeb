package ir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Compact CBOR form of a unit, used for the compiled-unit cache. Integer
// keys keep the encoding small; canonical mode makes equal units encode to
// equal bytes.

type wireUnit struct {
	Version uint8       `cbor:"1,keyasint"`
	Results int         `cbor:"2,keyasint,omitempty"`
	Locals  []string    `cbor:"3,keyasint,omitempty"`
	Externs []string    `cbor:"4,keyasint,omitempty"`
	Code    []wireInstr `cbor:"5,keyasint"`
}

type wireInstr struct {
	Op    uint8   `cbor:"1,keyasint"`
	Float float64 `cbor:"2,keyasint,omitempty"`
	Slot  int     `cbor:"3,keyasint,omitempty"`
}

const wireVersion = 1

var wireEncMode cbor.EncMode

func init() {
	var err error
	wireEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: cbor enc mode: %v", err))
	}
}

// MarshalByteCode encodes bc as CBOR.
func MarshalByteCode(bc *ByteCode) ([]byte, error) {
	u := wireUnit{
		Version: wireVersion,
		Results: bc.results,
		Locals:  bc.locals.Names(),
		Externs: bc.externs.Names(),
		Code:    make([]wireInstr, len(bc.code)),
	}
	for i, inst := range bc.code {
		u.Code[i] = wireInstr{Op: uint8(inst.Op), Float: inst.Float, Slot: inst.Slot}
	}
	return wireEncMode.Marshal(u)
}

// UnmarshalByteCode decodes and validates a unit produced by MarshalByteCode.
func UnmarshalByteCode(data []byte) (*ByteCode, error) {
	var u wireUnit
	if err := cbor.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}
	if u.Version != wireVersion {
		return nil, fmt.Errorf("decode bytecode: unsupported version %d", u.Version)
	}
	bc := New()
	bc.results = u.Results
	for _, name := range u.Locals {
		if _, dup := bc.locals.Lookup(name); dup {
			return nil, fmt.Errorf("decode bytecode: duplicate local %q", name)
		}
		bc.locals.Add(name)
	}
	for _, name := range u.Externs {
		if _, dup := bc.externs.Lookup(name); dup {
			return nil, fmt.Errorf("decode bytecode: duplicate extern %q", name)
		}
		bc.externs.Add(name)
	}
	bc.code = make([]Instruction, len(u.Code))
	for i, w := range u.Code {
		bc.code[i] = Instruction{Op: OpCode(w.Op), Float: w.Float, Slot: w.Slot}
	}
	if err := Validate(bc); err != nil {
		return nil, err
	}
	return bc, nil
}
