package ir_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"tally/internal/ir"
)

const sample = "a = x + 1.5; b = pow(a, -2); b * y; !b; a;"

func TestByteCodeBinaryRoundTrip(t *testing.T) {
	bc := compile(t, sample)

	var buf bytes.Buffer
	if err := ir.WriteByteCode(&buf, bc); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("TLC1")) {
		t.Fatalf("expected TLC1 header, got %q", buf.Bytes()[:4])
	}
	got, err := ir.ReadByteCode(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got.Equal(bc) {
		t.Fatalf("expected round-tripped unit to equal original")
	}
}

func TestByteCodeFileRoundTrip(t *testing.T) {
	bc := compile(t, sample)
	path := filepath.Join(t.TempDir(), "sample.tlc")
	if err := ir.WriteByteCodeToFile(path, bc); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ir.ReadByteCodeFromFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !got.Equal(bc) {
		t.Fatalf("expected file round trip to preserve the unit")
	}
}

func TestReadByteCodeRejectsCorruptInput(t *testing.T) {
	if _, err := ir.ReadByteCode(bytes.NewReader([]byte("AVC2...."))); err == nil {
		t.Fatalf("expected bad magic to fail")
	}

	var buf bytes.Buffer
	if err := ir.WriteByteCode(&buf, compile(t, sample)); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := buf.Bytes()
	if _, err := ir.ReadByteCode(bytes.NewReader(data[:len(data)-3])); err == nil {
		t.Fatalf("expected truncated input to fail")
	}
}

func TestWireRoundTrip(t *testing.T) {
	bc := compile(t, sample)
	data, err := ir.MarshalByteCode(bc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := ir.MarshalByteCode(compile(t, sample))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("expected deterministic encoding")
	}
	got, err := ir.UnmarshalByteCode(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(bc) {
		t.Fatalf("expected decoded unit to equal original")
	}
}

func TestUnmarshalByteCodeValidates(t *testing.T) {
	bc := ir.New()
	bc.EmitSlot(ir.OpLoad, 4)
	data, err := ir.MarshalByteCode(bc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := ir.UnmarshalByteCode(data); err == nil {
		t.Fatalf("expected out-of-range slot to be rejected")
	}
	if _, err := ir.UnmarshalByteCode([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected garbage to be rejected")
	}
}
