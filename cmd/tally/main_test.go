package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"tally/internal/engine"
	"tally/internal/ir"
	"tally/internal/runtime"
)

func TestDefines(t *testing.T) {
	d := defines{}
	if err := d.Set("x=1.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := d.Set("y=-2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if d["x"] != 1.5 || d["y"] != -2 {
		t.Fatalf("unexpected defines %v", d)
	}
	for _, bad := range []string{"x", "=1", "x=abc"} {
		if err := d.Set(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	defs := defines{}
	locals := fs.Bool("locals", false, "")
	fs.Var(defs, "D", "")

	pos, err := parseInterspersed(fs, []string{"-D", "a=1", "prog.tly", "-locals", "-D", "b=2"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pos) != 1 || pos[0] != "prog.tly" {
		t.Fatalf("expected [prog.tly], got %v", pos)
	}
	if !*locals || defs["a"] != 1 || defs["b"] != 2 {
		t.Fatalf("expected flags after the file to be parsed, got locals=%v defs=%v", *locals, defs)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{3: "3", 0.5: "0.5", 1e21: "1e+21"}
	for in, want := range tests {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseInterspersed_DoubleDash(t *testing.T) {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	defs := defines{}
	fs.Var(defs, "D", "")

	pos, err := parseInterspersed(fs, []string{"-D", "x=2", "--", "-x", "*", "3;"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pos) != 3 || pos[0] != "-x" {
		t.Fatalf("expected source words after --, got %v", pos)
	}
}

func TestParseInterspersed_SignedSource(t *testing.T) {
	tests := []struct {
		args []string
		want []string
		x    float64
	}{
		{[]string{"-1;"}, []string{"-1;"}, 0},
		{[]string{"+x;"}, []string{"+x;"}, 0},
		{[]string{"-D", "x=2", "-x", "*", "3;"}, []string{"-x", "*", "3;"}, 2},
		{[]string{"-x;", "-D=x=4"}, []string{"-x;"}, 4},
	}
	for _, tt := range tests {
		fs := flag.NewFlagSet("eval", flag.ContinueOnError)
		defs := defines{}
		fs.Var(defs, "D", "")
		fs.Bool("locals", false, "")

		pos, err := parseInterspersed(fs, tt.args)
		if err != nil {
			t.Fatalf("%v: parse: %v", tt.args, err)
		}
		if len(pos) != len(tt.want) {
			t.Fatalf("%v: expected %v, got %v", tt.args, tt.want, pos)
		}
		for i := range pos {
			if pos[i] != tt.want[i] {
				t.Fatalf("%v: expected %v, got %v", tt.args, tt.want, pos)
			}
		}
		if defs["x"] != tt.x {
			t.Fatalf("%v: expected x=%v, got %v", tt.args, tt.x, defs["x"])
		}
	}

	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	fs.Var(defines{}, "D", "")
	if _, err := parseInterspersed(fs, []string{"1;", "-D"}); err == nil {
		t.Fatalf("expected an error for -D without a value")
	}
}

func TestLoadUnitAndPrint(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.tly")
	if err := os.WriteFile(src, []byte("x = 2;\nx * k;\npow(x, 3);\n"), 0644); err != nil {
		t.Fatal(err)
	}
	lib := filepath.Join(dir, "lib")
	if err := os.Mkdir(lib, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "a.tly"), []byte("x = 2;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "b.tly"), []byte("x * k;\npow(x, 3);\n"), 0644); err != nil {
		t.Fatal(err)
	}

	env := runtime.DefaultEnv()
	env.Set("k", 5)
	e := engine.New(env)
	defer e.Close()

	bc, err := loadUnit(e, src)
	if err != nil {
		t.Fatalf("load source: %v", err)
	}
	built := filepath.Join(dir, "prog.tlc")
	if err := ir.WriteByteCodeToFile(built, bc); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "10\n8\nx = 2\n"
	for _, input := range []string{src, built, lib} {
		bc, err := loadUnit(e, input)
		if err != nil {
			t.Fatalf("%s: load: %v", input, err)
		}
		res, err := e.Execute(bc)
		if err != nil {
			t.Fatalf("%s: execute: %v", input, err)
		}
		var buf bytes.Buffer
		printResult(&buf, res, true)
		if buf.String() != want {
			t.Errorf("%s: expected %q, got %q", input, want, buf.String())
		}
	}

	if _, err := loadUnit(e, filepath.Join(dir, "missing.tlc")); err == nil {
		t.Fatalf("expected an error for a missing .tlc file")
	}
}
