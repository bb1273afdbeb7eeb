package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"tally/internal/ast"
	"tally/internal/config"
	"tally/internal/engine"
	"tally/internal/ir"
	"tally/internal/lsp"
	"tally/internal/modules"
	"tally/internal/parser"
	"tally/internal/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("tally.cli")

var (
	verbosity = flag.Int("v", -1, "log verbosity (overrides [log] verbosity)")
	configDir = flag.String("C", ".", "directory to search upwards for tally.toml")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "run":
		err = cmdRun(args)
	case "build":
		err = cmdBuild(args)
	case "eval":
		err = cmdEval(args)
	case "disasm":
		err = cmdDisasm(args)
	case "ast":
		err = cmdAST(args)
	case "fmt":
		err = cmdFmt(args)
	case "repl":
		err = cmdRepl(args)
	case "lsp":
		err = cmdLSP(args)
	case "const":
		err = cmdConst(args)
	case "help", "-h", "--help":
		usage()
	case "version", "--version":
		fmt.Println("tally", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Tally expression language CLI

Usage:
  tally [-v N] [-C dir] <command> [arguments]

Commands:
  run     <file.tly|file.tlc|dir> [-D name=value]... [-locals]
          Compile (or load) and execute; print each expression value
  build   <file.tly|dir> [-o out.tlc]
          Compile source into a .tlc file
  eval    [-D name=value]... [--] '<source>'
          Evaluate source given on the command line; words after --
          are always source
  disasm  <file.tly|file.tlc|dir>
          Print the instruction listing and symbol tables
  ast     <file.tly>
          Print the syntax tree
  fmt     <file.tly> [-w]
          Print (or rewrite) the file in canonical form
  repl    Interactive session; names persist between lines
  lsp     Language server on stdio
  const   set <name> <value> | list | rm <name>
          Manage constants in the configured store
  version Print the version

Configuration is read from tally.toml in the -C directory or a parent.`)
}

// setup loads tally.toml, configures logging and builds the engine.
func setup() (*config.Config, *engine.Engine, error) {
	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		return nil, nil, err
	}

	v := cfg.Log.Verbosity
	if *verbosity >= 0 {
		v = *verbosity
	}
	var path *string
	if f := cfg.LogFile(); f != "" {
		path = &f
	}
	commonlog.Configure(v, path)
	if cfg.Dir != "" {
		log.Debugf("using %s", filepath.Join(cfg.Dir, config.FileName))
	}

	e, err := engine.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, e, nil
}

// defines collects repeated -D name=value flags.
type defines map[string]float64

func (d defines) String() string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (d defines) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("bad value for %s: %w", name, err)
	}
	d[name] = f
	return nil
}

// parseInterspersed parses flags that may follow positional arguments, as
// in "tally run prog.tly -D x=1". Words that are not flags of fs, such as
// "-1;" in "tally eval -1;", are positional. Everything after "--" is too.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for len(args) > 0 {
		if args[0] == "--" {
			return append(positional, args[1:]...), nil
		}
		n := flagArgs(fs, args[0])
		if n == 0 {
			positional = append(positional, args[0])
			args = args[1:]
			continue
		}
		if n > len(args) {
			n = len(args)
		}
		if err := fs.Parse(args[:n]); err != nil {
			return nil, err
		}
		args = args[n:]
	}
	return positional, nil
}

// flagArgs returns how many arguments the flag spelled by arg consumes, or 0
// if arg does not name a flag of fs.
func flagArgs(fs *flag.FlagSet, arg string) int {
	if len(arg) < 2 || arg[0] != '-' {
		return 0
	}
	name, _, inline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if name == "h" || name == "help" {
		return 1
	}
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	if inline {
		return 1
	}
	if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
		return 1
	}
	return 2
}

// -------------- RUN --------------

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defs := defines{}
	var showLocals bool
	fs.Var(defs, "D", "bind an extern: name=value (repeatable)")
	fs.BoolVar(&showLocals, "locals", false, "print the final local variables")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("run: missing input file")
	}

	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	e.Env().SetAll(defs)

	bc, err := loadUnit(e, pos[0])
	if err != nil {
		return err
	}
	res, err := e.Execute(bc)
	if err != nil {
		return err
	}
	printResult(os.Stdout, res, showLocals)
	return nil
}

// loadUnit reads a .tlc file, or loads and compiles sources.
func loadUnit(e *engine.Engine, input string) (*ir.ByteCode, error) {
	if filepath.Ext(input) == ".tlc" {
		bc, err := ir.ReadByteCodeFromFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read bytecode: %w", err)
		}
		return bc, nil
	}

	world, errs := modules.Load(input)
	if len(errs) > 0 {
		for _, err := range errs {
			reportError(err, "")
		}
		return nil, fmt.Errorf("loading failed with %d errors", len(errs))
	}
	return e.CompileWorld(world)
}

func printResult(w io.Writer, res *vm.Result, showLocals bool) {
	for _, v := range res.Values {
		fmt.Fprintln(w, formatFloat(v))
	}
	if !showLocals {
		return
	}
	for slot, name := range res.Names() {
		fmt.Fprintf(w, "%s = %s\n", name, formatFloat(res.Locals[slot]))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// reportError prints err; for parse errors with known source it prints the
// offending line with a caret.
func reportError(err error, src string) {
	var perr *parser.Error
	if src != "" && errors.As(err, &perr) {
		parser.NewReporter(os.Stderr, src).HandleError(perr.Expected, perr.Pos, perr.Start)
		return
	}
	if errors.As(err, &perr) {
		// Loader errors carry the file name; re-read it for the caret.
		if file, _, ok := strings.Cut(err.Error(), ": "); ok {
			if content, rerr := os.ReadFile(file); rerr == nil {
				fmt.Fprintf(os.Stderr, "%s:\n", file)
				parser.NewReporter(os.Stderr, string(content)).HandleError(perr.Expected, perr.Pos, perr.Start)
				return
			}
		}
	}
	fmt.Fprintln(os.Stderr, err)
}

// -------------- BUILD --------------

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var out string
	fs.StringVar(&out, "o", "", "output file (default: <input>.tlc)")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("build: missing input")
	}
	input := pos[0]
	if filepath.Ext(input) == ".tlc" {
		return fmt.Errorf("build: input must be .tly source or a directory")
	}

	if out == "" {
		base := strings.TrimSuffix(filepath.Clean(input), modules.Ext)
		out = base + ".tlc"
	}

	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	bc, err := loadUnit(e, input)
	if err != nil {
		return err
	}
	if err := ir.WriteByteCodeToFile(out, bc); err != nil {
		return fmt.Errorf("failed to write bytecode: %w", err)
	}
	log.Infof("wrote %s", out)
	return nil
}

// -------------- EVAL --------------

func cmdEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defs := defines{}
	var showLocals bool
	fs.Var(defs, "D", "bind an extern: name=value (repeatable)")
	fs.BoolVar(&showLocals, "locals", false, "print the final local variables")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("eval: missing source")
	}
	src := strings.Join(pos, " ")

	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	e.Env().SetAll(defs)

	res, err := e.Eval(src)
	if err != nil {
		reportError(err, src)
		return fmt.Errorf("eval failed")
	}
	printResult(os.Stdout, res, showLocals)
	return nil
}

// -------------- DISASM / AST / FMT --------------

func cmdDisasm(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("disasm: missing input")
	}
	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	bc, err := loadUnit(e, args[0])
	if err != nil {
		return err
	}
	return ir.Disassemble(os.Stdout, bc)
}

func parseFile(path string) (*ast.StatementList, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, err := parser.Parse(string(content))
	if err != nil {
		reportError(err, string(content))
		return nil, fmt.Errorf("%s: parse failed", path)
	}
	return list, nil
}

func cmdAST(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("ast: missing input file")
	}
	list, err := parseFile(args[0])
	if err != nil {
		return err
	}
	fmt.Print(ast.Dump(list))
	return nil
}

func cmdFmt(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	write := fs.Bool("w", false, "write result to the file instead of stdout")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("fmt: missing input file")
	}
	for _, path := range pos {
		list, err := parseFile(path)
		if err != nil {
			return err
		}
		out := ast.Format(list)
		if !*write {
			fmt.Print(out)
			continue
		}
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			return err
		}
	}
	return nil
}

// -------------- LSP --------------

func cmdLSP(_ []string) error {
	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	return lsp.NewServer(e.Env()).Run()
}
