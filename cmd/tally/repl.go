package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"tally/internal/engine"
	"tally/internal/ir"
	"tally/internal/parser"
)

const (
	historyFile = ".tally_history"
	promptMain  = "tally> "
	promptCont  = "...    "
)

func cmdRepl(_ []string) error {
	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Printf("tally %s. End statements with ';'. Type :help for commands.\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := e.NewSession()
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			return nil
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(code, ":") {
			if replCommand(e, session, code) {
				return nil
			}
			continue
		}

		res, err := session.Feed(code)
		if err != nil {
			reportError(err, code)
			continue
		}
		printResult(os.Stdout, res, false)
	}
}

// replCommand handles a ':' command. It reports whether to exit.
func replCommand(e *engine.Engine, session *engine.Session, code string) bool {
	fields := strings.Fields(code)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":locals":
		names := session.ByteCode().Locals().Names()
		if len(names) == 0 {
			fmt.Println("no locals")
		}
		bindings := session.Bindings()
		for _, name := range names {
			fmt.Printf("%s = %s\n", name, formatFloat(bindings[name]))
		}
	case ":env":
		for _, name := range e.Env().Names() {
			v, _ := e.Env().Get(name)
			fmt.Printf("%s = %s\n", name, formatFloat(v))
		}
	case ":set":
		d := defines{}
		if len(fields) != 2 || d.Set(fields[1]) != nil {
			fmt.Println("usage: :set name=value")
			break
		}
		for name, v := range d {
			e.Env().Set(name, v)
		}
	case ":disasm":
		if err := ir.Disassemble(os.Stdout, session.ByteCode()); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	case ":reset":
		session.Reset()
	case ":help":
		fmt.Println(`:locals          list local variables
:env             list extern bindings
:set name=value  bind an extern
:disasm          show the session's bytecode
:reset           forget all input
:quit            exit`)
	default:
		fmt.Println("unknown command. Type :help for commands.")
	}
	return false
}

func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		trimmed := strings.TrimSpace(src)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") {
			return src, true
		}
		_, perr := parser.Parse(src)
		if perr == nil {
			return src, true
		}
		if parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
