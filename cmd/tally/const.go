package main

import (
	"fmt"
	"sort"
	"strconv"
)

func cmdConst(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("const: expected set, list or rm")
	}

	_, e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.Store()
	if s == nil {
		return fmt.Errorf("const: no [store] configured in tally.toml")
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: tally const set <name> <value>")
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("const set: bad value %q: %w", args[2], err)
		}
		return e.SetConstant(args[1], v)

	case "list":
		consts, err := s.Constants()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(consts))
		for name := range consts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s = %s\n", name, formatFloat(consts[name]))
		}
		return nil

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: tally const rm <name>")
		}
		ok, err := s.DeleteConstant(args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("const rm: no constant %q", args[1])
		}
		return nil

	default:
		return fmt.Errorf("const: unknown subcommand %q", args[0])
	}
}
