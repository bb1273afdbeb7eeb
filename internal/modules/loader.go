package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tally/internal/ast"
	"tally/internal/ir"
	"tally/internal/parser"
)

// Ext is the source file extension.
const Ext = ".tly"

// SourceFile is one parsed source file.
type SourceFile struct {
	Path   string
	Source string
	List   *ast.StatementList
}

// World is the set of source files that make up one program, in link order.
type World struct {
	Root  string
	Files []*SourceFile
}

// Load parses a single .tly file, or every .tly file directly inside a
// directory in lexical order. All files are parsed and every parse error is
// reported; World is nil if any file failed.
func Load(path string) (*World, []error) {
	files, err := SourceFiles(path)
	if err != nil {
		return nil, []error{err}
	}

	w := &World{Root: path}
	var errs []error
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot read file %s: %w", file, err))
			continue
		}
		list, err := parser.Parse(string(content))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		w.Files = append(w.Files, &SourceFile{
			Path:   file,
			Source: string(content),
			List:   list,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return w, nil
}

// SourceFiles lists the files Load would read for path.
func SourceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), Ext) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", Ext, path)
	}
	sort.Strings(files)
	return files, nil
}

// Link compiles every file of w into one unit sharing a single slot space:
// a name assigned in an earlier file is a local in the later ones.
func (w *World) Link() *ir.ByteCode {
	lists := make([]*ast.StatementList, len(w.Files))
	for i, f := range w.Files {
		lists[i] = f.List
	}
	return Link(lists...)
}

// Link compiles lists, in order, into one unit.
func Link(lists ...*ast.StatementList) *ir.ByteCode {
	bc := ir.New()
	for _, list := range lists {
		ir.CompileInto(list, bc)
	}
	return bc
}

// Source returns the concatenated sources of w, in link order. It is the
// text the unit cache keys on.
func (w *World) Source() string {
	var sb strings.Builder
	for _, f := range w.Files {
		sb.WriteString(f.Source)
		if !strings.HasSuffix(f.Source, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
