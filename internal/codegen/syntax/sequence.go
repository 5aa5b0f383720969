// Package syntax parses generator output into a position-addressable
// sequence of top-level declarations.
package syntax

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strconv"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
)

// Sequence is an arena of declaration slots. Positions are stable: blanking a
// slot replaces its content with Empty instead of shrinking the arena.
type Sequence struct {
	fset    *token.FileSet
	file    *ast.File
	slots   []Decl
	imports map[string]string
}

// Parse parses one generator output. Any syntax error is a ParseFailure.
func Parse(filename string, src []byte) (*Sequence, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, generror.ParseFailure(filename, err)
	}

	seq := &Sequence{
		fset:    fset,
		file:    file,
		slots:   make([]Decl, 0, len(file.Decls)),
		imports: make(map[string]string),
	}
	for _, d := range file.Decls {
		seq.slots = append(seq.slots, Wrap(d))
	}
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, generror.ParseFailure(filename, fmt.Errorf("import path %s: %w", imp.Path.Value, err))
		}
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		seq.imports[name] = p
	}
	return seq, nil
}

// Len returns the number of slots, blanked ones included.
func (s *Sequence) Len() int { return len(s.slots) }

// At returns the declaration in slot i.
func (s *Sequence) At(i int) Decl { return s.slots[i] }

// Decls returns a copy of all slots in order.
func (s *Sequence) Decls() []Decl {
	return append([]Decl(nil), s.slots...)
}

// Package returns the package name of the parsed file.
func (s *Sequence) Package() string { return s.file.Name.Name }

// Fset returns the file set positions of the declarations refer to.
func (s *Sequence) Fset() *token.FileSet { return s.fset }

// File returns the parsed file. Callers must treat it as read-only; slot
// contents are only reachable through At and Decls.
func (s *Sequence) File() *ast.File { return s.file }

// Comments returns every comment group of the parsed file.
func (s *Sequence) Comments() []*ast.CommentGroup { return s.file.Comments }

// ImportPath resolves the local name of an import to its path.
func (s *Sequence) ImportPath(name string) (string, bool) {
	p, ok := s.imports[name]
	return p, ok
}

// DeclaredNames returns every package-scope identifier declared by a
// non-empty slot, in slot order.
func (s *Sequence) DeclaredNames() []string {
	var names []string
	for _, d := range s.slots {
		names = append(names, d.Names()...)
	}
	return names
}

// Blank returns a copy of s whose slots at positions hold Empty. The receiver
// is left untouched; positions must be valid and distinct.
func (s *Sequence) Blank(positions []int) (*Sequence, error) {
	out := &Sequence{
		fset:    s.fset,
		file:    s.file,
		slots:   s.Decls(),
		imports: s.imports,
	}
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(out.slots) {
			return nil, fmt.Errorf("blank position %d out of range [0,%d)", p, len(out.slots))
		}
		if seen[p] {
			return nil, fmt.Errorf("blank position %d given twice", p)
		}
		seen[p] = true
		out.slots[p] = Empty
	}
	return out, nil
}
