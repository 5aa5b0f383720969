package emit

import (
	"bytes"
	"fmt"
	"go/ast"
	goformat "go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"strconv"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/Alia5/bpfgen/internal/codegen/common"
	"github.com/Alia5/bpfgen/internal/codegen/generror"
	"github.com/Alia5/bpfgen/internal/codegen/getters"
	"github.com/Alia5/bpfgen/internal/codegen/helpers"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

var formatOptions = &imports.Options{
	Comments:   true,
	TabIndent:  true,
	TabWidth:   8,
	FormatOnly: true,
}

// RenderBindings prints every non-empty slot of seq in order. Blanked slots
// print nothing; imports left unused by blanking are dropped from the copy,
// the sequence itself is not touched.
func RenderBindings(filename string, seq *syntax.Sequence) ([]byte, error) {
	orig := seq.File()
	file := &ast.File{
		Package: orig.Package,
		Name:    orig.Name,
		Scope:   ast.NewScope(nil),
	}
	for _, d := range seq.Decls() {
		if d.Category() == syntax.CategoryEmpty {
			continue
		}
		file.Decls = append(file.Decls, d.Node())
	}
	file.Imports = importSpecs(file.Decls)
	file.Decls = pruneImports(file)
	file.Imports = importSpecs(file.Decls)
	file.Comments = keptComments(seq.Comments(), file.Decls)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// %s\n\n", common.GeneratedHeader())
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, seq.Fset(), file); err != nil {
		return nil, generror.WriteFailure(filename, fmt.Errorf("print bindings: %w", err))
	}
	return format(filename, buf.Bytes())
}

func importSpecs(decls []ast.Decl) []*ast.ImportSpec {
	var specs []*ast.ImportSpec
	for _, d := range decls {
		if g, ok := d.(*ast.GenDecl); ok && g.Tok == token.IMPORT {
			for _, spec := range g.Specs {
				specs = append(specs, spec.(*ast.ImportSpec))
			}
		}
	}
	return specs
}

// pruneImports returns the declarations with unused import specs removed.
// Import declarations are copied before filtering.
func pruneImports(file *ast.File) []ast.Decl {
	out := make([]ast.Decl, 0, len(file.Decls))
	for _, d := range file.Decls {
		g, ok := d.(*ast.GenDecl)
		if !ok || g.Tok != token.IMPORT {
			out = append(out, d)
			continue
		}
		var specs []ast.Spec
		for _, spec := range g.Specs {
			is := spec.(*ast.ImportSpec)
			p, err := strconv.Unquote(is.Path.Value)
			if err != nil || astutil.UsesImport(file, p) {
				specs = append(specs, spec)
			}
		}
		if len(specs) == 0 {
			continue
		}
		cp := *g
		cp.Specs = specs
		out = append(out, &cp)
	}
	return out
}

// keptComments returns the comment groups lying inside a kept declaration,
// its doc comment included.
func keptComments(groups []*ast.CommentGroup, decls []ast.Decl) []*ast.CommentGroup {
	var out []*ast.CommentGroup
	for _, c := range groups {
		for _, d := range decls {
			start := d.Pos()
			switch n := d.(type) {
			case *ast.GenDecl:
				if n.Doc != nil {
					start = n.Doc.Pos()
				}
			case *ast.FuncDecl:
				if n.Doc != nil {
					start = n.Doc.Pos()
				}
			}
			if start <= c.Pos() && c.End() <= d.End() {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// RenderHelpers renders the expanded helpers into package l.Package().
// bindings is the blanked sequence the helpers refer back to.
func RenderHelpers(l Layout, bindings *syntax.Sequence, expanded []helpers.Expanded) ([]byte, error) {
	codes := make([]jen.Code, len(expanded))
	var refs []string
	for i, e := range expanded {
		codes[i] = e.Code
		refs = append(refs, e.Refs...)
	}
	return renderDependent(l, l.HelpersPath(), usesBindings(bindings, refs), codes)
}

// RenderGetters renders the getters into package l.Package().
func RenderGetters(l Layout, bindings *syntax.Sequence, gs []getters.Getter) ([]byte, error) {
	codes := make([]jen.Code, len(gs))
	var refs []string
	for i, g := range gs {
		codes[i] = g.Code
		refs = append(refs, g.Refs...)
	}
	return renderDependent(l, l.GettersPath(), usesBindings(bindings, refs), codes)
}

func usesBindings(bindings *syntax.Sequence, refs []string) bool {
	declared := make(map[string]bool)
	for _, n := range bindings.DeclaredNames() {
		declared[n] = true
	}
	for _, r := range refs {
		if declared[r] {
			return true
		}
	}
	return false
}

// renderDependent renders a file whose first declaration imports the bindings
// package: a dot import when the code names anything from it, otherwise a
// blank import so the dependency stays visible and the file still compiles.
func renderDependent(l Layout, filename string, dot bool, codes []jen.Code) ([]byte, error) {
	f := jen.NewFile(l.Package())
	f.HeaderComment(common.GeneratedHeader())
	for _, c := range codes {
		f.Add(c)
		f.Line()
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, generror.WriteFailure(filename, fmt.Errorf("render: %w", err))
	}

	src, err := prependImport(filename, buf.Bytes(), l.BindingsImport, dot)
	if err != nil {
		return nil, err
	}
	// go/format keeps the spliced declaration apart; imports.Process would
	// merge it into the jen import block and sort the standard library first.
	out, err := goformat.Source(src)
	if err != nil {
		return nil, generror.WriteFailure(filename, fmt.Errorf("format: %w", err))
	}
	return out, nil
}

// prependImport splices the bindings import right after the package clause.
// jen cannot express a dot import, so it is added to the rendered text.
func prependImport(filename string, src []byte, importPath string, dot bool) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		return nil, generror.WriteFailure(filename, fmt.Errorf("reparse: %w", err))
	}
	at := fset.Position(file.Name.End()).Offset

	name := "_"
	if dot {
		name = "."
	}
	var out bytes.Buffer
	out.Write(src[:at])
	fmt.Fprintf(&out, "\n\nimport %s %s\n", name, strconv.Quote(importPath))
	out.Write(src[at:])
	return out.Bytes(), nil
}

func format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, formatOptions)
	if err != nil {
		return nil, generror.WriteFailure(filename, fmt.Errorf("format: %w", err))
	}
	return out, nil
}
