// Package getters synthesizes one safe accessor per readable struct field.
//
// BPF programs may not dereference kernel memory directly. Every getter copies
// the field through the probe-read primitive into a local and reports whether
// the read succeeded.
package getters

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/dave/jennifer/jen"

	"github.com/Alia5/bpfgen/internal/codegen/common"
	"github.com/Alia5/bpfgen/internal/codegen/generror"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

// DefaultProbeRead is the primitive getters call unless configured otherwise.
// Its contract is func(dst unsafe.Pointer, size uint32, src unsafe.Pointer) int64,
// returning 0 on success.
var DefaultProbeRead = common.Symbol{Path: "github.com/Alia5/bpfgen/bpf/helpers", Name: "ProbeRead"}

type Options struct {
	ProbeRead common.Symbol
	// Reserved names are already taken in the package the getters land in,
	// typically by expanded helpers.
	Reserved []string
}

type Getter struct {
	Name  string
	Owner string
	Field string
	Code  jen.Code
	Refs  []string
}

// Synthesize visits struct declarations in slot order and their fields in
// declaration order.
func Synthesize(seq *syntax.Sequence, opts Options) ([]Getter, error) {
	if opts.ProbeRead.Name == "" {
		return nil, errors.New("probe-read symbol not configured")
	}

	taken := make(map[string]string)
	for _, n := range seq.DeclaredNames() {
		taken[n] = "bindings declaration"
	}
	for _, n := range opts.Reserved {
		taken[n] = "expanded helper"
	}

	var out []Getter
	for i := 0; i < seq.Len(); i++ {
		for _, ts := range syntax.TypeSpecs(seq.At(i)) {
			st, ok := ts.Type.(*ast.StructType)
			if !ok || ts.TypeParams != nil || !token.IsExported(ts.Name.Name) {
				continue
			}
			for _, field := range st.Fields.List {
				if !Eligible(field) {
					continue
				}
				typ, err := common.TypeCode(field.Type, seq.ImportPath)
				if err != nil {
					// The field type cannot be named outside the bindings package.
					continue
				}
				for _, fn := range field.Names {
					if fn.Name == "_" || !token.IsExported(fn.Name) {
						continue
					}
					g := Getter{
						Name:  ts.Name.Name + "_" + fn.Name,
						Owner: ts.Name.Name,
						Field: fn.Name,
						Refs:  append([]string{ts.Name.Name}, common.TypeRefs(field.Type)...),
					}
					if by, ok := taken[g.Name]; ok {
						return nil, generror.NameCollision(g.Name, "getter for %s.%s collides with %s", g.Owner, g.Field, by)
					}
					taken[g.Name] = "getter"
					g.Code = getter(g, typ, opts.ProbeRead)
					out = append(out, g)
				}
			}
		}
	}
	return out, nil
}

// Eligible reports whether a field gets a getter: a named field whose type is
// a named type other than string/any/error, a pointer, a fixed-length array, a
// qualified type or an inline struct.
func Eligible(field *ast.Field) bool {
	if len(field.Names) == 0 {
		return false
	}
	return eligibleType(field.Type)
}

func eligibleType(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.ParenExpr:
		return eligibleType(t.X)
	case *ast.Ident:
		switch t.Name {
		case "string", "any", "error":
			return false
		}
		return token.IsExported(t.Name) || types.Universe.Lookup(t.Name) != nil
	case *ast.StarExpr, *ast.SelectorExpr, *ast.StructType:
		return true
	case *ast.ArrayType:
		_, ellipsis := t.Len.(*ast.Ellipsis)
		return t.Len != nil && !ellipsis
	}
	return false
}

func getter(g Getter, typ jen.Code, probe common.Symbol) jen.Code {
	unsafePointer := func(c jen.Code) *jen.Statement {
		return jen.Qual("unsafe", "Pointer").Parens(c)
	}
	read := jen.Qual(probe.Path, probe.Name).Call(
		unsafePointer(jen.Op("&").Id("v")),
		jen.Uint32().Parens(jen.Qual("unsafe", "Sizeof").Call(jen.Id("v"))),
		jen.Qual("unsafe", "Add").Call(
			unsafePointer(jen.Id("s")),
			jen.Qual("unsafe", "Offsetof").Call(jen.Id("s").Dot(g.Field)),
		),
	)
	return jen.Func().Id(g.Name).
		Params(jen.Id("s").Op("*").Id(g.Owner)).
		Params(typ, jen.Bool()).
		Block(
			jen.Var().Id("v").Add(typ),
			jen.If(read.Op("!=").Lit(0)).Block(
				jen.Return(jen.Id("v"), jen.False()),
			),
			jen.Return(jen.Id("v"), jen.True()),
		)
}
