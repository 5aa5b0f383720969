package helpers

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/Alia5/bpfgen/internal/codegen/common"
	"github.com/Alia5/bpfgen/internal/codegen/generror"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

// Expanded is the wrapper emitted for one helper.
type Expanded struct {
	Name    string
	Address uint64
	Code    jen.Code
	// Refs are the unqualified identifiers used by the signature. Names the
	// bindings package declares among them require the bindings import.
	Refs []string
}

type param struct {
	name string
	typ  jen.Code
}

type signature struct {
	params  []param
	results []jen.Code
	address uint64
	refs    []string
}

// Expand produces one wrapper per helper, in helper order. Any helper whose
// shape cannot be expressed as a wrapper fails the whole expansion.
func Expand(seq *syntax.Sequence, helpers []Helper) ([]Expanded, error) {
	helperSlots := make(map[int]bool, len(helpers))
	for _, h := range helpers {
		helperSlots[h.Position] = true
	}
	others := make(map[string]bool)
	for i := 0; i < seq.Len(); i++ {
		if helperSlots[i] {
			continue
		}
		for _, n := range seq.At(i).Names() {
			others[n] = true
		}
	}

	seen := make(map[string]bool, len(helpers))
	out := make([]Expanded, 0, len(helpers))
	for _, h := range helpers {
		name := h.Decl.Name()
		if name == "" {
			return nil, generror.HelperShapeUnsupported("_", "helper at position %d has no usable name", h.Position)
		}
		if seen[name] {
			return nil, generror.NameCollision(name, "helper declared more than once")
		}
		if others[name] {
			return nil, generror.NameCollision(name, "helper name is also declared by a non-helper")
		}
		seen[name] = true

		sig, err := decompose(seq, h.Decl)
		if err != nil {
			return nil, err
		}
		out = append(out, Expanded{
			Name:    name,
			Address: sig.address,
			Code:    wrapper(name, sig),
			Refs:    sig.refs,
		})
	}
	return out, nil
}

func decompose(seq *syntax.Sequence, d syntax.Decl) (signature, error) {
	name := d.Name()
	spec, ok := syntax.ValueSpec(d)
	if !ok || len(spec.Values) != 1 {
		return signature{}, generror.HelperShapeUnsupported(name, "not a single initialised variable")
	}
	ft, ok := spec.Type.(*ast.FuncType)
	if !ok {
		return signature{}, generror.HelperShapeUnsupported(name, "type %T is not a func type", spec.Type)
	}
	if ft.TypeParams != nil && len(ft.TypeParams.List) > 0 {
		return signature{}, generror.HelperShapeUnsupported(name, "type parameters")
	}

	var sig signature
	sig.refs = common.TypeRefs(ft)

	addr, err := address(spec.Values[0])
	if err != nil {
		return signature{}, generror.HelperShapeUnsupported(name, "address: %v", err)
	}
	sig.address = addr

	if ft.Params != nil {
		for _, field := range ft.Params.List {
			if _, variadic := field.Type.(*ast.Ellipsis); variadic {
				return signature{}, generror.HelperShapeUnsupported(name, "variadic parameter")
			}
			typ, err := common.TypeCode(field.Type, seq.ImportPath)
			if err != nil {
				return signature{}, generror.HelperShapeUnsupported(name, "parameter type: %v", err)
			}
			if len(field.Names) == 0 {
				sig.params = append(sig.params, param{name: common.ArgName(len(sig.params)), typ: typ})
				continue
			}
			for _, n := range field.Names {
				pname := n.Name
				if pname == "_" {
					pname = common.ArgName(len(sig.params))
				}
				sig.params = append(sig.params, param{name: pname, typ: typ})
			}
		}
	}
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			typ, err := common.TypeCode(field.Type, seq.ImportPath)
			if err != nil {
				return signature{}, generror.HelperShapeUnsupported(name, "result type: %v", err)
			}
			n := max(len(field.Names), 1)
			for range n {
				sig.results = append(sig.results, typ)
			}
		}
	}

	// argN can collide with a real parameter of the same name.
	names := make(map[string]bool, len(sig.params))
	for _, p := range sig.params {
		if names[p.name] {
			return signature{}, generror.HelperShapeUnsupported(name, "duplicate parameter %q", p.name)
		}
		if p.name == "unsafe" {
			return signature{}, generror.HelperShapeUnsupported(name, "parameter shadows package unsafe")
		}
		names[p.name] = true
	}
	return sig, nil
}

// address unwraps parentheses and single-argument conversions such as
// unsafe.Pointer(uintptr(1)) down to the integer literal.
func address(expr ast.Expr) (uint64, error) {
	for {
		switch e := expr.(type) {
		case *ast.ParenExpr:
			expr = e.X
		case *ast.CallExpr:
			if len(e.Args) != 1 || e.Ellipsis.IsValid() {
				return 0, fmt.Errorf("call with %d arguments is not a conversion", len(e.Args))
			}
			expr = e.Args[0]
		case *ast.BasicLit:
			if e.Kind != token.INT {
				return 0, fmt.Errorf("literal %s is not an integer", e.Value)
			}
			return strconv.ParseUint(e.Value, 0, 64)
		default:
			return 0, fmt.Errorf("unsupported initializer %T", expr)
		}
	}
}

func wrapper(name string, sig signature) jen.Code {
	taken := make(map[string]bool, len(sig.params)+3)
	params := make([]jen.Code, len(sig.params))
	paramTypes := make([]jen.Code, len(sig.params))
	args := make([]jen.Code, len(sig.params))
	for i, p := range sig.params {
		taken[p.name] = true
		params[i] = jen.Id(p.name).Add(p.typ)
		paramTypes[i] = p.typ
		args[i] = jen.Id(p.name)
	}
	addr := common.Fresh("addr", taken)
	fn := common.Fresh("fn", taken)
	call := common.Fresh("f", taken)

	funcType := jen.Func().Params(paramTypes...)
	addResults(funcType, sig.results)

	invoke := jen.Id(call).Call(args...)
	if len(sig.results) > 0 {
		invoke = jen.Return(invoke)
	}

	decl := jen.Func().Id(name).Params(params...)
	addResults(decl, sig.results)
	decl.Block(
		jen.Id(addr).Op(":=").Uintptr().Parens(jen.Op(strconv.FormatUint(sig.address, 10))),
		jen.Id(fn).Op(":=").Qual("unsafe", "Pointer").Parens(jen.Op("&").Id(addr)),
		jen.Id(call).Op(":=").Op("*").Parens(jen.Op("*").Add(funcType)).Parens(
			jen.Qual("unsafe", "Pointer").Parens(jen.Op("&").Id(fn)),
		),
		invoke,
	)
	return decl
}

func addResults(s *jen.Statement, results []jen.Code) {
	switch len(results) {
	case 0:
	case 1:
		s.Add(results[0])
	default:
		s.Params(results...)
	}
}
