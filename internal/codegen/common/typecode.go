package common

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/dave/jennifer/jen"
)

// ImportResolver maps the local name of an import to its path.
type ImportResolver func(local string) (path string, ok bool)

// TypeCode re-renders a type expression taken from parsed bindings as jen
// code. Qualified identifiers are resolved through imports so the emitting
// file gets its own import block. Identifiers are kept verbatim.
func TypeCode(expr ast.Expr, imports ImportResolver) (jen.Code, error) {
	switch t := expr.(type) {
	case *ast.Ident:
		return jen.Id(t.Name), nil
	case *ast.ParenExpr:
		inner, err := TypeCode(t.X, imports)
		if err != nil {
			return nil, err
		}
		return jen.Parens(inner), nil
	case *ast.StarExpr:
		inner, err := TypeCode(t.X, imports)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(inner), nil
	case *ast.SelectorExpr:
		pkg, ok := t.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("unsupported qualified type %T", t.X)
		}
		path, ok := imports(pkg.Name)
		if !ok {
			return nil, fmt.Errorf("unknown package %q", pkg.Name)
		}
		return jen.Qual(path, t.Sel.Name), nil
	case *ast.ArrayType:
		elem, err := TypeCode(t.Elt, imports)
		if err != nil {
			return nil, err
		}
		if t.Len == nil {
			return jen.Index().Add(elem), nil
		}
		n, err := arrayLen(t.Len)
		if err != nil {
			return nil, err
		}
		return jen.Index(n).Add(elem), nil
	case *ast.StructType:
		fields, err := fieldCodes(t.Fields, imports)
		if err != nil {
			return nil, err
		}
		return jen.Struct(fields...), nil
	case *ast.FuncType:
		if t.TypeParams != nil && len(t.TypeParams.List) > 0 {
			return nil, fmt.Errorf("generic func types are not supported")
		}
		params, err := fieldCodes(t.Params, imports)
		if err != nil {
			return nil, err
		}
		results, err := fieldCodes(t.Results, imports)
		if err != nil {
			return nil, err
		}
		fn := jen.Func().Params(params...)
		if len(results) == 1 && len(t.Results.List[0].Names) == 0 {
			return fn.Add(results[0]), nil
		}
		return fn.Params(results...), nil
	case *ast.InterfaceType:
		if t.Methods != nil && len(t.Methods.List) > 0 {
			return nil, fmt.Errorf("interface types with methods are not supported")
		}
		return jen.Interface(), nil
	case *ast.MapType:
		key, err := TypeCode(t.Key, imports)
		if err != nil {
			return nil, err
		}
		val, err := TypeCode(t.Value, imports)
		if err != nil {
			return nil, err
		}
		return jen.Map(key).Add(val), nil
	}
	return nil, fmt.Errorf("unsupported type expression %T", expr)
}

func arrayLen(expr ast.Expr) (jen.Code, error) {
	switch l := expr.(type) {
	case *ast.BasicLit:
		if l.Kind != token.INT {
			return nil, fmt.Errorf("array length %s is not an integer", l.Value)
		}
		// Op keeps the literal text as written (hex, octal, separators).
		return jen.Op(l.Value), nil
	case *ast.Ident:
		return jen.Id(l.Name), nil
	case *ast.ParenExpr:
		return arrayLen(l.X)
	}
	return nil, fmt.Errorf("unsupported array length %T", expr)
}

func fieldCodes(list *ast.FieldList, imports ImportResolver) ([]jen.Code, error) {
	if list == nil {
		return nil, nil
	}
	var out []jen.Code
	for _, f := range list.List {
		typ, err := TypeCode(f.Type, imports)
		if err != nil {
			return nil, err
		}
		if len(f.Names) == 0 {
			out = append(out, typ)
			continue
		}
		names := make([]jen.Code, len(f.Names))
		for i, n := range f.Names {
			names[i] = jen.Id(n.Name)
		}
		out = append(out, jen.List(names...).Add(typ))
	}
	return out, nil
}

// TypeRefs returns the unqualified identifiers a type expression refers to,
// in first-seen order. Field and parameter names are not references.
func TypeRefs(expr ast.Expr) []string {
	var refs []string
	seen := make(map[string]bool)
	var walk func(ast.Expr)
	walkFields := func(list *ast.FieldList) {
		if list == nil {
			return
		}
		for _, f := range list.List {
			walk(f.Type)
		}
	}
	walk = func(e ast.Expr) {
		switch t := e.(type) {
		case *ast.Ident:
			if !seen[t.Name] {
				seen[t.Name] = true
				refs = append(refs, t.Name)
			}
		case *ast.ParenExpr:
			walk(t.X)
		case *ast.StarExpr:
			walk(t.X)
		case *ast.ArrayType:
			if t.Len != nil {
				walk(t.Len)
			}
			walk(t.Elt)
		case *ast.StructType:
			walkFields(t.Fields)
		case *ast.FuncType:
			walkFields(t.Params)
			walkFields(t.Results)
		case *ast.MapType:
			walk(t.Key)
			walk(t.Value)
		}
	}
	walk(expr)
	return refs
}
