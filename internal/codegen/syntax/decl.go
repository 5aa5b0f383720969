package syntax

import (
	"go/ast"
	"go/token"
)

// Category is the syntactic kind of a top-level declaration.
type Category int

const (
	CategoryEmpty Category = iota
	CategoryImport
	CategoryConst
	CategoryVar
	CategoryType
	CategoryFunc
)

func (c Category) String() string {
	switch c {
	case CategoryEmpty:
		return "empty"
	case CategoryImport:
		return "import"
	case CategoryConst:
		return "const"
	case CategoryVar:
		return "var"
	case CategoryType:
		return "type"
	case CategoryFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Shape is the structural form of a declaration, independent of its category.
type Shape int

const (
	ShapeOpaque Shape = iota
	ShapeImport
	// ShapeValue is a const or var without a func type.
	ShapeValue
	// ShapeFuncPointer is a single var with an explicit func type and exactly
	// one initializer: a function the generator could only express as a
	// function-typed value.
	ShapeFuncPointer
	ShapeStruct
	ShapeNamedType
	ShapeFunction
)

func (s Shape) String() string {
	switch s {
	case ShapeImport:
		return "import"
	case ShapeValue:
		return "value"
	case ShapeFuncPointer:
		return "func-pointer"
	case ShapeStruct:
		return "struct"
	case ShapeNamedType:
		return "named-type"
	case ShapeFunction:
		return "function"
	default:
		return "opaque"
	}
}

// Decl is one slot of a Sequence. Every concrete declaration answers the same
// questions, so classifiers never switch on the concrete type.
type Decl interface {
	Category() Category
	// Name is the single identifier the declaration introduces, or "" for
	// grouped or anonymous declarations.
	Name() string
	// Names lists every identifier introduced at package scope.
	Names() []string
	Shape() Shape
	// Node is the underlying syntax node, nil for the empty slot.
	Node() ast.Decl
}

// Empty is the placeholder left behind when a slot is blanked.
var Empty Decl = emptyDecl{}

type emptyDecl struct{}

func (emptyDecl) Category() Category { return CategoryEmpty }
func (emptyDecl) Name() string       { return "" }
func (emptyDecl) Names() []string    { return nil }
func (emptyDecl) Shape() Shape       { return ShapeOpaque }
func (emptyDecl) Node() ast.Decl     { return nil }

type genDecl struct {
	node *ast.GenDecl
}

func (d genDecl) Node() ast.Decl { return d.node }

func (d genDecl) Category() Category {
	switch d.node.Tok {
	case token.IMPORT:
		return CategoryImport
	case token.CONST:
		return CategoryConst
	case token.VAR:
		return CategoryVar
	case token.TYPE:
		return CategoryType
	}
	return CategoryEmpty
}

func (d genDecl) Names() []string {
	var names []string
	for _, spec := range d.node.Specs {
		switch s := spec.(type) {
		case *ast.ValueSpec:
			for _, n := range s.Names {
				if n.Name != "_" {
					names = append(names, n.Name)
				}
			}
		case *ast.TypeSpec:
			names = append(names, s.Name.Name)
		}
	}
	return names
}

func (d genDecl) Name() string {
	if len(d.node.Specs) != 1 {
		return ""
	}
	names := d.Names()
	if len(names) != 1 {
		return ""
	}
	return names[0]
}

func (d genDecl) Shape() Shape {
	if d.node.Tok == token.IMPORT {
		return ShapeImport
	}
	if len(d.node.Specs) != 1 {
		return ShapeOpaque
	}
	switch s := d.node.Specs[0].(type) {
	case *ast.ValueSpec:
		if _, ok := s.Type.(*ast.FuncType); ok && d.node.Tok == token.VAR && len(s.Names) == 1 && len(s.Values) == 1 {
			return ShapeFuncPointer
		}
		return ShapeValue
	case *ast.TypeSpec:
		if _, ok := s.Type.(*ast.StructType); ok {
			return ShapeStruct
		}
		return ShapeNamedType
	}
	return ShapeOpaque
}

type funcDecl struct {
	node *ast.FuncDecl
}

func (d funcDecl) Node() ast.Decl     { return d.node }
func (d funcDecl) Category() Category { return CategoryFunc }
func (d funcDecl) Shape() Shape       { return ShapeFunction }

func (d funcDecl) Name() string {
	if d.node.Recv != nil {
		return ""
	}
	return d.node.Name.Name
}

func (d funcDecl) Names() []string {
	// Methods and init live outside the package-scope namespace.
	if d.node.Recv != nil || d.node.Name.Name == "init" || d.node.Name.Name == "_" {
		return nil
	}
	return []string{d.node.Name.Name}
}

// Wrap returns the Decl view of an ast.Decl.
func Wrap(node ast.Decl) Decl {
	switch n := node.(type) {
	case *ast.GenDecl:
		return genDecl{node: n}
	case *ast.FuncDecl:
		return funcDecl{node: n}
	}
	return Empty
}

// ValueSpec returns the only value spec of a single-spec const or var declaration.
func ValueSpec(d Decl) (*ast.ValueSpec, bool) {
	g, ok := d.Node().(*ast.GenDecl)
	if !ok || len(g.Specs) != 1 {
		return nil, false
	}
	s, ok := g.Specs[0].(*ast.ValueSpec)
	return s, ok
}

// TypeSpecs returns every type spec of a type declaration, grouped or not.
func TypeSpecs(d Decl) []*ast.TypeSpec {
	g, ok := d.Node().(*ast.GenDecl)
	if !ok || g.Tok != token.TYPE {
		return nil
	}
	specs := make([]*ast.TypeSpec, 0, len(g.Specs))
	for _, spec := range g.Specs {
		if ts, ok := spec.(*ast.TypeSpec); ok {
			specs = append(specs, ts)
		}
	}
	return specs
}
