// Package libclang is the default binding generator. It walks a header with
// libclang and prints the whitelisted declarations as Go source in the shape
// the rest of the pipeline consumes.
package libclang

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-clang/clang-v13/clang"

	"github.com/Alia5/bpfgen/internal/codegen/bindgen"
	"github.com/Alia5/bpfgen/internal/codegen/bindgen/ctypes"
	"github.com/Alia5/bpfgen/internal/codegen/common"
)

// Generator implements bindgen.Generator on top of libclang.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(req bindgen.Request) ([]byte, error) {
	match, err := req.Whitelist.Compile()
	if err != nil {
		return nil, err
	}

	idx := clang.NewIndex(0, 0)
	defer idx.Dispose()

	args := append([]string{"-x", "c"}, req.ClangArgs...)
	tu := idx.ParseTranslationUnit(req.Header, args, nil, uint32(clang.TranslationUnit_DetailedPreprocessingRecord))
	if tu == (clang.TranslationUnit{}) {
		return nil, fmt.Errorf("parse %s: libclang returned no translation unit", req.Header)
	}
	defer tu.Dispose()

	if err := diagnostics(tu); err != nil {
		return nil, err
	}

	w := newWalker(match)
	if err := w.walk(tu.TranslationUnitCursor()); err != nil {
		return nil, err
	}
	return w.render()
}

func diagnostics(tu clang.TranslationUnit) error {
	var errs []error
	for _, d := range tu.Diagnostics() {
		switch d.Severity() {
		case clang.Diagnostic_Error, clang.Diagnostic_Fatal:
			errs = append(errs, errors.New(d.Spelling()))
		}
		d.Dispose()
	}
	return errors.Join(errs...)
}

type walker struct {
	match  *bindgen.Matcher
	consts *ctypes.Consts

	sources map[string][]byte
	// names maps a record USR to its Go type name; wanted holds the USRs of
	// whitelisted records.
	names   map[string]string
	wanted  map[string]bool
	emitted map[string]bool
	queue   []clang.Cursor

	declared map[string]bool
	unions   map[int64]bool
	decls    []jen.Code
}

func newWalker(match *bindgen.Matcher) *walker {
	return &walker{
		match:    match,
		consts:   ctypes.NewConsts(),
		sources:  map[string][]byte{},
		names:    map[string]string{},
		wanted:   map[string]bool{},
		emitted:  map[string]bool{},
		declared: map[string]bool{},
		unions:   map[int64]bool{},
	}
}

func (w *walker) walk(root clang.Cursor) error {
	var top []clang.Cursor
	root.Visit(func(c, _ clang.Cursor) clang.ChildVisitResult {
		top = append(top, c)
		return clang.ChildVisit_Continue
	})

	w.nameRecords(top)

	for _, c := range top {
		var err error
		switch c.Kind() {
		case clang.Cursor_MacroDefinition:
			w.macro(c)
		case clang.Cursor_EnumDecl:
			err = w.enum(c)
		case clang.Cursor_StructDecl, clang.Cursor_UnionDecl:
			if w.wanted[c.USR()] {
				err = w.record(c)
			}
		case clang.Cursor_TypedefDecl:
			err = w.typedef(c)
		case clang.Cursor_VarDecl:
			err = w.helper(c)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", c.Spelling(), err)
		}
	}

	// Records pulled in by value from whitelisted ones.
	for len(w.queue) > 0 {
		c := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.record(c); err != nil {
			return fmt.Errorf("%s: %w", c.Spelling(), err)
		}
	}
	return nil
}

// nameRecords assigns Go names to every complete record, using the typedef
// name for anonymous ones, and marks the whitelisted records.
func (w *walker) nameRecords(top []clang.Cursor) {
	for _, c := range top {
		switch c.Kind() {
		case clang.Cursor_StructDecl, clang.Cursor_UnionDecl:
			if c.Type().SizeOf() < 0 || anonymous(c) {
				continue
			}
			usr := c.USR()
			if _, ok := w.names[usr]; !ok {
				w.names[usr] = common.ExportName(c.Spelling())
			}
			if w.match.AllowType(c.Spelling()) && !inSystemHeader(c) {
				w.wanted[usr] = true
			}
		case clang.Cursor_TypedefDecl:
			under := c.TypedefDeclUnderlyingType().CanonicalType()
			if under.Kind() != clang.Type_Record {
				continue
			}
			decl := under.Declaration()
			if under.SizeOf() < 0 || !anonymous(decl) {
				continue
			}
			usr := decl.USR()
			w.names[usr] = common.ExportName(c.Spelling())
			if w.match.AllowType(c.Spelling()) && !inSystemHeader(c) {
				w.wanted[usr] = true
			}
		}
	}
}

func anonymous(c clang.Cursor) bool {
	name := c.Spelling()
	return name == "" || strings.Contains(name, "(") || c.IsAnonymous()
}

func inSystemHeader(c clang.Cursor) bool {
	return c.Location().IsInSystemHeader()
}

func (w *walker) source(c clang.Cursor) ([]byte, int, bool) {
	file, line, _, _ := c.Location().FileLocation()
	name := file.Name()
	if name == "" {
		return nil, 0, false
	}
	src, ok := w.sources[name]
	if !ok {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, 0, false
		}
		src = b
		w.sources[name] = src
	}
	return src, int(line), true
}

func (w *walker) constant(name, value string) {
	goName := common.ExportName(name)
	if w.declared[goName] {
		return
	}
	w.declared[goName] = true
	w.decls = append(w.decls, jen.Const().Id(goName).Op("=").Op(value))
}

func (w *walker) macro(c clang.Cursor) {
	name := c.Spelling()
	src, line, ok := w.source(c)
	if !ok {
		return
	}
	body, ok := ctypes.MacroBody(src, line, name)
	if !ok {
		return
	}
	value, ok := w.consts.Eval(name, body)
	if ok && w.match.AllowVar(name) && !inSystemHeader(c) {
		w.constant(name, value)
	}
}

func (w *walker) enum(c clang.Cursor) error {
	var consts [][2]string
	c.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_EnumConstantDecl {
			name := child.Spelling()
			v := child.EnumConstantDeclValue()
			w.consts.Define(name, v)
			consts = append(consts, [2]string{name, fmt.Sprint(v)})
		}
		return clang.ChildVisit_Continue
	})
	if inSystemHeader(c) {
		return nil
	}

	if !anonymous(c) && w.match.AllowType(c.Spelling()) {
		name := common.ExportName(c.Spelling())
		if !w.declared[name] {
			typ, err := ctypes.Int(c.Type().SizeOf(), false)
			if err != nil {
				return err
			}
			w.declared[name] = true
			w.decls = append(w.decls, jen.Type().Id(name).Id(typ))
		}
	}
	for _, kv := range consts {
		if w.match.AllowVar(kv[0]) {
			w.constant(kv[0], kv[1])
		}
	}
	return nil
}

func (w *walker) typedef(c clang.Cursor) error {
	name := c.Spelling()
	if !w.match.AllowType(name) || inSystemHeader(c) {
		return nil
	}
	goName := common.ExportName(name)
	under := c.TypedefDeclUnderlyingType().CanonicalType()
	if under.Kind() == clang.Type_Record {
		usr := under.Declaration().USR()
		if w.names[usr] == goName {
			if !w.emitted[usr] {
				return w.record(under.Declaration())
			}
			return nil
		}
	}
	if w.declared[goName] {
		return nil
	}
	typ, err := w.goType(under)
	if err != nil {
		return err
	}
	w.declared[goName] = true
	w.decls = append(w.decls, jen.Type().Id(goName).Add(typ))
	return nil
}

// record emits a named struct or union once.
func (w *walker) record(c clang.Cursor) error {
	usr := c.USR()
	if w.emitted[usr] {
		return nil
	}
	w.emitted[usr] = true
	if def := c.Definition(); !def.IsNull() {
		c = def
	}
	name := w.names[usr]
	if name == "" || w.declared[name] {
		return nil
	}
	w.declared[name] = true

	t := c.Type()
	if c.Kind() == clang.Cursor_UnionDecl {
		w.decls = append(w.decls, jen.Type().Id(name).Add(ctypes.Bytes(t.SizeOf())))
		return nil
	}
	st, err := w.structType(c)
	if err != nil {
		return err
	}
	w.decls = append(w.decls, jen.Type().Id(name).Add(st))
	return nil
}

func (w *walker) structType(c clang.Cursor) (jen.Code, error) {
	var (
		fields []ctypes.Field
		err    error
		anon   int
		// pending is an anonymous record member not yet claimed by a
		// FieldDecl. libclang reports no field for C11 anonymous members.
		pending *clang.Cursor
	)
	taken := map[string]bool{}

	add := func(name string, t clang.Type, offsetBits int64, bitField bool) bool {
		f := ctypes.Field{
			Offset:   offsetBits / 8,
			Size:     max(t.SizeOf(), 0),
			Align:    t.AlignOf(),
			BitField: bitField,
		}
		if name == "" {
			anon++
			name = fmt.Sprintf("Anon%d", anon)
		}
		f.Name = common.Fresh(common.ExportName(name), taken)
		if !f.BitField {
			f.Type, err = w.goType(t)
			if err != nil {
				err = fmt.Errorf("field %s: %w", name, err)
				return false
			}
		}
		fields = append(fields, f)
		return true
	}
	flush := func() bool {
		if pending == nil {
			return true
		}
		rec := *pending
		pending = nil
		first := firstField(rec)
		if first == "" {
			return true
		}
		return add("", rec.Type(), c.Type().OffsetOf(first), false)
	}

	c.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		ok := true
		switch child.Kind() {
		case clang.Cursor_StructDecl, clang.Cursor_UnionDecl:
			if anonymous(child) {
				ok = flush()
				pending = &child
			}
		case clang.Cursor_FieldDecl:
			t := child.Type()
			if pending != nil && t.CanonicalType().Declaration().USR() == pending.USR() {
				pending = nil
			} else if ok = flush(); !ok {
				break
			}
			ok = add(child.Spelling(), t, child.OffsetOfField(), child.IsBitField())
		}
		if !ok {
			return clang.ChildVisit_Break
		}
		return clang.ChildVisit_Continue
	})
	if err != nil || !flush() {
		return nil, err
	}

	laid := ctypes.Layout(fields, c.Type().SizeOf())
	codes := make([]jen.Code, len(laid))
	for i, f := range laid {
		codes[i] = f.Code()
	}
	return jen.Struct(codes...), nil
}

// firstField returns the name of the first named field reachable through rec,
// descending into nested anonymous members.
func firstField(rec clang.Cursor) string {
	var name string
	rec.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		switch child.Kind() {
		case clang.Cursor_FieldDecl:
			if child.Spelling() != "" {
				name = child.Spelling()
				return clang.ChildVisit_Break
			}
		case clang.Cursor_StructDecl, clang.Cursor_UnionDecl:
			if anonymous(child) {
				if n := firstField(child); n != "" {
					name = n
					return clang.ChildVisit_Break
				}
			}
		}
		return clang.ChildVisit_Continue
	})
	return name
}

func (w *walker) goType(t clang.Type) (jen.Code, error) {
	t = t.CanonicalType()
	size := t.SizeOf()
	switch t.Kind() {
	case clang.Type_Void:
		return nil, errors.New("void value")
	case clang.Type_Bool:
		return jen.Bool(), nil
	case clang.Type_Char_S, clang.Type_SChar, clang.Type_Short, clang.Type_Int,
		clang.Type_Long, clang.Type_LongLong, clang.Type_WChar:
		return intType(size, true)
	case clang.Type_Char_U, clang.Type_UChar, clang.Type_UShort, clang.Type_UInt,
		clang.Type_ULong, clang.Type_ULongLong, clang.Type_Char16, clang.Type_Char32,
		clang.Type_Enum:
		return intType(size, false)
	case clang.Type_Float:
		return jen.Float32(), nil
	case clang.Type_Double:
		return jen.Float64(), nil
	case clang.Type_Pointer:
		pointee := t.PointeeType().CanonicalType()
		if pointee.Kind() == clang.Type_Record {
			usr := pointee.Declaration().USR()
			if w.wanted[usr] && w.names[usr] != "" {
				return jen.Op("*").Id(w.names[usr]), nil
			}
		}
		return jen.Qual("unsafe", "Pointer"), nil
	case clang.Type_ConstantArray:
		elem, err := w.goType(t.ArrayElementType())
		if err != nil {
			return nil, err
		}
		return jen.Index(jen.Lit(int(t.ArraySize()))).Add(elem), nil
	case clang.Type_IncompleteArray:
		elem, err := w.goType(t.ArrayElementType())
		if err != nil {
			return nil, err
		}
		return jen.Index(jen.Lit(0)).Add(elem), nil
	case clang.Type_Record:
		return w.recordType(t)
	case clang.Type_FunctionProto, clang.Type_FunctionNoProto:
		return jen.Qual("unsafe", "Pointer"), nil
	}
	if size > 0 {
		// __int128, long double, vectors.
		return ctypes.Bytes(size), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t.Spelling())
}

func intType(size int64, signed bool) (jen.Code, error) {
	name, err := ctypes.Int(size, signed)
	if err != nil {
		return nil, err
	}
	return jen.Id(name), nil
}

// recordType names a record used by value. Named records are queued for
// emission; anonymous structs are inlined and anonymous unions become
// Union_<size>_bytes.
func (w *walker) recordType(t clang.Type) (jen.Code, error) {
	decl := t.Declaration()
	if name := w.names[decl.USR()]; name != "" {
		if !w.emitted[decl.USR()] {
			w.queue = append(w.queue, decl)
		}
		return jen.Id(name), nil
	}
	if decl.Kind() == clang.Cursor_UnionDecl {
		size := t.SizeOf()
		name := common.UnionTypeName(size)
		if !w.unions[size] && !w.declared[name] {
			w.unions[size] = true
			w.declared[name] = true
			w.decls = append(w.decls, jen.Type().Id(name).Add(ctypes.Bytes(size)))
		}
		return jen.Id(name), nil
	}
	return w.structType(decl)
}

// helper emits `static T (*name)(params) = (void *) N;` in helper shape.
func (w *walker) helper(c clang.Cursor) error {
	name := c.Spelling()
	if !w.match.AllowVar(name) || inSystemHeader(c) {
		return nil
	}
	t := c.Type().CanonicalType()
	if t.Kind() != clang.Type_Pointer {
		return nil
	}
	fn := t.PointeeType().CanonicalType()
	if fn.Kind() != clang.Type_FunctionProto {
		return nil
	}
	src, line, ok := w.source(c)
	if !ok {
		return nil
	}
	addr, ok := ctypes.HelperAddress(src, line)
	if !ok {
		return nil
	}

	var paramNames []string
	c.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_ParmDecl {
			paramNames = append(paramNames, child.Spelling())
		}
		return clang.ChildVisit_Continue
	})

	// Variadic tails are dropped: only the fixed parameters are callable.
	n := int(fn.NumArgTypes())
	named := len(paramNames) == n
	taken := map[string]bool{}
	for _, p := range paramNames {
		if p == "" {
			named = false
		}
	}

	params := make([]jen.Code, n)
	for i := range n {
		typ, err := w.goType(fn.ArgType(uint32(i)))
		if err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		if !named {
			params[i] = typ
			continue
		}
		p := paramNames[i]
		if p == "unsafe" {
			p += "_"
		}
		p = common.Fresh(common.RenameKeyword(p), taken)
		params[i] = jen.Id(p).Add(typ)
	}

	sig := jen.Func().Params(params...)
	if res := fn.ResultType().CanonicalType(); res.Kind() != clang.Type_Void {
		typ, err := w.goType(res)
		if err != nil {
			return fmt.Errorf("result: %w", err)
		}
		sig.Add(typ)
	}

	goName := common.ExportName(name)
	if w.declared[goName] {
		return nil
	}
	w.declared[goName] = true
	w.decls = append(w.decls, jen.Var().Id(goName).Add(sig).Op("=").
		Qual("unsafe", "Pointer").Call(jen.Uintptr().Call(jen.Op(addr))))
	return nil
}

func (w *walker) render() ([]byte, error) {
	f := jen.NewFile("bindings")
	f.ImportName("unsafe", "unsafe")
	for _, d := range w.decls {
		f.Add(d)
		f.Line()
	}
	var b strings.Builder
	if err := f.Render(&b); err != nil {
		return nil, fmt.Errorf("render bindings: %w", err)
	}
	return []byte(b.String()), nil
}
