package ctypes

import (
	"go/constant"
	"go/token"
	"go/types"
	"regexp"
	"strings"
)

var (
	intSuffix = regexp.MustCompile(`\b(0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]+\b`)
	intCast   = regexp.MustCompile(`\(\s*(?:(?:unsigned|signed|const|int|long|short|char|__[us](?:8|16|32|64)|u?int(?:8|16|32|64)_t)\s*)+\)`)
)

// Consts evaluates C integer constants in definition order. Each evaluated
// name becomes visible to later definitions.
type Consts struct {
	fset *token.FileSet
	pkg  *types.Package
}

func NewConsts() *Consts {
	return &Consts{
		fset: token.NewFileSet(),
		pkg:  types.NewPackage("bindings", "bindings"),
	}
}

// Define records an already known value, such as an enumerator.
func (c *Consts) Define(name string, v int64) {
	c.insert(name, constant.MakeInt64(v))
}

// Eval evaluates the replacement text of an object-like macro and returns the
// exact Go literal of its value. Anything that is not an integer constant
// expression once C suffixes and integer casts are stripped is rejected.
func (c *Consts) Eval(name, text string) (string, bool) {
	expr := strings.TrimSpace(StripComments(text))
	if expr == "" {
		return "", false
	}
	expr = intCast.ReplaceAllString(expr, "")
	expr = intSuffix.ReplaceAllString(expr, "$1")

	tv, err := types.Eval(c.fset, c.pkg, token.NoPos, expr)
	if err != nil || tv.Value == nil || tv.Value.Kind() != constant.Int {
		return "", false
	}
	c.insert(name, tv.Value)
	return tv.Value.ExactString(), true
}

func (c *Consts) insert(name string, v constant.Value) {
	typ := types.Typ[types.UntypedInt]
	c.pkg.Scope().Insert(types.NewConst(token.NoPos, c.pkg, name, typ, v))
}

// StripComments removes C block and line comments.
func StripComments(s string) string {
	var b strings.Builder
	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s[2:], "*/")
			if end < 0 {
				return b.String()
			}
			b.WriteByte(' ')
			s = s[end+4:]
		case strings.HasPrefix(s, "//"):
			end := strings.IndexByte(s, '\n')
			if end < 0 {
				return b.String()
			}
			s = s[end:]
		default:
			b.WriteByte(s[0])
			s = s[1:]
		}
	}
	return b.String()
}

// MacroBody extracts the replacement text of `#define name ...` starting at
// the given 1-based line, following backslash continuations.
func MacroBody(src []byte, line int, name string) (string, bool) {
	lines := strings.Split(string(src), "\n")
	if line < 1 || line > len(lines) {
		return "", false
	}
	var text strings.Builder
	for i := line - 1; i < len(lines); i++ {
		l := strings.TrimRight(lines[i], "\r")
		cont := strings.HasSuffix(l, "\\")
		text.WriteString(strings.TrimSuffix(l, "\\"))
		text.WriteByte(' ')
		if !cont {
			break
		}
	}
	def := strings.TrimSpace(text.String())
	def = strings.TrimSpace(strings.TrimPrefix(def, "#"))
	def, ok := strings.CutPrefix(def, "define")
	if !ok {
		return "", false
	}
	def, ok = strings.CutPrefix(strings.TrimSpace(def), name)
	if !ok || strings.HasPrefix(def, "(") {
		return "", false
	}
	return strings.TrimSpace(def), true
}

var helperInit = regexp.MustCompile(`=\s*\(\s*void\s*\*\s*\)\s*((?:0[xX][0-9a-fA-F]+|[0-9]+)[uUlL]*)\s*;`)

// HelperAddress extracts N from the `= (void *) N;` initializer of the helper
// declaration starting at the given 1-based line.
func HelperAddress(src []byte, line int) (string, bool) {
	lines := strings.Split(string(src), "\n")
	if line < 1 || line > len(lines) {
		return "", false
	}
	var decl strings.Builder
	for i := line - 1; i < len(lines); i++ {
		decl.WriteString(lines[i])
		decl.WriteByte('\n')
		if strings.Contains(lines[i], ";") {
			break
		}
	}
	m := helperInit.FindStringSubmatch(StripComments(decl.String()))
	if m == nil {
		return "", false
	}
	return intSuffix.ReplaceAllString(m[1], "$1"), true
}
