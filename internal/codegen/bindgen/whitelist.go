package bindgen

import (
	"fmt"
	"regexp"
	"strings"
)

// Whitelist restricts which declarations the generator keeps. Patterns follow
// bindgen's allowlist syntax: regular expressions matched against the whole
// C identifier.
type Whitelist struct {
	Types []string
	Vars  []string
}

// DefaultWhitelist scopes the bindings to the map definitions plus the BPF_*
// constants and bpf_* helpers.
var DefaultWhitelist = Whitelist{
	Types: []string{"bpf_map_.*"},
	Vars:  []string{"BPF_.*", "bpf_.*"},
}

// Matcher is a compiled Whitelist.
type Matcher struct {
	types []*regexp.Regexp
	vars  []*regexp.Regexp
}

// Compile anchors and compiles every pattern.
func (w Whitelist) Compile() (*Matcher, error) {
	types, err := compileAll(w.Types)
	if err != nil {
		return nil, fmt.Errorf("type whitelist: %w", err)
	}
	vars, err := compileAll(w.Vars)
	if err != nil {
		return nil, fmt.Errorf("var whitelist: %w", err)
	}
	return &Matcher{types: types, vars: vars}, nil
}

// Clone returns a copy that shares no backing arrays with w.
func (w Whitelist) Clone() Whitelist {
	return Whitelist{
		Types: append([]string(nil), w.Types...),
		Vars:  append([]string(nil), w.Vars...),
	}
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// AllowType reports whether a struct, union, enum or typedef name is kept.
func (m *Matcher) AllowType(name string) bool {
	return matchAny(m.types, trimTag(name))
}

// AllowVar reports whether a variable, function, enum constant or macro is kept.
func (m *Matcher) AllowVar(name string) bool {
	return matchAny(m.vars, name)
}

func matchAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// trimTag drops a leading "struct ", "union " or "enum " tag.
func trimTag(name string) string {
	for _, tag := range []string{"struct ", "union ", "enum "} {
		if strings.HasPrefix(name, tag) {
			return strings.TrimPrefix(name, tag)
		}
	}
	return name
}
