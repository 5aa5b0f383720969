package common

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/divan/num2words"
)

// ExportName upper-cases the first letter of a C identifier so it is visible
// outside the bindings package: bpf_map_def -> Bpf_map_def, _x -> X_x.
func ExportName(name string) string {
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == '_' {
		return "X" + name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// RenameKeyword appends "_" to names that are reserved in Go.
// Example: "map" -> "map_", "type" -> "type_".
func RenameKeyword(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

// ArgName is the name given to the i-th unnamed parameter.
func ArgName(i int) string {
	return fmt.Sprintf("arg%d", i)
}

// UnionTypeName names the opaque byte array standing in for a union of the
// given size: 4 -> Union_four_bytes, 24 -> Union_twenty_four_bytes.
func UnionTypeName(size int64) string {
	words := num2words.Convert(int(size))
	words = strings.NewReplacer("-", "_", " ", "_").Replace(words)
	return "Union_" + words + "_bytes"
}

// Fresh returns base, or base with the smallest numeric suffix that is not
// in taken. The chosen name is added to taken.
func Fresh(base string, taken map[string]bool) string {
	name := base
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	taken[name] = true
	return name
}
