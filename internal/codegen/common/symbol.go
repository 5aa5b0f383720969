package common

import (
	"fmt"
	"go/token"
	"strings"
)

// Symbol is a package-qualified Go identifier.
type Symbol struct {
	Path string
	Name string
}

// ParseSymbol splits "import/path.Name" at the last dot after the last slash.
// Example: "github.com/Alia5/bpfgen/bpf/helpers.ProbeRead".
func ParseSymbol(s string) (Symbol, error) {
	slash := strings.LastIndex(s, "/")
	dot := strings.LastIndex(s[slash+1:], ".")
	if dot < 0 {
		return Symbol{}, fmt.Errorf("symbol %q: expected <import path>.<name>", s)
	}
	dot += slash + 1
	sym := Symbol{Path: s[:dot], Name: s[dot+1:]}
	if sym.Path == "" || !token.IsIdentifier(sym.Name) || !token.IsExported(sym.Name) {
		return Symbol{}, fmt.Errorf("symbol %q: expected <import path>.<ExportedName>", s)
	}
	return sym, nil
}

func (s Symbol) String() string {
	return s.Path + "." + s.Name
}

// UnmarshalText lets Symbol be used directly as a flag or config value.
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
