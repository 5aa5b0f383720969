// Package emit renders the three generated files of one architecture and
// writes them as a set.
package emit

import (
	"path"
	"path/filepath"

	"github.com/Alia5/bpfgen/internal/codegen/arch"
)

const (
	BindingsPackage = "bindings"
	BindingsFile    = "bindings.go"
	HelpersFile     = "helpers.go"
	GettersFile     = "getters.go"
)

// Layout locates the output of one architecture:
//
//	<bindings dir>/<arch>/bindings/bindings.go  package bindings
//	<bindings dir>/<arch>/helpers.go            package <arch>
//	<bindings dir>/<arch>/getters.go            package <arch>
type Layout struct {
	Arch arch.Architecture
	Dir  string
	// BindingsImport is the import path of the bindings package, dot-imported
	// by helpers.go and getters.go.
	BindingsImport string
}

// NewLayout derives the layout from the bindings directory and the import
// path that directory is reachable under.
func NewLayout(bindingsDir, importPath string, a arch.Architecture) Layout {
	return Layout{
		Arch:           a,
		Dir:            filepath.Join(bindingsDir, a.String()),
		BindingsImport: path.Join(importPath, a.String(), BindingsPackage),
	}
}

func (l Layout) Package() string { return l.Arch.String() }

func (l Layout) BindingsPath() string {
	return filepath.Join(l.Dir, BindingsPackage, BindingsFile)
}

func (l Layout) HelpersPath() string { return filepath.Join(l.Dir, HelpersFile) }

func (l Layout) GettersPath() string { return filepath.Join(l.Dir, GettersFile) }
