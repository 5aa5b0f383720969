// Package bindgen assembles the binding generator invocation and runs it.
//
// The generator itself is a black box behind the Generator interface: given a
// header, clang arguments and a whitelist it returns Go source text holding
// the raw declarations.
package bindgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
)

// Request is a fully assembled generator invocation.
type Request struct {
	Header    string
	ClangArgs []string
	Whitelist Whitelist
}

// IncludeDirs returns the directories passed with -I, in order.
func (r Request) IncludeDirs() []string {
	var dirs []string
	for i := 0; i < len(r.ClangArgs); i++ {
		a := r.ClangArgs[i]
		switch {
		case a == "-I" && i+1 < len(r.ClangArgs):
			dirs = append(dirs, r.ClangArgs[i+1])
			i++
		case len(a) > 2 && a[:2] == "-I":
			dirs = append(dirs, a[2:])
		}
	}
	return dirs
}

// Generator turns a Request into Go source text.
type Generator interface {
	Generate(req Request) ([]byte, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(req Request) ([]byte, error)

func (f GeneratorFunc) Generate(req Request) ([]byte, error) { return f(req) }

// Builder mirrors bindgen's builder: header, clang args and allowlist entries
// are accumulated and validated once in Build.
type Builder struct {
	header    string
	clangArgs []string
	whitelist Whitelist
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Header(path string) *Builder {
	b.header = path
	return b
}

func (b *Builder) ClangArgs(args ...string) *Builder {
	b.clangArgs = append(b.clangArgs, args...)
	return b
}

func (b *Builder) AllowType(pattern string) *Builder {
	b.whitelist.Types = append(b.whitelist.Types, pattern)
	return b
}

func (b *Builder) AllowVar(pattern string) *Builder {
	b.whitelist.Vars = append(b.whitelist.Vars, pattern)
	return b
}

// Whitelist adds every pattern of w.
func (b *Builder) Whitelist(w Whitelist) *Builder {
	for _, p := range w.Types {
		b.AllowType(p)
	}
	for _, p := range w.Vars {
		b.AllowVar(p)
	}
	return b
}

// Build validates the accumulated state and returns the Request.
func (b *Builder) Build() (Request, error) {
	req := Request{
		Header:    b.header,
		ClangArgs: append([]string(nil), b.clangArgs...),
		Whitelist: b.whitelist.Clone(),
	}
	if req.Header == "" {
		return Request{}, generror.GeneratorFailure("", errors.New("no header configured"))
	}
	info, err := os.Stat(req.Header)
	if err != nil {
		return Request{}, generror.GeneratorFailure(req.Header, fmt.Errorf("stat header: %w", err))
	}
	if info.IsDir() {
		return Request{}, generror.GeneratorFailure(req.Header, errors.New("header is a directory"))
	}
	for _, dir := range req.IncludeDirs() {
		info, err := os.Stat(dir)
		if err != nil {
			return Request{}, generror.GeneratorFailure(dir, fmt.Errorf("include directory: %w", err))
		}
		if !info.IsDir() {
			return Request{}, generror.GeneratorFailure(dir, errors.New("include path is not a directory"))
		}
	}
	if _, err := req.Whitelist.Compile(); err != nil {
		return Request{}, generror.GeneratorFailure(req.Header, err)
	}
	return req, nil
}

// Generate builds the request and runs g on it. An empty result is treated
// as a failure: downstream stages assume a complete declaration set.
func (b *Builder) Generate(g Generator) ([]byte, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	out, err := g.Generate(req)
	if err != nil {
		return nil, generror.GeneratorFailure(req.Header, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, generror.GeneratorFailure(req.Header, errors.New("generator produced no output"))
	}
	return out, nil
}

// LibbpfIncludeArgs returns the clang arguments that put libbpf's headers on
// the include path. The headers are expected under <libbpfDir>/src.
func LibbpfIncludeArgs(libbpfDir string) ([]string, error) {
	src := filepath.Join(libbpfDir, "src")
	if _, err := os.Stat(filepath.Join(src, "bpf_helpers.h")); err != nil {
		return nil, generror.GeneratorFailure(src, fmt.Errorf("libbpf headers not found: %w", err))
	}
	return []string{"-I", src}, nil
}
