// Package generator runs the binding pipeline for one architecture:
// generate, parse, extract helpers, synthesize getters, expand helpers, emit.
package generator

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Alia5/bpfgen/internal/codegen/arch"
	"github.com/Alia5/bpfgen/internal/codegen/bindgen"
	"github.com/Alia5/bpfgen/internal/codegen/common"
	"github.com/Alia5/bpfgen/internal/codegen/emit"
	"github.com/Alia5/bpfgen/internal/codegen/getters"
	"github.com/Alia5/bpfgen/internal/codegen/helpers"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
	"github.com/Alia5/bpfgen/internal/log"
)

// Config is the input of one invocation.
type Config struct {
	Arch      arch.Architecture
	LibbpfDir string
	// BindingsDir holds include/bindings.h and receives <arch>/.
	BindingsDir string
	// ImportPath is the Go import path BindingsDir is reachable under.
	ImportPath string
	ProbeRead  common.Symbol
}

// HeaderPath is the fixed location of the input header.
func (c Config) HeaderPath() string {
	return filepath.Join(c.BindingsDir, "include", "bindings.h")
}

func (c Config) Layout() emit.Layout {
	return emit.NewLayout(c.BindingsDir, c.ImportPath, c.Arch)
}

type Generator struct {
	cfg    Config
	gen    bindgen.Generator
	logger *slog.Logger
	raw    log.RawLogger
}

func New(cfg Config, gen bindgen.Generator, logger *slog.Logger, raw log.RawLogger) *Generator {
	if cfg.ProbeRead.Name == "" {
		cfg.ProbeRead = getters.DefaultProbeRead
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Generator{
		cfg:    cfg,
		gen:    gen,
		logger: logger,
		raw:    raw,
	}
}

// Run executes every stage in sequence. Nothing is written unless all stages
// succeed.
func (g *Generator) Run() error {
	files, err := g.Render()
	if err != nil {
		return err
	}

	g.logger.Debug("Writing generated files", "count", len(files))
	if err := emit.Write(files...); err != nil {
		return err
	}
	for _, f := range files {
		g.logger.Info("Wrote file", "path", f.Path, "bytes", len(f.Content))
	}
	return nil
}

// Render runs every stage up to, but excluding, the write.
func (g *Generator) Render() ([]emit.File, error) {
	layout := g.cfg.Layout()
	g.logger.Info("Generating bindings",
		"arch", g.cfg.Arch,
		"header", g.cfg.HeaderPath(),
		"output", layout.Dir)

	src, err := g.bindgen()
	if err != nil {
		return nil, err
	}
	g.raw.Log("generator output", src)

	g.logger.Debug("Parsing generator output", "bytes", len(src))
	seq, err := syntax.Parse(emit.BindingsFile, src)
	if err != nil {
		return nil, err
	}
	g.logger.Info("Parsed declarations", "count", seq.Len())

	extracted := helpers.Extract(seq)
	g.logger.Info("Found helpers", "count", len(extracted.Helpers))

	blanked, err := seq.Blank(extracted.Positions)
	if err != nil {
		return nil, fmt.Errorf("blank helpers: %w", err)
	}

	expanded, err := helpers.Expand(seq, extracted.Helpers)
	if err != nil {
		return nil, err
	}
	reserved := make([]string, len(expanded))
	for i, e := range expanded {
		reserved[i] = e.Name
		g.logger.Debug("Expanded helper", "name", e.Name, "address", e.Address)
	}

	gs, err := getters.Synthesize(seq, getters.Options{ProbeRead: g.cfg.ProbeRead, Reserved: reserved})
	if err != nil {
		return nil, err
	}
	g.logger.Info("Synthesized getters", "count", len(gs), "probe_read", g.cfg.ProbeRead)

	bindingsSrc, err := emit.RenderBindings(layout.BindingsPath(), blanked)
	if err != nil {
		return nil, err
	}
	helpersSrc, err := emit.RenderHelpers(layout, blanked, expanded)
	if err != nil {
		return nil, err
	}
	gettersSrc, err := emit.RenderGetters(layout, blanked, gs)
	if err != nil {
		return nil, err
	}

	return []emit.File{
		{Path: layout.BindingsPath(), Content: bindingsSrc},
		{Path: layout.HelpersPath(), Content: helpersSrc},
		{Path: layout.GettersPath(), Content: gettersSrc},
	}, nil
}

func (g *Generator) bindgen() ([]byte, error) {
	includeArgs, err := bindgen.LibbpfIncludeArgs(g.cfg.LibbpfDir)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Running binding generator", "clang_args", includeArgs)
	return bindgen.NewBuilder().
		Header(g.cfg.HeaderPath()).
		ClangArgs(includeArgs...).
		ClangArgs(g.cfg.Arch.TargetDefine()).
		Whitelist(bindgen.DefaultWhitelist).
		Generate(g.gen)
}
