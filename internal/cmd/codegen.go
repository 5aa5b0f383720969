package cmd

import (
	"log/slog"

	"github.com/Alia5/bpfgen/internal/codegen/arch"
	"github.com/Alia5/bpfgen/internal/codegen/bindgen"
	"github.com/Alia5/bpfgen/internal/codegen/bindgen/libclang"
	"github.com/Alia5/bpfgen/internal/codegen/common"
	"github.com/Alia5/bpfgen/internal/codegen/generator"
	"github.com/Alia5/bpfgen/internal/log"
)

type Codegen struct {
	Arch        arch.Architecture `help:"Target architecture: x86_64, aarch64, armv7 or riscv64" default:"x86_64" env:"BPFGEN_ARCH"`
	LibbpfDir   string            `help:"libbpf source checkout; headers are read from <dir>/src" required:"" type:"existingdir" env:"BPFGEN_LIBBPF_DIR"`
	BindingsDir string            `help:"Directory holding include/bindings.h; output is written to <dir>/<arch>" default:"bpf/bindings" type:"path" env:"BPFGEN_BINDINGS_DIR"`
	ImportPath  string            `help:"Go import path under which the bindings directory is reachable" required:"" env:"BPFGEN_IMPORT_PATH"`
	ProbeRead   common.Symbol     `help:"Fully qualified probe-read function used by getters" default:"github.com/Alia5/bpfgen/bpf/helpers.ProbeRead" env:"BPFGEN_PROBE_READ"`

	gen bindgen.Generator
}

// Run is called by Kong when the codegen command is executed.
func (c *Codegen) Run(logger *slog.Logger, raw log.RawLogger) error {
	logger.Info("Starting bpfgen code generation",
		"arch", c.Arch,
		"libbpf", c.LibbpfDir,
		"bindings", c.BindingsDir)

	gen := c.gen
	if gen == nil {
		gen = libclang.New()
	}
	cfg := generator.Config{
		Arch:        c.Arch,
		LibbpfDir:   c.LibbpfDir,
		BindingsDir: c.BindingsDir,
		ImportPath:  c.ImportPath,
		ProbeRead:   c.ProbeRead,
	}
	return generator.New(cfg, gen, logger, raw).Run()
}
