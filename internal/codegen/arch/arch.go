package arch

import (
	"fmt"
	"strings"
)

// Architecture selects the target the bindings are generated for.
type Architecture int

const (
	X86_64 Architecture = iota
	AArch64
	ARMv7
	RISCV64
)

var names = map[Architecture]string{
	X86_64:  "x86_64",
	AArch64: "aarch64",
	ARMv7:   "armv7",
	RISCV64: "riscv64",
}

// libbpf's bpf_tracing.h keys register layouts off __TARGET_ARCH_<x>.
var targetDefines = map[Architecture]string{
	X86_64:  "x86",
	AArch64: "arm64",
	ARMv7:   "arm",
	RISCV64: "riscv",
}

// All returns every supported architecture in declaration order.
func All() []Architecture {
	return []Architecture{X86_64, AArch64, ARMv7, RISCV64}
}

// Names returns the string form of every supported architecture.
func Names() []string {
	out := make([]string, 0, len(names))
	for _, a := range All() {
		out = append(out, a.String())
	}
	return out
}

// String returns the name used for the per-architecture output directory.
func (a Architecture) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("Architecture(%d)", int(a))
}

// TargetDefine returns the preprocessor define passed to clang for a.
func (a Architecture) TargetDefine() string {
	return "-D__TARGET_ARCH_" + targetDefines[a]
}

// Parse accepts the directory name of an architecture, case-insensitively.
func Parse(s string) (Architecture, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, a := range All() {
		if a.String() == want {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unsupported architecture %q (supported: %s)", s, strings.Join(Names(), ", "))
}

// UnmarshalText lets kong and config loaders decode an Architecture directly.
func (a *Architecture) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Architecture) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
