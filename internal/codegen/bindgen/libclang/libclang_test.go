//go:build libclang

package libclang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bpfgen/internal/codegen/bindgen"
	"github.com/Alia5/bpfgen/internal/codegen/helpers"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

func generate(t *testing.T) string {
	t.Helper()
	req := bindgen.Request{
		Header:    filepath.Join("testdata", "include", "bindings.h"),
		ClangArgs: []string{"-D__TARGET_ARCH_x86"},
		Whitelist: bindgen.DefaultWhitelist,
	}
	out, err := New().Generate(req)
	require.NoError(t, err)
	return string(out)
}

func TestGenerateConstants(t *testing.T) {
	src := generate(t)

	assert.Contains(t, src, "const BPF_ANY = 0")
	assert.Contains(t, src, "const BPF_NOEXIST = 1")
	assert.Contains(t, src, "const BPF_F_INDEX_MASK = 4294967295")
	assert.Contains(t, src, "const BPF_F_CURRENT_CPU = 4294967295")
	assert.Contains(t, src, "const BPF_F_NO_PREALLOC = 1")
	assert.Contains(t, src, "const BPF_F_RDONLY = 8")
	assert.NotContains(t, src, "SEC")
	assert.NotContains(t, src, "LICENSE_TEXT")
}

func TestGenerateRecords(t *testing.T) {
	src := generate(t)

	assert.Contains(t, src, "type Bpf_map_def struct {")
	assert.Contains(t, src, "Key_size    uint32")
	assert.Contains(t, src, "type Bpf_map_info struct {")
	assert.Contains(t, src, "Def   *Bpf_map_def")
	assert.Contains(t, src, "Other unsafe.Pointer")
	assert.Contains(t, src, "Name  [16]int8")
	assert.Contains(t, src, "type Union_eight_bytes [8]byte")
	assert.Contains(t, src, "Stats Inner_stats", "records embedded by value are emitted")
	assert.Contains(t, src, "type Inner_stats struct {")
	assert.Contains(t, src, "_     [7]byte", "padding after the leading byte")
}

func TestGenerateHelpers(t *testing.T) {
	src := generate(t)

	assert.Contains(t, src, "var Bpf_map_lookup_elem func(map_ unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer = unsafe.Pointer(uintptr(1))")
	assert.Contains(t, src, "var Bpf_ktime_get_ns func() uint64 = unsafe.Pointer(uintptr(5))")
	assert.Contains(t, src, "var Bpf_trace_printk func(fmt unsafe.Pointer, fmt_size uint32) int64")

	seq, err := syntax.Parse("bindings.go", []byte(src))
	require.NoError(t, err)
	res := helpers.Extract(seq)
	expanded, err := helpers.Expand(seq, res.Helpers)
	require.NoError(t, err)

	var names []string
	for _, e := range expanded {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Bpf_map_lookup_elem", "Bpf_map_update_elem", "Bpf_ktime_get_ns", "Bpf_trace_printk"}, names)
}

func TestGenerateMissingInclude(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "bindings.h")
	require.NoError(t, writeFile(header, "#include <does_not_exist.h>\n"))

	_, err := New().Generate(bindgen.Request{Header: header, Whitelist: bindgen.DefaultWhitelist})
	assert.ErrorContains(t, err, "does_not_exist.h")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
