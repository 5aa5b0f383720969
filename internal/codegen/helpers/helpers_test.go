package helpers

import (
	"bytes"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

const bindings = `package bindings

import "unsafe"

const BPF_ANY = 0

type Bpf_map_def struct {
	Type     uint32
	Key_size uint32
}

var Bpf_map_lookup_elem func(map_ unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer = unsafe.Pointer(uintptr(1))

var Bpf_ktime_get_ns func() uint64 = unsafe.Pointer(uintptr(5))

var Bpf_counter uint64

var Bpf_map_update_elem func(map_ *Bpf_map_def, key unsafe.Pointer, value unsafe.Pointer, flags uint64) int64 = (unsafe.Pointer)(uintptr(0x2))
`

func parse(t *testing.T, src string) *syntax.Sequence {
	t.Helper()
	seq, err := syntax.Parse("bindings.go", []byte(src))
	require.NoError(t, err)
	return seq
}

func render(t *testing.T, codes ...jen.Code) string {
	t.Helper()
	f := jen.NewFile("x86_64")
	for _, c := range codes {
		f.Add(c)
	}
	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	return buf.String()
}

func TestExtract(t *testing.T) {
	seq := parse(t, bindings)

	res := Extract(seq)
	assert.Equal(t, []int{3, 4, 6}, res.Positions)
	require.Len(t, res.Helpers, 3)
	for i, h := range res.Helpers {
		assert.Equal(t, res.Positions[i], h.Position)
		assert.Same(t, seq.At(h.Position).Node(), h.Decl.Node())
	}
	assert.Equal(t, "Bpf_map_lookup_elem", res.Helpers[0].Decl.Name())

	assert.Equal(t, res, Extract(seq), "classification must be deterministic")
}

func TestExtractNoHelpers(t *testing.T) {
	res := Extract(parse(t, "package bindings\n\nvar Bpf_counter uint64\n\nvar Bpf_cb func()\n"))
	assert.Empty(t, res.Positions)
	assert.Empty(t, res.Helpers)
}

func TestExpand(t *testing.T) {
	seq := parse(t, bindings)

	out, err := Expand(seq, Extract(seq).Helpers)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Bpf_map_lookup_elem", out[0].Name)
	assert.Equal(t, uint64(1), out[0].Address)
	assert.Equal(t, "Bpf_ktime_get_ns", out[1].Name)
	assert.Equal(t, uint64(5), out[1].Address)
	assert.Equal(t, "Bpf_map_update_elem", out[2].Name)
	assert.Equal(t, uint64(2), out[2].Address)
	assert.Contains(t, out[2].Refs, "Bpf_map_def")

	src := render(t, out[0].Code, out[1].Code, out[2].Code)
	assert.Contains(t, src, `import "unsafe"`)
	assert.Contains(t, src, `func Bpf_map_lookup_elem(map_ unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer {
	addr := uintptr(1)
	fn := unsafe.Pointer(&addr)
	f := *(*func(unsafe.Pointer, unsafe.Pointer) unsafe.Pointer)(unsafe.Pointer(&fn))
	return f(map_, key)
}`)
	assert.Contains(t, src, `func Bpf_ktime_get_ns() uint64 {
	addr := uintptr(5)
	fn := unsafe.Pointer(&addr)
	f := *(*func() uint64)(unsafe.Pointer(&fn))
	return f()
}`)
	assert.Contains(t, src, "func Bpf_map_update_elem(map_ *Bpf_map_def, key unsafe.Pointer, value unsafe.Pointer, flags uint64) int64 {")
	assert.Contains(t, src, "return f(map_, key, value, flags)")
}

func TestExpandSignatures(t *testing.T) {
	tests := []struct {
		name string
		decl string
		want []string
	}{
		{
			name: "unnamed params",
			decl: "var Bpf_trace func(unsafe.Pointer, uint32) int64 = unsafe.Pointer(uintptr(6))",
			want: []string{
				"func Bpf_trace(arg0 unsafe.Pointer, arg1 uint32) int64 {",
				"return f(arg0, arg1)",
			},
		},
		{
			name: "blank param",
			decl: "var Bpf_trace func(fmt unsafe.Pointer, _ uint32) int64 = unsafe.Pointer(uintptr(6))",
			want: []string{"func Bpf_trace(fmt unsafe.Pointer, arg1 uint32) int64 {"},
		},
		{
			name: "param shadows local",
			decl: "var Bpf_probe func(addr unsafe.Pointer, fn uint32) = unsafe.Pointer(uintptr(4))",
			want: []string{
				"addr1 := uintptr(4)",
				"fn1 := unsafe.Pointer(&addr1)",
				"f := *(*func(unsafe.Pointer, uint32))(unsafe.Pointer(&fn1))",
				"\tf(addr, fn)\n}",
			},
		},
		{
			name: "multiple results",
			decl: "var Bpf_pair func(a, b uint64) (r int64, ok bool) = unsafe.Pointer(uintptr(0x1f))",
			want: []string{
				"func Bpf_pair(a uint64, b uint64) (int64, bool) {",
				"addr := uintptr(31)",
				"return f(a, b)",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := parse(t, "package bindings\n\nimport \"unsafe\"\n\n"+tt.decl+"\n")
			out, err := Expand(seq, Extract(seq).Helpers)
			require.NoError(t, err)
			require.Len(t, out, 1)
			src := render(t, out[0].Code)
			for _, w := range tt.want {
				assert.Contains(t, src, w)
			}
		})
	}
}

func TestExpandUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		decl    string
		wantErr string
	}{
		{name: "variadic", decl: "var Bpf_printk func(fmt unsafe.Pointer, args ...uint64) int64 = unsafe.Pointer(uintptr(6))", wantErr: "variadic"},
		{name: "symbolic address", decl: "var Bpf_x func() = unsafe.Pointer(uintptr(BPF_ANY))", wantErr: "unsupported initializer"},
		{name: "float address", decl: "var Bpf_x func() = unsafe.Pointer(uintptr(1.5))", wantErr: "not an integer"},
		{name: "call address", decl: "var Bpf_x func() = lookup(1, 2)", wantErr: "not a conversion"},
		{name: "unknown package", decl: "var Bpf_x func(v C.int) = unsafe.Pointer(uintptr(1))", wantErr: `unknown package "C"`},
		{name: "channel param", decl: "var Bpf_x func(c chan int) = unsafe.Pointer(uintptr(1))", wantErr: "parameter type"},
		{name: "blank name", decl: "var _ func() = unsafe.Pointer(uintptr(1))", wantErr: "no usable name"},
		{name: "generated arg clash", decl: "var Bpf_x func(_ uint32, arg0 uint32) = unsafe.Pointer(uintptr(1))", wantErr: "duplicate parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := parse(t, "package bindings\n\nimport \"unsafe\"\n\n"+tt.decl+"\n")
			res := Extract(seq)
			require.Len(t, res.Helpers, 1, "declaration must still classify as a helper")

			_, err := Expand(seq, res.Helpers)
			require.Error(t, err)
			assert.ErrorIs(t, err, generror.ErrHelperShapeUnsupported)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestExpandNameCollision(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "duplicate helper",
			src: `var Bpf_x func() = unsafe.Pointer(uintptr(1))

var Bpf_x func() = unsafe.Pointer(uintptr(2))`,
		},
		{
			name: "helper shadows type",
			src: `type Bpf_x struct{}

var Bpf_x func() = unsafe.Pointer(uintptr(1))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := parse(t, "package bindings\n\nimport \"unsafe\"\n\n"+tt.src+"\n")
			_, err := Expand(seq, Extract(seq).Helpers)
			assert.ErrorIs(t, err, generror.ErrNameCollision)
			assert.ErrorContains(t, err, "Bpf_x")
		})
	}
}

func TestExpandEmpty(t *testing.T) {
	seq := parse(t, "package bindings\n")
	out, err := Expand(seq, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
