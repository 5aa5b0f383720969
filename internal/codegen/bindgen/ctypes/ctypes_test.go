package ctypes

import (
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	tests := []struct {
		size   int64
		signed bool
		want   string
	}{
		{1, true, "int8"},
		{1, false, "uint8"},
		{2, false, "uint16"},
		{4, true, "int32"},
		{8, false, "uint64"},
	}
	for _, tt := range tests {
		got, err := Int(tt.size, tt.signed)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Int(16, true)
	assert.ErrorContains(t, err, "no 16-byte integer type")
}

func render(t *testing.T, fields []Field) string {
	t.Helper()
	codes := make([]jen.Code, len(fields))
	for i, f := range fields {
		codes[i] = f.Code()
	}
	return jen.Type().Id("T").Struct(codes...).GoString()
}

func scalar(name, typ string, off, size int64) Field {
	return Field{Name: name, Type: jen.Id(typ), Offset: off, Size: size, Align: size}
}

func TestLayoutNaturalNeedsNoPadding(t *testing.T) {
	got := Layout([]Field{
		scalar("Type", "uint32", 0, 4),
		scalar("Key_size", "uint32", 4, 4),
	}, 8)
	require.Len(t, got, 2)
	assert.Equal(t, "Key_size", got[1].Name)
}

func TestLayoutPadding(t *testing.T) {
	// struct { char a; <7 bytes> u64 b (aligned to 8 on a 32-bit target whose
	// Go alignment is 4); u16 c; <6 bytes tail> }
	b := scalar("B", "uint64", 8, 8)
	b.Align = 4
	got := Layout([]Field{
		scalar("A", "uint8", 0, 1),
		b,
		scalar("C", "uint16", 16, 2),
	}, 24)

	var names []string
	for _, f := range got {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"A", "_", "B", "C", "_"}, names)
	assert.Equal(t, int64(7), got[1].Size)
	assert.Equal(t, int64(6), got[4].Size)

	src := render(t, got)
	assert.Contains(t, src, "_ [7]byte")
	assert.Contains(t, src, "_ [6]byte")
}

func TestLayoutPackedDegradesToBytes(t *testing.T) {
	got := Layout([]Field{
		scalar("A", "uint8", 0, 1),
		scalar("B", "uint32", 1, 4),
	}, 5)
	require.Len(t, got, 2)
	assert.Contains(t, render(t, got), "B [4]byte")
}

func TestLayoutBitFieldsBecomePadding(t *testing.T) {
	bits := scalar("Flags", "uint32", 0, 4)
	bits.BitField = true
	got := Layout([]Field{bits, scalar("Id", "uint32", 4, 4)}, 8)

	require.Len(t, got, 2)
	assert.Equal(t, "_", got[0].Name)
	assert.Equal(t, int64(4), got[0].Size)
	assert.Equal(t, "Id", got[1].Name)
}

func TestConstsEval(t *testing.T) {
	c := NewConsts()
	c.Define("BPF_MAP_TYPE_HASH", 1)

	tests := []struct {
		name, text, want string
	}{
		{"BPF_ANY", "0", "0"},
		{"BPF_F_INDEX_MASK", "0xffffffffULL", "4294967295"},
		{"BPF_F_CURRENT_CPU", "BPF_F_INDEX_MASK", "4294967295"},
		{"BPF_F_USER_STACK", "(1ULL << 8) /* user stack */", "256"},
		{"BPF_F_MARK", "((__u64)1 << 4)", "16"},
		{"BPF_NEG", "(-1)", "-1"},
		{"BPF_FROM_ENUM", "BPF_MAP_TYPE_HASH + 1", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Eval(tt.name, tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, text := range []string{"", `"license"`, "1.5", "__attribute__((section(x)))", "UNKNOWN"} {
		_, ok := c.Eval("X", text)
		assert.False(t, ok, text)
	}
}

func TestMacroBody(t *testing.T) {
	src := []byte("#pragma once\n#define BPF_ANY 0 /* create */\n# define BPF_WIDE \\\n\t(1 << 2)\n#define SEC(name) __attribute__((section(name)))\n")

	got, ok := MacroBody(src, 2, "BPF_ANY")
	require.True(t, ok)
	assert.Equal(t, "0 /* create */", got)

	got, ok = MacroBody(src, 3, "BPF_WIDE")
	require.True(t, ok)
	assert.Equal(t, "(1 << 2)", got)

	_, ok = MacroBody(src, 5, "SEC")
	assert.False(t, ok, "function-like macros are not constants")
	_, ok = MacroBody(src, 1, "BPF_ANY")
	assert.False(t, ok)
	_, ok = MacroBody(src, 99, "BPF_ANY")
	assert.False(t, ok)
}

func TestHelperAddress(t *testing.T) {
	src := []byte("static void *(* const bpf_map_lookup_elem)(void *map, const void *key) = (void *) 1;\n" +
		"static long (* const bpf_probe_read)(void *dst, __u32 size,\n\t\tconst void *unsafe_ptr) = (void *) 0x4;\n" +
		"static int not_a_helper = 3;\n")

	got, ok := HelperAddress(src, 1)
	require.True(t, ok)
	assert.Equal(t, "1", got)

	got, ok = HelperAddress(src, 2)
	require.True(t, ok)
	assert.Equal(t, "0x4", got)

	_, ok = HelperAddress(src, 4)
	assert.False(t, ok)
}
