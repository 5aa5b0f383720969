package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
)

const source = `package bindings

import "unsafe"

const BPF_ANY = 0

const (
	BPF_NOEXIST = 1
	BPF_EXIST   = 2
)

type Bpf_map_def struct {
	Type     uint32
	Key_size uint32
}

type Union_four_bytes [4]byte

var Bpf_map_lookup_elem func(map_ unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer = unsafe.Pointer(uintptr(1))

var Bpf_plain func()

func init() {}

func (d *Bpf_map_def) Size() uint32 { return d.Key_size }
`

func TestParseClassifiesEverySlot(t *testing.T) {
	seq, err := Parse("bindings.go", []byte(source))
	require.NoError(t, err)

	type want struct {
		category Category
		shape    Shape
		name     string
	}
	expected := []want{
		{CategoryImport, ShapeImport, ""},
		{CategoryConst, ShapeValue, "BPF_ANY"},
		{CategoryConst, ShapeOpaque, ""},
		{CategoryType, ShapeStruct, "Bpf_map_def"},
		{CategoryType, ShapeNamedType, "Union_four_bytes"},
		{CategoryVar, ShapeFuncPointer, "Bpf_map_lookup_elem"},
		{CategoryVar, ShapeValue, "Bpf_plain"},
		{CategoryFunc, ShapeFunction, "init"},
		{CategoryFunc, ShapeFunction, ""},
	}

	require.Equal(t, len(expected), seq.Len())
	for i, w := range expected {
		d := seq.At(i)
		assert.Equal(t, w.category, d.Category(), "slot %d", i)
		assert.Equal(t, w.shape, d.Shape(), "slot %d", i)
		assert.Equal(t, w.name, d.Name(), "slot %d", i)
	}

	assert.Equal(t, "bindings", seq.Package())
	assert.Equal(t, []string{
		"BPF_ANY", "BPF_NOEXIST", "BPF_EXIST", "Bpf_map_def", "Union_four_bytes",
		"Bpf_map_lookup_elem", "Bpf_plain",
	}, seq.DeclaredNames())

	p, ok := seq.ImportPath("unsafe")
	assert.True(t, ok)
	assert.Equal(t, "unsafe", p)
}

func TestParseFailure(t *testing.T) {
	_, err := Parse("broken.go", []byte("package bindings\n\ntype struct {"))
	require.Error(t, err)
	assert.ErrorIs(t, err, generror.ErrParseFailure)
	assert.ErrorContains(t, err, "broken.go")
}

func TestBlankPreservesPositions(t *testing.T) {
	seq, err := Parse("bindings.go", []byte(source))
	require.NoError(t, err)

	blanked, err := seq.Blank([]int{5, 1})
	require.NoError(t, err)

	assert.Equal(t, seq.Len(), blanked.Len())
	for i := 0; i < seq.Len(); i++ {
		if i == 1 || i == 5 {
			assert.Equal(t, Empty, blanked.At(i))
			assert.Nil(t, blanked.At(i).Node())
			assert.NotEqual(t, CategoryEmpty, seq.At(i).Category(), "original slot %d must survive", i)
			continue
		}
		assert.Equal(t, seq.At(i), blanked.At(i))
	}
	assert.NotContains(t, blanked.DeclaredNames(), "Bpf_map_lookup_elem")
}

func TestBlankRejectsBadPositions(t *testing.T) {
	seq, err := Parse("bindings.go", []byte(source))
	require.NoError(t, err)

	_, err = seq.Blank([]int{seq.Len()})
	assert.ErrorContains(t, err, "out of range")

	_, err = seq.Blank([]int{-1})
	assert.ErrorContains(t, err, "out of range")

	_, err = seq.Blank([]int{2, 2})
	assert.ErrorContains(t, err, "given twice")
}

func TestEmptySource(t *testing.T) {
	seq, err := Parse("bindings.go", []byte("package bindings\n"))
	require.NoError(t, err)
	assert.Zero(t, seq.Len())
	assert.Empty(t, seq.DeclaredNames())
}
