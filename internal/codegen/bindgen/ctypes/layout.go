// Package ctypes holds the libclang-independent half of the default binding
// generator: C scalar mapping, struct layout with explicit padding and
// evaluation of object-like macros.
package ctypes

import (
	"fmt"

	"github.com/dave/jennifer/jen"
)

// Int returns the Go integer type of the given byte size.
func Int(size int64, signed bool) (string, error) {
	var name string
	switch size {
	case 1:
		name = "int8"
	case 2:
		name = "int16"
	case 4:
		name = "int32"
	case 8:
		name = "int64"
	default:
		return "", fmt.Errorf("no %d-byte integer type", size)
	}
	if !signed {
		name = "u" + name
	}
	return name, nil
}

// Bytes is the opaque stand-in for values Go cannot express, e.g. __int128.
func Bytes(size int64) jen.Code {
	return jen.Index(jen.Lit(int(size))).Byte()
}

// Field is one member of a C record as laid out by clang.
type Field struct {
	Name string
	Type jen.Code
	// Offset and Size are in bytes. Align is the alignment Go gives Type.
	Offset int64
	Size   int64
	Align  int64
	// BitField members are not emitted; the bytes they occupy become padding.
	BitField bool
}

func (f Field) Code() jen.Code {
	return jen.Id(f.Name).Add(f.Type)
}

// Layout returns the Go fields reproducing clang's layout: fields in order,
// with `_ [n]byte` padding wherever Go's natural placement would diverge
// from the C offset, and trailing padding up to size. A field Go cannot place
// at its C offset (packed records) degrades to a byte array of its size.
func Layout(fields []Field, size int64) []Field {
	var out []Field
	var cur int64
	for _, f := range fields {
		if f.BitField || f.Offset < cur {
			// Overlapping members (bitfields sharing storage) are folded
			// into the surrounding padding.
			continue
		}
		align := max(f.Align, 1)
		if alignUp(cur, align) > f.Offset || f.Offset%align != 0 {
			f.Type = Bytes(f.Size)
			f.Align = 1
		}
		if f.Offset > cur {
			out = append(out, padding(f.Offset-cur))
		}
		out = append(out, f)
		cur = f.Offset + f.Size
	}
	if size > cur {
		out = append(out, padding(size-cur))
	}
	return out
}

func padding(n int64) Field {
	return Field{Name: "_", Type: Bytes(n), Size: n, Align: 1}
}

func alignUp(n, align int64) int64 {
	return (n + align - 1) / align * align
}
