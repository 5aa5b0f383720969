// Package helpers finds the helper declarations in generated bindings and
// expands each into a callable wrapper.
//
// A helper is a kernel function the binding generator can only express as a
// function-typed variable initialised with the helper's numeric address:
//
//	var Bpf_map_lookup_elem func(map_ unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer = unsafe.Pointer(uintptr(1))
//
// The variable itself is unusable in a BPF program, so its slot is blanked in
// the bindings file and a plain function with the same name and signature is
// emitted instead.
package helpers

import (
	"github.com/Alia5/bpfgen/internal/codegen/syntax"
)

// Helper is a helper declaration together with its slot in the sequence.
type Helper struct {
	Position int
	Decl     syntax.Decl
}

// Result lists the helper positions in ascending order and the helpers
// themselves in the same order.
type Result struct {
	Positions []int
	Helpers   []Helper
}

// IsHelper is the classification rule: a single function-typed variable with
// exactly one initializer.
func IsHelper(d syntax.Decl) bool {
	return d.Category() == syntax.CategoryVar && d.Shape() == syntax.ShapeFuncPointer
}

// Extract visits every slot once, in order.
func Extract(seq *syntax.Sequence) Result {
	var res Result
	for i := 0; i < seq.Len(); i++ {
		d := seq.At(i)
		if !IsHelper(d) {
			continue
		}
		res.Positions = append(res.Positions, i)
		res.Helpers = append(res.Helpers, Helper{Position: i, Decl: d})
	}
	return res
}
