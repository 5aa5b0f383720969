package generror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/bpfgen/internal/codegen/generror"
)

func TestErrorMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     generror.Kind
		message  string
	}{
		{
			name:     "generator failure keeps cause",
			err:      generror.GeneratorFailure("bindings.h", errors.New("clang exploded")),
			sentinel: generror.ErrGeneratorFailure,
			kind:     generror.KindGeneratorFailure,
			message:  "generator failure (bindings.h): clang exploded",
		},
		{
			name:     "helper shape names the declaration",
			err:      generror.HelperShapeUnsupported("Bpf_trace_printk", "variadic parameter %q", "args"),
			sentinel: generror.ErrHelperShapeUnsupported,
			kind:     generror.KindHelperShapeUnsupported,
			message:  `helper shape unsupported in "Bpf_trace_printk": variadic parameter "args"`,
		},
		{
			name:     "wrapped collision still matches",
			err:      fmt.Errorf("synthesize getters: %w", generror.NameCollision("Bpf_map_def_Type", "already declared")),
			sentinel: generror.ErrNameCollision,
			kind:     generror.KindNameCollision,
			message:  `synthesize getters: name collision in "Bpf_map_def_Type": already declared`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, generror.KindOf(tt.err))
			assert.EqualError(t, tt.err, tt.message)
			assert.NotErrorIs(t, tt.err, generror.ErrWriteFailure)
		})
	}
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, generror.Kind(0), generror.KindOf(errors.New("plain")))
	assert.Equal(t, "unknown failure", generror.Kind(0).String())
}
