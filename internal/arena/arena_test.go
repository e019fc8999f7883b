package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cell struct {
	value int
}

func TestAllocUntilExhausted(t *testing.T) {
	p := New[cell](3)
	refs := make([]Ref, 0, 3)
	for i := 0; i < 3; i++ {
		ref, err := p.Alloc()
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	assert.Equal(t, 3, p.Used())

	_, err := p.Alloc()
	assert.ErrorIs(t, err, ErrExhausted)

	// Releasing one cell makes room again.
	require.NoError(t, p.Free(refs[1]))
	ref, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, refs[1], ref)
}

func TestAllocReturnsZeroedCell(t *testing.T) {
	p := New[cell](2)
	ref, err := p.Alloc()
	require.NoError(t, err)
	p.At(ref).value = 42

	require.NoError(t, p.Free(ref))
	again, err := p.Alloc()
	require.NoError(t, err)
	require.Equal(t, ref, again)
	assert.Equal(t, 0, p.At(again).value, "released cells must come back zeroed")
}

func TestDoubleFree(t *testing.T) {
	p := New[cell](2)
	ref, err := p.Alloc()
	require.NoError(t, err)

	require.NoError(t, p.Free(ref))
	assert.ErrorIs(t, p.Free(ref), ErrBadRelease)
	assert.ErrorIs(t, p.Free(Ref(99)), ErrBadRelease)
}

func TestDefaultCapacity(t *testing.T) {
	p := New[cell](0)
	assert.Equal(t, DefaultCapacity, p.Cap())
}
