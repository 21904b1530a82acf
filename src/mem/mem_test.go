package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a := NewSimAllocator(4, 0x1000)
	require.Equal(t, 4, a.FreeCount())

	pa, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, 3, a.FreeCount())

	frame := a.Bytes(pa)
	frame[0] = 0xAB
	require.Equal(t, byte(0xAB), a.Bytes(pa)[0])

	a.Free(pa)
	require.Equal(t, 4, a.FreeCount())
}

func TestAllocReturnsZeroedFrame(t *testing.T) {
	a := NewSimAllocator(1, 0)
	pa, ok := a.Alloc()
	require.True(t, ok)
	a.Bytes(pa)[10] = 1
	a.Free(pa)

	pa2, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, pa, pa2)
	require.Equal(t, byte(0), a.Bytes(pa2)[10])
}

func TestAllocExhaustion(t *testing.T) {
	a := NewSimAllocator(1, 0)
	_, ok := a.Alloc()
	require.True(t, ok)

	_, ok = a.Alloc()
	require.False(t, ok)
}

func TestDoubleFreePanics(t *testing.T) {
	a := NewSimAllocator(1, 0)
	pa, _ := a.Alloc()
	a.Free(pa)
	require.Panics(t, func() { a.Free(pa) })
}
