package riscv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sv39vm/src/mem"
)

func TestPXIndexesEachLevel(t *testing.T) {
	va := Va_t(0)
	va |= Va_t(3) << (12 + 9*2)
	va |= Va_t(5) << (12 + 9*1)
	va |= Va_t(7) << (12 + 9*0)

	require.Equal(t, 3, PX(2, va))
	require.Equal(t, 5, PX(1, va))
	require.Equal(t, 7, PX(0, va))
}

func TestRoundingHelpers(t *testing.T) {
	require.Equal(t, Va_t(0), PGROUNDDOWN(100))
	require.Equal(t, Va_t(PGSIZE), PGROUNDUP(100))
	require.Equal(t, Va_t(PGSIZE), PGROUNDDOWN(PGSIZE))
	require.Equal(t, Va_t(PGSIZE), PGROUNDUP(PGSIZE))
}

func TestEncodeDecodePA(t *testing.T) {
	pa := mem.Pa_t(0x1000 * 17)
	pte := EncodePA(pa) | PteV | PteR
	require.Equal(t, pa, DecodePA(pte))
	require.True(t, IsValid(pte))
	require.True(t, IsLeaf(pte))
	require.False(t, IsIntermediate(pte))
}

func TestIsIntermediateVsLeaf(t *testing.T) {
	interior := PteV
	leaf := PteV | PteR | PteW

	require.True(t, IsIntermediate(interior))
	require.False(t, IsLeaf(interior))
	require.False(t, IsIntermediate(leaf))
	require.True(t, IsLeaf(leaf))
}
