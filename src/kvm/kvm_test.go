package kvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
)

func TestInitMapsDeviceWindows(t *testing.T) {
	alloc := mem.NewSimAllocator(256, 0)
	layout := DefaultLayout(0x80000000, 0x80002000, 0x80100000)

	ks := Init(alloc, layout)

	pa, err := ks.Translate(layout.Uart0)
	require.Zero(t, err)
	require.Equal(t, mem.Pa_t(layout.Uart0), pa)
}

func TestInitMapsKernelText(t *testing.T) {
	alloc := mem.NewSimAllocator(256, 0)
	layout := DefaultLayout(0x80000000, 0x80002000, 0x80100000)
	ks := Init(alloc, layout)

	pa, err := ks.Translate(layout.Kernbase)
	require.Zero(t, err)
	require.Equal(t, mem.Pa_t(layout.Kernbase), pa)
}

func TestInitMapsSecondVirtioWindow(t *testing.T) {
	alloc := mem.NewSimAllocator(256, 0)
	layout := DefaultLayout(0x80000000, 0x80002000, 0x80100000)
	ks := Init(alloc, layout)

	pa, err := ks.Translate(layout.Virtio1)
	require.Zero(t, err)
	require.Equal(t, mem.Pa_t(layout.Virtio1), pa)
}

func TestInitMapsTrampoline(t *testing.T) {
	alloc := mem.NewSimAllocator(256, 0)
	layout := DefaultLayout(0x80000000, 0x80002000, 0x80100000)
	ks := Init(alloc, layout)

	_, err := ks.Translate(layout.Trampoline)
	require.Zero(t, err)

	pte, ok := pagetable.Lookup(alloc, ks.Root, layout.Trampoline)
	require.True(t, ok)
	require.NotZero(t, pte&riscv.PteR)
	require.NotZero(t, pte&riscv.PteX)
}

func TestTranslateUnmappedReturnsErr(t *testing.T) {
	alloc := mem.NewSimAllocator(256, 0)
	layout := DefaultLayout(0x80000000, 0x80002000, 0x80100000)
	ks := Init(alloc, layout)

	_, err := ks.Translate(riscv.Va_t(0x77777000))
	require.NotZero(t, err)
}
