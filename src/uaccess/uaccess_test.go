package uaccess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sv39vm/src/mem"
	"sv39vm/src/riscv"
	"sv39vm/src/uvm"
	"sv39vm/src/vma"
)

func testAllocator(t *testing.T) mem.Allocator {
	t.Helper()
	return mem.NewSimAllocator(64, 0)
}

func TestCopyOutThenCopyInRoundTrip(t *testing.T) {
	alloc := testAllocator(t)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)
	var list vma.List
	list.Insert(&vma.VMA{Start: 0, Len: 4 * riscv.PGSIZE, Perm: riscv.PermR | riscv.PermW})

	msg := []byte("across two pages of data..........................")
	require.Zero(t, CopyOut(alloc, as.Root, &list, riscv.PGSIZE-20, msg))

	back := make([]byte, len(msg))
	require.Zero(t, CopyIn(alloc, as.Root, &list, back, riscv.PGSIZE-20))
	require.Equal(t, msg, back)
}

func TestCopyInStringStopsAtNUL(t *testing.T) {
	alloc := testAllocator(t)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)
	var list vma.List
	list.Insert(&vma.VMA{Start: 0, Len: riscv.PGSIZE, Perm: riscv.PermR | riscv.PermW})

	payload := append([]byte("hi"), 0, 'X')
	require.Zero(t, CopyOut(alloc, as.Root, &list, 0, payload))

	got, err := CopyInString(alloc, as.Root, &list, 0, 64)
	require.Zero(t, err)
	require.Equal(t, "hi", string(got))
}

func TestCopyInStringTooLong(t *testing.T) {
	alloc := testAllocator(t)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)
	var list vma.List
	list.Insert(&vma.VMA{Start: 0, Len: riscv.PGSIZE, Perm: riscv.PermR | riscv.PermW})

	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = 'a'
	}
	require.Zero(t, CopyOut(alloc, as.Root, &list, 0, payload))

	_, err = CopyInString(alloc, as.Root, &list, 0, 5)
	require.NotZero(t, err)
}
