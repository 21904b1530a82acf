package vma

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sv39vm/src/defs"
	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
	"sv39vm/src/uvm"
)

type fakeFile struct {
	data []byte
}

func (f *fakeFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, errEOF
	}
	n := copy(p, f.data[off:])
	return n, nil
}

type eofErr struct{}

func (eofErr) Error() string { return "eof" }

var errEOF = eofErr{}

func TestResolveFaultAnonymousNoVMA(t *testing.T) {
	alloc := mem.NewSimAllocator(16, 0)
	as, _ := uvm.Create(alloc)
	var list List

	err := ResolveFault(alloc, as.Root, &list, 0x10000, defs.CauseRead)
	require.Equal(t, defs.ENOVMA, err)
}

func TestResolveFaultDeniesWrongPermission(t *testing.T) {
	alloc := mem.NewSimAllocator(16, 0)
	as, _ := uvm.Create(alloc)
	var list List
	list.Insert(&VMA{Start: 0x10000, Len: riscv.PGSIZE, Perm: riscv.PermR})

	err := ResolveFault(alloc, as.Root, &list, 0x10000, defs.CauseWrite)
	require.Equal(t, defs.EBADPERM, err)
}

func TestResolveFaultAnonymousMapsZeroPage(t *testing.T) {
	alloc := mem.NewSimAllocator(16, 0)
	as, _ := uvm.Create(alloc)
	var list List
	list.Insert(&VMA{Start: 0x10000, Len: riscv.PGSIZE, Perm: riscv.PermR | riscv.PermW})

	err := ResolveFault(alloc, as.Root, &list, 0x10000, defs.CauseWrite)
	require.Zero(t, err)

	// refault on the same page is a no-op success, not a second allocation.
	before := alloc.FreeCount()
	err = ResolveFault(alloc, as.Root, &list, 0x10000, defs.CauseWrite)
	require.Zero(t, err)
	require.Equal(t, before, alloc.FreeCount())
}

func TestResolveFaultFileBackedReadsContent(t *testing.T) {
	alloc := mem.NewSimAllocator(16, 0)
	as, _ := uvm.Create(alloc)
	var list List
	f := &fakeFile{data: []byte("hello world")}
	list.Insert(&VMA{
		Start:      0x20000,
		Len:        riscv.PGSIZE,
		Perm:       riscv.PermR,
		File:       f,
		FileOffset: 0,
		FileBytes:  int64(len(f.data)),
	})

	list.Lock()
	err := ResolveFault(alloc, as.Root, &list, 0x20000, defs.CauseRead)
	list.Unlock()
	require.Zero(t, err)

	pte, ok := pagetable.Lookup(alloc, as.Root, 0x20000)
	require.True(t, ok)
	frame := alloc.Bytes(riscv.DecodePA(pte))
	require.Equal(t, "hello world", string(frame[:len(f.data)]))
}

func TestResolveRangeStopsOnFirstError(t *testing.T) {
	alloc := mem.NewSimAllocator(16, 0)
	as, _ := uvm.Create(alloc)
	var list List
	list.Insert(&VMA{Start: 0, Len: riscv.PGSIZE, Perm: riscv.PermR})

	err := ResolveRange(alloc, as.Root, &list, 0, 2*riscv.PGSIZE, defs.CauseRead)
	require.Equal(t, defs.ENOVMA, err)
}
