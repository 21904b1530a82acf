package procx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sv39vm/src/defs"
	"sv39vm/src/fsx"
	"sv39vm/src/mem"
	"sv39vm/src/riscv"
	"sv39vm/src/uvm"
	"sv39vm/src/vma"
)

func TestMmapInsertsUnderLock(t *testing.T) {
	alloc := mem.NewSimAllocator(8, 0)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)

	p := New(1, "init", as)
	p.Mmap(&vma.VMA{Start: 0x1000, Len: riscv.PGSIZE, Perm: riscv.PermR})

	p.LockVMAs()
	found := p.VMAs.Find(0x1000)
	p.UnlockVMAs()

	require.NotNil(t, found)
	require.Equal(t, riscv.Va_t(0x1000), found.Start)
}

func TestAddFileRecordsHandle(t *testing.T) {
	alloc := mem.NewSimAllocator(8, 0)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)

	fs := fsx.New()
	ino := fs.Create("/f", []byte("x"))
	fh := &fsx.FileHandle{Inode: ino, Perms: fsx.FDRead}

	p := New(2, "cat", as)
	p.AddFile(3, fh)

	require.Same(t, fh, p.Files[3])
}

func TestErrFormatsPidCmdAndCode(t *testing.T) {
	alloc := mem.NewSimAllocator(8, 0)
	as, err := uvm.Create(alloc)
	require.Zero(t, err)

	p := New(42, "sh", as)
	e := p.Err("mmap", defs.ENOMEM)

	require.Contains(t, e.Error(), "pid=42")
	require.Contains(t, e.Error(), "cmd=sh")
	require.Contains(t, e.Error(), "ENOMEM")
}
