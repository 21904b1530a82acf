// Package uvm manages a single process's address space lifecycle: creating
// it, loading the first program image into it, growing and shrinking it,
// forking it into a child, and tearing it down. Grounded directly on
// xv6-riscv's uvmcreate/uvminit/uvmalloc/uvmdealloc/uvmcopy/uvmfree/
// uvmclear (kernel/vm.c), adapted from raw kalloc/kfree calls to
// mem.Allocator and from panic-on-OOM (uvmcreate) to an explicit error
// return at every point that isn't a genuine invariant violation.
package uvm

import (
	"unsafe"

	"sv39vm/src/defs"
	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
)

// AddressSpace is one process's user address space: its page table, the
// allocator it draws frames from, and its current size in bytes.
type AddressSpace struct {
	Root   *riscv.PageTable
	rootPa mem.Pa_t
	alloc  mem.Allocator
	Sz     riscv.Va_t
}

// Create allocates a fresh, zeroed page table, the Go analog of xv6's
// uvmcreate(). Unlike uvmcreate, which panics on allocation failure because
// xv6 has no recovery path at boot, Create returns ENOMEM: this module's
// callers (e.g. fork) are expected to handle address-space creation
// failing gracefully.
func Create(alloc mem.Allocator) (*AddressSpace, defs.Err_t) {
	pa, ok := alloc.Alloc()
	if !ok {
		return nil, defs.ENOMEM
	}
	root := (*riscv.PageTable)(unsafe.Pointer(alloc.Bytes(pa)))
	return &AddressSpace{Root: root, rootPa: pa, alloc: alloc}, 0
}

// InitFirst loads the very first process's program image into address 0,
// the Go analog of uvminit(). src must be shorter than one page (it panics
// when len(src) >= PGSIZE), matching xv6's "more than a page" invariant for
// the initial process image.
func (as *AddressSpace) InitFirst(src []byte) defs.Err_t {
	if len(src) >= riscv.PGSIZE {
		panic("uvm: initcode larger than a page")
	}
	pa, ok := as.alloc.Alloc()
	if !ok {
		return defs.ENOMEM
	}
	frame := as.alloc.Bytes(pa)
	copy(frame[:], src)
	perm := riscv.PteW | riscv.PteR | riscv.PteX | riscv.PteU
	if err := pagetable.MapPages(as.alloc, as.Root, 0, riscv.PGSIZE, pa, perm); err != 0 {
		as.alloc.Free(pa)
		return err
	}
	as.Sz = riscv.PGSIZE
	return 0
}

// Alloc grows the address space from oldsz to newsz, allocating and mapping
// one frame per new page. On failure it unwinds everything it mapped so
// far by calling Dealloc back down to oldsz, the same rollback uvmalloc
// performs via uvmdealloc before returning 0. It returns the new size (same
// as newsz) on success.
func (as *AddressSpace) Alloc(oldsz, newsz riscv.Va_t) (riscv.Va_t, defs.Err_t) {
	if newsz < oldsz {
		return oldsz, 0
	}
	oldsz = riscv.PGROUNDUP(oldsz)
	perm := riscv.PteW | riscv.PteX | riscv.PteR | riscv.PteU
	for a := oldsz; a < newsz; a += riscv.PGSIZE {
		pa, ok := as.alloc.Alloc()
		if !ok {
			as.Dealloc(a, oldsz)
			return 0, defs.ENOMEM
		}
		if err := pagetable.MapPages(as.alloc, as.Root, a, riscv.PGSIZE, pa, perm); err != 0 {
			as.alloc.Free(pa)
			as.Dealloc(a, oldsz)
			return 0, err
		}
	}
	as.Sz = newsz
	return newsz, 0
}

// Dealloc shrinks the address space from oldsz to newsz, unmapping and
// freeing every page-rounded-up page that no longer belongs, the direct
// translation of uvmdealloc(). newsz need not be smaller than oldsz — if it
// isn't, oldsz is returned unchanged, matching the original's no-op case.
func (as *AddressSpace) Dealloc(oldsz, newsz riscv.Va_t) riscv.Va_t {
	if newsz >= oldsz {
		return oldsz
	}
	newup := riscv.PGROUNDUP(newsz)
	oldup := riscv.PGROUNDUP(oldsz)
	if newup < oldup {
		npages := uint64(oldup-newup) / riscv.PGSIZE
		pagetable.UnmapPages(as.alloc, as.Root, newup, npages, true)
	}
	as.Sz = newsz
	return newsz
}

// Free unmaps and frees every user page up to sz, then tears down the page
// table itself, the Go analog of uvmfree(): uvmunmap followed by freewalk.
func (as *AddressSpace) Free(sz riscv.Va_t) {
	if sz > 0 {
		npages := uint64(riscv.PGROUNDUP(sz)) / riscv.PGSIZE
		pagetable.UnmapPages(as.alloc, as.Root, 0, npages, true)
	}
	pagetable.FreeWalk(as.alloc, as.Root, as.rootPa)
}

// Copy duplicates every mapped page in [0, sz) from this address space into
// dst, allocating a fresh frame and copying its contents for each one —
// the Go analog of uvmcopy(). On failure it unmaps and frees whatever it
// had already copied into dst, matching uvmcopy's err: label.
func (as *AddressSpace) Copy(dst *AddressSpace, sz riscv.Va_t) defs.Err_t {
	var i riscv.Va_t
	for i = 0; i < sz; i += riscv.PGSIZE {
		pte, ok := pagetable.Lookup(as.alloc, as.Root, i)
		if !ok {
			continue
		}
		pa := riscv.DecodePA(pte)
		flags := riscv.Flags(pte)
		npa, ok := dst.alloc.Alloc()
		if !ok {
			dst.unmapPrefix(i)
			return defs.ENOMEM
		}
		copy(dst.alloc.Bytes(npa)[:], as.alloc.Bytes(pa)[:])
		if err := pagetable.MapPages(dst.alloc, dst.Root, i, riscv.PGSIZE, npa, flags); err != 0 {
			dst.alloc.Free(npa)
			dst.unmapPrefix(i)
			return err
		}
	}
	dst.Sz = sz
	return 0
}

func (as *AddressSpace) unmapPrefix(upto riscv.Va_t) {
	if upto == 0 {
		return
	}
	pagetable.UnmapPages(as.alloc, as.Root, 0, uint64(upto)/riscv.PGSIZE, true)
}

// ClearUser marks the PTE at va non-user-accessible without unmapping it,
// the Go analog of uvmclear(). It is used to turn a page into a guard page
// (e.g. beneath a user stack) while keeping the frame allocated. It panics
// if va has no mapping at all, matching uvmclear's panic.
func (as *AddressSpace) ClearUser(va riscv.Va_t) {
	pte, err := pagetable.Walk(as.alloc, as.Root, va, false)
	if err != 0 || pte == nil {
		panic("uvmclear: no mapping")
	}
	*pte &^= riscv.PteU
}
