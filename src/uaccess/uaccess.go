// Package uaccess copies bytes between kernel memory and user virtual
// addresses, resolving each destination page through the VMA fault
// resolver before touching it. Grounded directly on xv6-riscv's copyout,
// copyin, and copyinstr (kernel/vm.c), which each call do_allocate_range
// (or do_allocate per-page, for copyinstr) before translating and copying.
package uaccess

import (
	"sv39vm/src/defs"
	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
	"sv39vm/src/vma"
)

// CopyOut copies src into the user address space rooted at root, starting
// at dstva, the Go analog of copyout(): it first resolves every
// destination page as a write fault, then copies page by page.
func CopyOut(alloc mem.Allocator, root *riscv.PageTable, list *vma.List, dstva riscv.Va_t, src []byte) defs.Err_t {
	if err := vma.ResolveRange(alloc, root, list, dstva, uint64(len(src)), defs.CauseWrite); err != 0 {
		return err
	}
	for len(src) > 0 {
		va0 := riscv.PGROUNDDOWN(dstva)
		pte, ok := pagetable.Lookup(alloc, root, va0)
		if !ok {
			return defs.ENOVMA
		}
		pa0 := riscv.DecodePA(pte)
		off := dstva - va0
		n := riscv.Va_t(riscv.PGSIZE) - off
		if n > riscv.Va_t(len(src)) {
			n = riscv.Va_t(len(src))
		}
		frame := alloc.Bytes(pa0)
		copy(frame[off:off+n], src[:n])
		src = src[n:]
		dstva = va0 + riscv.PGSIZE
	}
	return 0
}

// CopyIn copies len(dst) bytes from the user address space rooted at root,
// starting at srcva, into dst, the Go analog of copyin(): it first
// resolves every source page as a read fault, then copies page by page.
func CopyIn(alloc mem.Allocator, root *riscv.PageTable, list *vma.List, dst []byte, srcva riscv.Va_t) defs.Err_t {
	if err := vma.ResolveRange(alloc, root, list, srcva, uint64(len(dst)), defs.CauseRead); err != 0 {
		return err
	}
	for len(dst) > 0 {
		va0 := riscv.PGROUNDDOWN(srcva)
		pte, ok := pagetable.Lookup(alloc, root, va0)
		if !ok {
			return defs.ENOVMA
		}
		pa0 := riscv.DecodePA(pte)
		off := srcva - va0
		n := riscv.Va_t(riscv.PGSIZE) - off
		if n > riscv.Va_t(len(dst)) {
			n = riscv.Va_t(len(dst))
		}
		frame := alloc.Bytes(pa0)
		copy(dst[:n], frame[off:off+n])
		dst = dst[n:]
		srcva = va0 + riscv.PGSIZE
	}
	return 0
}

// CopyInString copies a NUL-terminated string from srcva into dst, up to
// max bytes, the Go analog of copyinstr(). It resolves one page at a time
// (rather than the whole range up front) because the string's length
// isn't known ahead of the terminating NUL. It takes list's lock once and
// holds it for the whole scan; ResolveFault drops it only around a
// file-backed read. It returns the copied bytes, excluding the NUL, and an
// error.
func CopyInString(alloc mem.Allocator, root *riscv.PageTable, list *vma.List, srcva riscv.Va_t, max int) ([]byte, defs.Err_t) {
	if max < 0 {
		return nil, 0
	}
	list.Lock()
	defer list.Unlock()

	var out []byte
	for max > 0 {
		va0 := riscv.PGROUNDDOWN(srcva)
		if err := vma.ResolveFault(alloc, root, list, va0, defs.CauseRead); err != 0 {
			return nil, err
		}
		pte, ok := pagetable.Lookup(alloc, root, va0)
		if !ok {
			return nil, defs.ENOVMA
		}
		pa0 := riscv.DecodePA(pte)
		off := srcva - va0
		n := riscv.Va_t(riscv.PGSIZE) - off
		if int(n) > max {
			n = riscv.Va_t(max)
		}
		frame := alloc.Bytes(pa0)
		for i := riscv.Va_t(0); i < n; i++ {
			c := frame[off+i]
			if c == 0 {
				return out, 0
			}
			out = append(out, c)
		}
		max -= int(n)
		srcva = va0 + riscv.PGSIZE
	}
	return nil, defs.ETOOLONG
}
