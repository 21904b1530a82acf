// Package pagetable implements the Sv39 page-table walker and mapping
// engine: installing, looking up, and tearing down PTE chains. It is
// grounded directly on xv6-riscv's kernel/vm.c (walk, mappages, uvmunmap,
// freewalk), translated from pointer arithmetic over kernel-direct-mapped
// memory into operations over mem.Allocator frames.
package pagetable

import (
	"unsafe"

	"sv39vm/src/defs"
	"sv39vm/src/mem"
	"sv39vm/src/riscv"
)

// Walk returns a pointer to the leaf PTE for va in the page table rooted at
// root, allocating intermediate page-table pages from alloc as needed when
// create is true. It returns ENOVMA (not found) if va is out of range,
// mirroring xv6's walk() returning 0 for a virtual address it was never
// meant to see: an out-of-range fault address is a recoverable condition
// for the fault resolver, not a caller bug.
//
// The returned pointer addresses a slot inside one of the tables reachable
// from root; mutating *pte edits the table in place.
func Walk(alloc mem.Allocator, root *riscv.PageTable, va riscv.Va_t, create bool) (*riscv.Pte_t, defs.Err_t) {
	if va >= riscv.MAXVA {
		return nil, defs.ENOVMA
	}
	pt := root
	for level := 2; level > 0; level-- {
		pte := &pt[riscv.PX(level, va)]
		if riscv.IsValid(*pte) {
			pt = tableAt(alloc, riscv.DecodePA(*pte))
			continue
		}
		if !create {
			return nil, defs.ENOVMA
		}
		pa, ok := alloc.Alloc()
		if !ok {
			return nil, defs.ENOMEM
		}
		*pte = riscv.EncodePA(pa) | riscv.PteV
		pt = tableAt(alloc, pa)
	}
	return &pt[riscv.PX(0, va)], 0
}

// tableAt reinterprets a frame's bytes as a PageTable. This stands in for
// xv6's direct map: a frame allocated to hold a page-table page is always
// read back through this cast, never through arbitrary byte access. mem.Page
// and riscv.PageTable are both exactly 4096 bytes, the same unsafe-cast
// trick util.Readn/Writen already use to reinterpret a byte slice in place.
func tableAt(alloc mem.Allocator, pa mem.Pa_t) *riscv.PageTable {
	return (*riscv.PageTable)(unsafe.Pointer(alloc.Bytes(pa)))
}

// MapPages installs leaf PTEs covering the page-aligned range
// [va, va+size) in the page table rooted at root, mapping each virtual page
// to the corresponding physical page starting at pa, with the given
// permission bits. It panics on an attempt to remap an already-valid PTE,
// matching xv6's "remap" panic: double-mapping a page is always a caller
// bug, never a recoverable condition.
func MapPages(alloc mem.Allocator, root *riscv.PageTable, va riscv.Va_t, size uint64, pa mem.Pa_t, perm riscv.Pte_t) defs.Err_t {
	if size == 0 {
		panic("mappages: size == 0")
	}
	a := riscv.PGROUNDDOWN(va)
	last := riscv.PGROUNDDOWN(va + riscv.Va_t(size) - 1)
	for {
		pte, err := Walk(alloc, root, a, true)
		if err != 0 {
			return err
		}
		if riscv.IsValid(*pte) {
			panic("mappages: remap")
		}
		*pte = riscv.EncodePA(pa) | perm | riscv.PteV
		if a == last {
			break
		}
		a += riscv.PGSIZE
		pa += riscv.PGSIZE
	}
	return 0
}

// UnmapPages removes npages leaf mappings starting at va, which must be
// page-aligned, the Go analog of xv6's uvmunmap. A page missing from the
// range entirely, or present but not yet valid, is skipped rather than
// treated as an error: callers such as uvm.Copy's OOM rollback deliberately
// unmap a prefix that may contain holes left by pages the parent never had
// mapped (spec invariant 5 — "skip if missing or invalid", matching
// kernel/vm.c's uvmunmap continuing past a zero walk() or an unset PTE_V).
// Only finding a valid entry that is not a leaf is a caller bug worth
// crashing on, since that means the range wasn't unmapped consistently with
// how it was mapped.
func UnmapPages(alloc mem.Allocator, root *riscv.PageTable, va riscv.Va_t, npages uint64, freeFrames bool) {
	if va%riscv.PGSIZE != 0 {
		panic("uvmunmap: not aligned")
	}
	a := va
	for i := uint64(0); i < npages; i++ {
		pte, err := Walk(alloc, root, a, false)
		if err != 0 || pte == nil || !riscv.IsValid(*pte) {
			a += riscv.PGSIZE
			continue
		}
		if !riscv.IsLeaf(*pte) {
			panic("uvmunmap: not a leaf")
		}
		if freeFrames {
			alloc.Free(riscv.DecodePA(*pte))
		}
		*pte = 0
		a += riscv.PGSIZE
	}
}

// FreeWalk recursively frees every page-table page reachable from pt,
// panicking if it finds a leftover leaf mapping — mirroring xv6's
// freewalk(), which requires the caller to have already unmapped all user
// data pages with UnmapPages before tearing down the table itself.
func FreeWalk(alloc mem.Allocator, pt *riscv.PageTable, pa mem.Pa_t) {
	for i := 0; i < 512; i++ {
		pte := pt[i]
		if !riscv.IsValid(pte) {
			continue
		}
		if riscv.IsIntermediate(pte) {
			child := tableAt(alloc, riscv.DecodePA(pte))
			FreeWalk(alloc, child, riscv.DecodePA(pte))
			pt[i] = 0
			continue
		}
		panic("freewalk: leaf")
	}
	alloc.Free(pa)
}

// Lookup returns the leaf PTE for va without allocating, or ok=false if
// there is no valid leaf for it: both when the intermediate tables are
// missing and when the leaf slot exists but its V bit is clear (a case in
// which Walk would still have returned a pointer).
func Lookup(alloc mem.Allocator, root *riscv.PageTable, va riscv.Va_t) (riscv.Pte_t, bool) {
	pte, err := Walk(alloc, root, va, false)
	if err != 0 || pte == nil || !riscv.IsValid(*pte) {
		return 0, false
	}
	return *pte, true
}
