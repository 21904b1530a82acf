// Package mem models the physical frame allocator that the VM core treats
// as an external collaborator (spec.md §6): alloc_frame/free_frame,
// returning page-aligned zeroable frames. It is grounded on biscuit's
// mem.Physmem_t free list (biscuit/src/mem/mem.go), stripped of the x86
// direct-map/refcounting/COW machinery that package needs and this one's
// Non-goals exclude.
//
// This is a hosted simulation, not a bare-metal allocator: "physical
// memory" here is ordinary Go-heap storage, and a Pa_t is an opaque handle
// this package mints, not a real bus address.
package mem

import (
	"sync"

	"sv39vm/src/oommsg"
)

// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE = 1 << PGSHIFT

// Pa_t is a physical address: an opaque frame handle minted by Allocator.
type Pa_t uintptr

// Page is the byte contents of one physical page.
type Page [PGSIZE]byte

// Allocator is the frame allocator external collaborator.
type Allocator interface {
	// Alloc returns one zero-filled, page-aligned frame, or false if none
	// are available.
	Alloc() (Pa_t, bool)
	// Free returns a frame previously obtained from Alloc. Freeing an
	// address not currently allocated is a programming error.
	Free(Pa_t)
	// Bytes returns the direct-mapped contents of the frame at pa, the
	// simulation's stand-in for a kernel direct map.
	Bytes(pa Pa_t) *Page
}

type slot struct {
	page Page
	used bool
}

// SimAllocator is a free-list-based Allocator, grounded on Physmem_t's
// freei/nexti free list (biscuit/src/mem/mem.go), without the per-CPU free
// lists or reference counting that package uses for copy-on-write: this
// module's Non-goals exclude COW and shared memory, so every frame has
// exactly one owner and a plain free list suffices.
type SimAllocator struct {
	mu       sync.Mutex
	slots    []slot
	freeList []int // indices of free slots, used as a stack
	base     Pa_t
}

// NewSimAllocator creates a pool of n frames. base is the address of the
// first frame; successive frames are PGSIZE apart, mirroring a real
// physical address range.
func NewSimAllocator(n int, base Pa_t) *SimAllocator {
	a := &SimAllocator{
		slots:    make([]slot, n),
		freeList: make([]int, n),
		base:     base,
	}
	for i := range a.freeList {
		a.freeList[i] = n - 1 - i
	}
	return a
}

func (a *SimAllocator) indexOf(pa Pa_t) int {
	return int((pa - a.base) / PGSIZE)
}

// Alloc implements Allocator.
func (a *SimAllocator) Alloc() (Pa_t, bool) {
	a.mu.Lock()
	if len(a.freeList) == 0 {
		a.mu.Unlock()
		oommsg.Notify(1)
		return 0, false
	}
	idx := a.freeList[len(a.freeList)-1]
	a.freeList = a.freeList[:len(a.freeList)-1]
	a.slots[idx].used = true
	a.slots[idx].page = Page{}
	a.mu.Unlock()
	return a.base + Pa_t(idx*PGSIZE), true
}

// Free implements Allocator.
func (a *SimAllocator) Free(pa Pa_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.indexOf(pa)
	if idx < 0 || idx >= len(a.slots) || !a.slots[idx].used {
		panic("mem: double free or invalid frame")
	}
	a.slots[idx].used = false
	a.freeList = append(a.freeList, idx)
}

// Bytes implements Allocator.
func (a *SimAllocator) Bytes(pa Pa_t) *Page {
	idx := a.indexOf(pa)
	if idx < 0 || idx >= len(a.slots) || !a.slots[idx].used {
		panic("mem: access to unallocated frame")
	}
	return &a.slots[idx].page
}

// FreeCount reports the number of frames currently available, used by
// tests to assert frame-count deltas around map/unmap/fault paths.
func (a *SimAllocator) FreeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.freeList)
}

// Cap reports the total number of frames in the pool.
func (a *SimAllocator) Cap() int {
	return len(a.slots)
}
