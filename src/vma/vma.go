// Package vma implements the virtual memory area list and the page-fault
// resolver that turns a fault into an on-demand mapping, grounded directly
// on xv6-riscv's do_allocate and do_allocate_range (kernel/vm.c), with the
// per-process vma_lock discipline modeled on biscuit's Vm_t.Lock_pmap/
// Unlock_pmap (biscuit/src/vm/as.go) and its defence-in-depth re-check
// after reacquiring the lock around a blocking filesystem read.
package vma

import (
	"sync"

	"sv39vm/src/defs"
	"sv39vm/src/diag"
	"sv39vm/src/klog"
	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
)

// FileBackend is the filesystem collaborator a file-backed VMA reads from.
// ReadAt must behave like io.ReaderAt: it may be called without the VMA
// lock held, since it can block on disk I/O.
type FileBackend interface {
	ReadAt(p []byte, off int64) (int, error)
}

// VMA describes one contiguous region of a process's address space: its
// virtual range, the permissions a fault against it must satisfy, and,
// for file-backed regions, where its initial contents come from.
type VMA struct {
	Start riscv.Va_t
	Len   uint64 // bytes, page-rounded by the caller
	Perm  riscv.PermFlags

	File       FileBackend
	FileOffset int64
	FileBytes  int64 // number of bytes backed by File, from FileOffset
}

func (v *VMA) end() riscv.Va_t {
	return v.Start + riscv.Va_t(v.Len)
}

func (v *VMA) covers(va riscv.Va_t) bool {
	return va >= v.Start && va < v.end()
}

// List is the disjoint set of VMAs for one address space, guarded by a
// single mutex exactly like biscuit's Vm_t embeds sync.Mutex to protect
// Vmregion/Pmap together: the VMA list and the page table it feeds must be
// updated atomically with respect to a concurrent fault on the same
// address space.
type List struct {
	mu   sync.Mutex
	vmas []*VMA
}

// Lock and Unlock expose the list's mutex directly so ResolveFault can drop
// it around a blocking file read and the caller can hold it across a
// multi-VMA operation (e.g. Insert followed by a fault it expects to
// satisfy), the same shape as biscuit's exported Lock_pmap/Unlock_pmap.
func (l *List) Lock()   { l.mu.Lock() }
func (l *List) Unlock() { l.mu.Unlock() }

// Insert adds a VMA to the list. The caller must hold the lock.
func (l *List) Insert(v *VMA) {
	l.vmas = append(l.vmas, v)
}

// Find returns the VMA covering va, or nil. The caller must hold the lock.
func (l *List) Find(va riscv.Va_t) *VMA {
	for _, v := range l.vmas {
		if v.covers(va) {
			return v
		}
	}
	return nil
}

// Clear empties the list, used when an address space is torn down.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vmas = nil
}

func permAllows(perm riscv.PermFlags, cause defs.Cause) bool {
	switch cause {
	case defs.CauseRead:
		return perm&riscv.PermR != 0
	case defs.CauseWrite:
		return perm&riscv.PermW != 0
	case defs.CauseExec:
		return perm&riscv.PermX != 0
	default:
		return false
	}
}

func permToPTE(perm riscv.PermFlags) riscv.Pte_t {
	var flags riscv.Pte_t
	if perm&riscv.PermR != 0 {
		flags |= riscv.PteR
	}
	if perm&riscv.PermW != 0 {
		flags |= riscv.PteW
	}
	if perm&riscv.PermX != 0 {
		flags |= riscv.PteX
	}
	return flags | riscv.PteU
}

// ResolveFault resolves a single page fault at addr, the Go analog of
// do_allocate(). The caller must hold list's lock on entry; ResolveFault
// may drop and reacquire it internally while reading a file-backed page,
// and always returns with it held.
//
// If the page is already present, ResolveFault allocates nothing: it
// returns ENOVMA when no VMA covers addr, EBADPERM when the VMA's
// permissions do not allow cause, and success otherwise (two threads racing
// on the same fault is not an error, the same short-circuit do_allocate
// takes when *pte & PTE_V is already set).
func ResolveFault(alloc mem.Allocator, root *riscv.PageTable, list *List, addr riscv.Va_t, cause defs.Cause) defs.Err_t {
	v := list.Find(addr)

	pte, _ := pagetable.Walk(alloc, root, riscv.PGROUNDDOWN(addr), false)
	if pte != nil && riscv.IsValid(*pte) {
		if v == nil {
			return defs.ENOVMA
		}
		if !permAllows(v.Perm, cause) {
			return defs.EBADPERM
		}
		return 0
	}

	if v == nil {
		diag.Counters.FaultsDenied.Inc()
		return defs.ENOVMA
	}
	if !permAllows(v.Perm, cause) {
		diag.Counters.FaultsDenied.Inc()
		return defs.EBADPERM
	}

	pa, ok := alloc.Alloc()
	if !ok {
		return defs.ENOMEM
	}

	va := riscv.PGROUNDDOWN(addr)
	if err := pagetable.MapPages(alloc, root, va, riscv.PGSIZE, pa, permToPTE(v.Perm)); err != 0 {
		alloc.Free(pa)
		return defs.EMAPFAILED
	}
	diag.Counters.FaultsResolved.Inc()
	klog.Logf("vma: fault at %#x resolved (%s)", addr, cause)

	if v.File == nil {
		return 0
	}

	fileStart := v.FileOffset + int64(va-v.Start)
	if fileStart >= v.FileOffset+v.FileBytes {
		return 0
	}
	remainder := v.FileOffset + v.FileBytes - fileStart
	n := int64(riscv.PGSIZE)
	if remainder < n {
		n = remainder
	}

	// The filesystem read can block, so the VMA lock is released around it
	// exactly as do_allocate releases p->vma_lock before load_from_file and
	// reacquires it after: holding a lock across disk I/O would serialize
	// every fault in the process behind one slow read.
	frame := alloc.Bytes(pa)
	list.Unlock()
	_, readErr := v.File.ReadAt(frame[:n], fileStart)
	list.Lock()

	// Defence in depth: re-validate that the mapping we installed is still
	// the one we expect now that the lock has been reacquired. A concurrent
	// Dealloc/Free could have unmapped va while we were blocked in ReadAt.
	pte2, _ := pagetable.Walk(alloc, root, va, false)
	if pte2 == nil || !riscv.IsValid(*pte2) || riscv.DecodePA(*pte2) != pa {
		return defs.ENOFILE
	}
	if readErr != nil {
		return defs.ENOFILE
	}
	return 0
}

// ResolveRange resolves every page in [addr, addr+length), the Go analog of
// do_allocate_range(): it acquires and releases list's lock once per page,
// exactly as the original reacquires p->vma_lock on every loop iteration
// rather than holding it for the whole range.
func ResolveRange(alloc mem.Allocator, root *riscv.PageTable, list *List, addr riscv.Va_t, length uint64, cause defs.Cause) defs.Err_t {
	sup := riscv.PGROUNDUP(addr + riscv.Va_t(length))
	for a := riscv.PGROUNDDOWN(addr); a < sup; a += riscv.PGSIZE {
		list.Lock()
		err := ResolveFault(alloc, root, list, a, cause)
		list.Unlock()
		if err != 0 {
			return err
		}
	}
	return 0
}
