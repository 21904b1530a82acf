// Package diag provides the VM core's introspection surface: a page-table
// pretty-printer and the event counters that feed it and tests. VMPrint is
// grounded bit-for-bit on xv6-riscv's vmprint (kernel/vm.c), including its
// VA-range reconstruction from the three-level (i, j, k) index triple;
// Counters is grounded on biscuit's stats.Counter_t (biscuit/src/stats/stats.go).
package diag

import (
	"fmt"
	"strings"
	"unsafe"

	"sv39vm/src/mem"
	"sv39vm/src/riscv"
	"sv39vm/src/stats"
)

// counters groups the event counts the VM core maintains. Exported as the
// single package-level Counters so every subsystem increments the same
// instance, mirroring biscuit's convention of a shared stats struct.
type counters struct {
	Maps           stats.Counter_t
	Unmaps         stats.Counter_t
	FaultsResolved stats.Counter_t
	FaultsDenied   stats.Counter_t
	RemapsDenied   stats.Counter_t
}

// Counters is the VM core's shared counter block.
var Counters counters

// String renders every counter, zero or not, empty when stats.Enabled() is
// false, matching Stats2String's zero-cost-when-disabled contract.
func (c *counters) String() string {
	return stats.Stats2String(*c)
}

// VMPrint renders pt the way xv6's vmprint does: one line per valid
// top-level entry, nested one line per valid second-level entry, and for
// each valid leaf PTE a line with its permission bits and the virtual
// address range it covers.
func VMPrint(alloc mem.Allocator, pt *riscv.PageTable, pid int, cmd string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "page table for pid=%d, cmd=%s, @%p\n", pid, cmd, pt)
	for i := 0; i < 512; i++ {
		pgd := pt[i]
		if pgd == 0 {
			continue
		}
		fmt.Fprintf(&b, "..0x%x:\n", i)
		mid := tableAt(alloc, pgd)
		for j := 0; j < 512; j++ {
			pmd := mid[j]
			if pmd == 0 {
				continue
			}
			fmt.Fprintf(&b, ".. ..0x%x:\n", j)
			leaf := tableAt(alloc, pmd)
			for k := 0; k < 512; k++ {
				pte := leaf[k]
				if pte == 0 {
					continue
				}
				lo := ((riscv.Va_t(i)<<9+riscv.Va_t(j))<<9 + riscv.Va_t(k)) << riscv.PGSHIFT
				hi := (((riscv.Va_t(i)<<9+riscv.Va_t(j))<<9+riscv.Va_t(k)+1)<<riscv.PGSHIFT - 1)
				fmt.Fprintf(&b, ".. .. ..0x%x:\t V=%d R=%d W=%d X=%d U=%d VAs=[%#x; %#x]\n",
					k,
					b2i(riscv.IsValid(pte)),
					b2i(pte&riscv.PteR != 0),
					b2i(pte&riscv.PteW != 0),
					b2i(pte&riscv.PteX != 0),
					b2i(pte&riscv.PteU != 0),
					lo, hi)
			}
		}
	}
	return b.String()
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

// tableAt reinterprets the frame backing pte as a PageTable, for read-only
// diagnostic traversal only (unlike pagetable.Walk, it never allocates).
func tableAt(alloc mem.Allocator, pte riscv.Pte_t) *riscv.PageTable {
	pa := riscv.DecodePA(pte)
	return (*riscv.PageTable)(unsafe.Pointer(alloc.Bytes(pa)))
}
