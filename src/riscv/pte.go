// Package riscv encodes the Sv39 hardware page-table format: page-table
// entry bit layout and the virtual-address arithmetic used to index it.
// These are pure functions with no state, grounded on xv6-riscv's
// kernel/riscv.h macros and kept bit-identical to them.
package riscv

import (
	"sv39vm/src/mem"
	"sv39vm/src/util"
)

// Va_t is a 64-bit virtual address.
type Va_t uint64

// Pte_t is a single 64-bit page-table entry.
type Pte_t uint64

// PageTable is one page-table page: 512 PTEs, 4096 bytes.
type PageTable [512]Pte_t

const (
	PteV Pte_t = 1 << 0 // valid
	PteR Pte_t = 1 << 1 // readable
	PteW Pte_t = 1 << 2 // writable
	PteX Pte_t = 1 << 3 // executable
	PteU Pte_t = 1 << 4 // user-accessible
)

// PermFlags mirrors the R/W/X subset of PteR/PteW/PteX used to describe a
// VMA's requested permissions, independent of V/U which the mapping engine
// and fault resolver set themselves.
type PermFlags Pte_t

const (
	PermR PermFlags = PermFlags(PteR)
	PermW PermFlags = PermFlags(PteW)
	PermX PermFlags = PermFlags(PteX)
)

// MAXVA is one bit less than the maximum possible per Sv39, to avoid
// having to sign-extend virtual addresses that have the high bit set.
const MAXVA Va_t = 1 << 38

// PGSIZE, PGSHIFT are re-exported from mem so that callers that only need
// address arithmetic need not import mem directly.
const (
	PGSIZE  = mem.PGSIZE
	PGSHIFT = mem.PGSHIFT
)

const pgOffsetMask Va_t = PGSIZE - 1
const ppnShift = 10
const paShift = 12
const pxMask = 0x1ff
const pxWidthBits = 9

// PGROUNDDOWN rounds va down to the nearest page boundary.
func PGROUNDDOWN(va Va_t) Va_t {
	return util.Rounddown(va, Va_t(PGSIZE))
}

// PGROUNDUP rounds va up to the nearest page boundary.
func PGROUNDUP(va Va_t) Va_t {
	return util.Roundup(va, Va_t(PGSIZE))
}

// PX extracts the 9-bit index for the given page-table level (2, 1, or 0)
// out of a virtual address: PX(level, va) = (va >> (12 + 9*level)) & 0x1ff.
func PX(level int, va Va_t) int {
	shift := uint(paShift + pxWidthBits*level)
	return int((va >> shift) & pxMask)
}

// EncodePA packs a page-aligned physical address into the PPN field of a
// PTE, with no flag bits set.
func EncodePA(pa mem.Pa_t) Pte_t {
	return Pte_t(pa>>paShift) << ppnShift
}

// DecodePA extracts the physical address a PTE's PPN field refers to.
func DecodePA(pte Pte_t) mem.Pa_t {
	return mem.Pa_t(pte>>ppnShift) << paShift
}

// Flags returns the low 10 bits of a PTE (V, R, W, X, U and reserved bits),
// i.e. the PTE with its PPN field masked off.
func Flags(pte Pte_t) Pte_t {
	return pte & ((1 << ppnShift) - 1)
}

// IsValid reports whether the V bit is set.
func IsValid(pte Pte_t) bool {
	return pte&PteV != 0
}

// IsLeaf reports whether the PTE refers to a data page rather than a
// lower-level page-table page: valid, with at least one of R/W/X set.
func IsLeaf(pte Pte_t) bool {
	return pte&PteV != 0 && pte&(PteR|PteW|PteX) != 0
}

// IsIntermediate reports whether the PTE is a valid, non-leaf entry:
// V=1, R=W=X=0.
func IsIntermediate(pte Pte_t) bool {
	return pte&PteV != 0 && pte&(PteR|PteW|PteX) == 0
}
