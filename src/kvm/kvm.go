// Package kvm builds and activates the kernel's own address space: the
// identity-mapped direct map plus the fixed device windows every hart needs
// before it can take an interrupt. Grounded on xv6-riscv's kvminit/
// kvminithart (kernel/vm.c) for the mapping sequence, and on tamago's
// arm64 MMU bring-up (other_examples/...arm64-mmu.go) for the style of
// enumerating a fixed table of boot-time regions before switching them on.
package kvm

import (
	"unsafe"

	"sv39vm/src/defs"
	"sv39vm/src/klog"
	"sv39vm/src/mem"
	"sv39vm/src/pagetable"
	"sv39vm/src/riscv"
)

// BootLayout enumerates the fixed physical regions the kernel must be able
// to address before any user process exists, the Sv39 analog of xv6's
// hardcoded UART0/VIRTIO0/CLINT/PLIC/KERNBASE/PHYSTOP/TRAMPOLINE constants.
type BootLayout struct {
	Uart0      riscv.Va_t
	Virtio0    riscv.Va_t
	Virtio1    riscv.Va_t
	Clint      riscv.Va_t
	ClintSize  uint64
	Plic       riscv.Va_t
	PlicSize   uint64
	Kernbase   riscv.Va_t
	Etext      riscv.Va_t
	Phystop    riscv.Va_t
	Trampoline riscv.Va_t
}

// DefaultLayout mirrors xv6's memlayout.h constants, scaled to whatever
// physical range the simulation's allocator actually owns. Virtio0/Virtio1
// mirror the original's VIRTION(0)/VIRTION(1) disk windows.
func DefaultLayout(kernbase, etext, phystop riscv.Va_t) BootLayout {
	return BootLayout{
		Uart0:      0x10000000,
		Virtio0:    0x10001000,
		Virtio1:    0x10002000,
		Clint:      0x2000000,
		ClintSize:  0x10000,
		Plic:       0x0c000000,
		PlicSize:   0x400000,
		Kernbase:   kernbase,
		Etext:      etext,
		Phystop:    phystop,
		Trampoline: riscv.MAXVA - riscv.PGSIZE,
	}
}

// KernelSpace is the single, shared page table every hart loads while not
// inside a process: an identity map of physical memory, plus one leaf
// mapping per device window.
type KernelSpace struct {
	Root  *riscv.PageTable
	alloc mem.Allocator
}

// Init constructs the kernel page table described by layout, identity
// mapping RAM from kernbase through phystop, installing one mapping per
// device window, and aliasing the trampoline page at the top of the
// address space (spec §3/§4.D: "trampoline page aliased at TRAMPOLINE,
// highest VA"). It panics on any mapping failure, matching xv6's kvmmap's
// "kvmmap" panic: kernel bring-up has no recovery path.
func Init(alloc mem.Allocator, layout BootLayout) *KernelSpace {
	rootPa, ok := alloc.Alloc()
	if !ok {
		panic("kvm: out of memory during boot")
	}
	root := (*riscv.PageTable)(unsafe.Pointer(alloc.Bytes(rootPa)))
	ks := &KernelSpace{Root: root, alloc: alloc}

	ks.mapOrPanic(layout.Uart0, mem.Pa_t(layout.Uart0), riscv.PGSIZE, riscv.PteR|riscv.PteW)
	ks.mapOrPanic(layout.Virtio0, mem.Pa_t(layout.Virtio0), riscv.PGSIZE, riscv.PteR|riscv.PteW)
	ks.mapOrPanic(layout.Virtio1, mem.Pa_t(layout.Virtio1), riscv.PGSIZE, riscv.PteR|riscv.PteW)
	ks.mapOrPanic(layout.Clint, mem.Pa_t(layout.Clint), layout.ClintSize, riscv.PteR|riscv.PteW)
	ks.mapOrPanic(layout.Plic, mem.Pa_t(layout.Plic), layout.PlicSize, riscv.PteR|riscv.PteW)
	ks.mapOrPanic(layout.Kernbase, mem.Pa_t(layout.Kernbase), uint64(layout.Etext-layout.Kernbase), riscv.PteR|riscv.PteX)
	ks.mapOrPanic(layout.Etext, mem.Pa_t(layout.Etext), uint64(layout.Phystop-layout.Etext), riscv.PteR|riscv.PteW)

	trampolinePa, ok := alloc.Alloc()
	if !ok {
		panic("kvm: out of memory during boot")
	}
	ks.mapOrPanic(layout.Trampoline, trampolinePa, riscv.PGSIZE, riscv.PteR|riscv.PteX)

	klog.Logf("kvm: boot mappings installed, kernbase=%#x phystop=%#x trampoline=%#x", layout.Kernbase, layout.Phystop, layout.Trampoline)
	return ks
}

func (ks *KernelSpace) mapOrPanic(va riscv.Va_t, pa mem.Pa_t, size uint64, perm riscv.Pte_t) {
	if size == 0 {
		return
	}
	if err := pagetable.MapPages(ks.alloc, ks.Root, va, size, pa, perm); err != 0 {
		panic("kvmmap")
	}
}

// InitHart represents a hart adopting this kernel page table, the Sv39
// analog of xv6's kvminithart writing satp and issuing sfence.vma. Here it
// only records the activation in the trace log: there is no real MMU to
// program in a hosted simulation, and no fence or counter is recorded.
func (ks *KernelSpace) InitHart(hartid int) {
	klog.Logf("kvm: hart %d activated kernel page table", hartid)
}

// Translate walks the kernel page table for diagnostic purposes, returning
// the physical address backing va if mapped.
func (ks *KernelSpace) Translate(va riscv.Va_t) (mem.Pa_t, defs.Err_t) {
	pte, ok := pagetable.Lookup(ks.alloc, ks.Root, riscv.PGROUNDDOWN(va))
	if !ok {
		return 0, defs.ENOVMA
	}
	return riscv.DecodePA(pte) + mem.Pa_t(va%riscv.PGSIZE), 0
}
