// Command vmsim boots a tiny simulated kernel address space, runs a
// simulated first process through allocation, a file-backed fault, and a
// fork, and prints its page table. It exists to exercise the vm core
// end to end the way a real boot sequence would, not as a production tool.
package main

import (
	"flag"
	"fmt"
	"log"

	"sv39vm/src/defs"
	"sv39vm/src/diag"
	"sv39vm/src/fsx"
	"sv39vm/src/klog"
	"sv39vm/src/kvm"
	"sv39vm/src/mem"
	"sv39vm/src/procx"
	"sv39vm/src/riscv"
	"sv39vm/src/stats"
	"sv39vm/src/uaccess"
	"sv39vm/src/uvm"
	"sv39vm/src/vma"
)

func main() {
	frames := flag.Int("frames", 4096, "number of simulated physical frames")
	trace := flag.Bool("trace", false, "print the klog trace ring after running")
	countStats := flag.Bool("stats", false, "enable and print diag counters")
	flag.Parse()

	stats.Enable(*countStats)
	alloc := mem.NewSimAllocator(*frames, 0)

	layout := kvm.DefaultLayout(0x80000000, 0x80010000, riscv.Va_t(0x80000000+*frames*mem.PGSIZE))
	ks := kvm.Init(alloc, layout)
	ks.InitHart(0)

	as, err := uvm.Create(alloc)
	if err != 0 {
		log.Fatalf("uvm.Create: %s", err)
	}
	if err := as.InitFirst([]byte("\x13\x00\x00\x00")); err != 0 {
		log.Fatalf("uvm.InitFirst: %s", err)
	}

	proc := procx.New(1, "init", as)

	fs := fsx.New()
	fs.Create("/init.data", []byte("hello from a file-backed page\n"))
	ino, ferr := fs.Namei("/init.data")
	if ferr != 0 {
		log.Fatalf("namei: %s", ferr)
	}

	proc.Mmap(&vma.VMA{
		Start:      0x10000,
		Len:        riscv.PGSIZE,
		Perm:       riscv.PermR,
		File:       ino,
		FileOffset: 0,
		FileBytes:  ino.Size(),
	})

	proc.LockVMAs()
	if err := vma.ResolveFault(alloc, as.Root, &proc.VMAs, 0x10000, defs.CauseRead); err != 0 {
		proc.UnlockVMAs()
		log.Fatalf("resolve fault: %s", err)
	}
	proc.UnlockVMAs()

	got, gerr := uaccess.CopyInString(alloc, as.Root, &proc.VMAs, 0x10000, 64)
	if gerr != 0 {
		log.Fatalf("copyinstr: %s", gerr)
	}
	fmt.Printf("read from file-backed page: %q\n", string(got))

	child, err := uvm.Create(alloc)
	if err != 0 {
		log.Fatalf("fork uvm.Create: %s", err)
	}
	if err := as.Copy(child, as.Sz); err != 0 {
		log.Fatalf("fork copy: %s", err)
	}

	fmt.Print(diag.VMPrint(alloc, as.Root, proc.Pid, proc.Cmd))
	fmt.Printf("free frames: %d/%d\n", alloc.FreeCount(), alloc.Cap())
	if s := diag.Counters.String(); s != "" {
		fmt.Print(s)
	}

	if *trace {
		for _, line := range klog.Recent(32) {
			fmt.Println(line)
		}
	}
}
