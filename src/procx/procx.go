// Package procx is the process/scheduler external collaborator: it ties
// together one process's address space, its VMA list, and its open file
// table, and is the thing that receives oommsg notifications when the
// frame allocator runs dry. Grounded on biscuit's Vm_t, whose exported
// Lock_pmap/Unlock_pmap naming this package's LockVMAs/UnlockVMAs mirror
// (biscuit/src/vm/as.go), adapted from a single struct owning pmap+vmregion
// together to one owning uvm.AddressSpace+vma.List together, since those
// are exactly the two structures that must move in lockstep across a
// fault.
package procx

import (
	"strconv"

	"sv39vm/src/defs"
	"sv39vm/src/fsx"
	"sv39vm/src/oommsg"
	"sv39vm/src/uvm"
	"sv39vm/src/vma"
)

// Proc is one simulated process: its address space, its VMA list, and its
// open files.
type Proc struct {
	Pid   int
	Cmd   string
	As    *uvm.AddressSpace
	VMAs  vma.List
	Files map[int]*fsx.FileHandle
}

// New wraps an already-created address space as a process.
func New(pid int, cmd string, as *uvm.AddressSpace) *Proc {
	return &Proc{
		Pid:   pid,
		Cmd:   cmd,
		As:    as,
		Files: make(map[int]*fsx.FileHandle),
	}
}

// LockVMAs and UnlockVMAs expose the process's vma.List lock under the
// same names biscuit gives the pmap lock, since here the VMA list is the
// lock that must be held across a fault resolution.
func (p *Proc) LockVMAs()   { p.VMAs.Lock() }
func (p *Proc) UnlockVMAs() { p.VMAs.Unlock() }

// Mmap adds a VMA to the process, the Go analog of biscuit's
// Vmadd_anon/Vmadd_file: anonymous when file is nil, file-backed otherwise.
func (p *Proc) Mmap(v *vma.VMA) {
	p.LockVMAs()
	defer p.UnlockVMAs()
	p.VMAs.Insert(v)
}

// AddFile installs an open FileHandle under the given descriptor number.
func (p *Proc) AddFile(fdnum int, fh *fsx.FileHandle) {
	p.Files[fdnum] = fh
}

// WaitOOM blocks until the allocator reports memory pressure, then returns
// the notification, whose Need field says how many frames were needed.
// Intended for a background daemon goroutine,
// mirroring the consumer side of biscuit's oommsg channel.
func WaitOOM() oommsg.Oommsg_t {
	return <-oommsg.OomCh
}

// Err renders err using the process's pid/cmd, the shape every VM-core
// error ends up logged with.
func (p *Proc) Err(op string, err defs.Err_t) error {
	return &procErr{pid: p.Pid, cmd: p.Cmd, op: op, err: err}
}

type procErr struct {
	pid int
	cmd string
	op  string
	err defs.Err_t
}

func (e *procErr) Error() string {
	return e.op + ": pid=" + strconv.Itoa(e.pid) + " cmd=" + e.cmd + ": " + e.err.String()
}
