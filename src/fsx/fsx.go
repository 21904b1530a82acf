// Package fsx is the filesystem external collaborator the VMA fault
// resolver reads file-backed pages through, and the file-descriptor layer
// a process uses to open them. It supersedes the on-disk block/superblock
// layout of the teacher's fs package and its FUSE host shim (ufs): a
// demand-paging core only needs a ReadAt-shaped source of bytes per file,
// not a full disk image, so fsx keeps an in-memory table of named files
// (grounded on the shape of biscuit's fd.Fd_t/Cwd_t, biscuit/src/fd/fd.go)
// and caches path lookups with the adapted hashtable.Hashtable_t
// (biscuit/src/hashtable/hashtable.go, see src/hashtable/hashtable.go).
package fsx

import (
	"sync"

	"sv39vm/src/defs"
	"sv39vm/src/hashtable"
	"sv39vm/src/stat"
)

// File descriptor permission bits, grounded on fd.Fd_t's FD_READ/FD_WRITE/
// FD_CLOEXEC constants.
const (
	FDRead    = 0x1
	FDWrite   = 0x2
	FDCloexec = 0x4
)

// Inode holds one file's contents. A real kernel would back this with disk
// blocks and a buffer cache; this simulation keeps it as one contiguous
// byte slice, which is all a file-backed VMA ever reads from.
//
// Dev is non-zero for a device node, encoded with defs.Mkdev the same way
// the kernel's directory entries encode /dev/console, /dev/null, etc.;
// regular files leave it zero.
type Inode struct {
	mu   sync.RWMutex
	data []byte
	Dev  uint
}

// IsDevice reports whether this inode is a device node rather than a
// regular file.
func (ino *Inode) IsDevice() bool {
	return ino.Dev != 0
}

// ReadAt implements vma.FileBackend: reads never grow the file, and a read
// that reaches past EOF returns a short count together with the non-nil
// errEOF, as io.ReaderAt does for n < len(p).
func (ino *Inode) ReadAt(p []byte, off int64) (int, error) {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	if off < 0 || off >= int64(len(ino.data)) {
		return 0, errEOF
	}
	n := copy(p, ino.data[off:])
	if n < len(p) {
		return n, errEOF
	}
	return n, nil
}

// WriteAt overwrites file content starting at off, growing the inode if
// needed.
func (ino *Inode) WriteAt(p []byte, off int64) {
	ino.mu.Lock()
	defer ino.mu.Unlock()
	need := off + int64(len(p))
	if need > int64(len(ino.data)) {
		grown := make([]byte, need)
		copy(grown, ino.data)
		ino.data = grown
	}
	copy(ino.data[off:], p)
}

// Size returns the current file length.
func (ino *Inode) Size() int64 {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	return int64(len(ino.data))
}

// Stat fills in a stat.Stat_t describing this inode, the Go analog of
// stati() populating a struct stat from an in-memory inode.
func (ino *Inode) Stat(st *stat.Stat_t) {
	st.Wsize(uint(ino.Size()))
	st.Wmode(0644)
}

var errEOF = &fsError{"fsx: read past end of file"}

type fsError struct{ s string }

func (e *fsError) Error() string { return e.s }

// FS is an in-memory filesystem: a flat namespace of paths to inodes, with
// a lock-free lookup cache in front of it, the Go analog of xv6's
// namei()+ilock() pair (kernel/vm.c's load_from_file calls both before
// readi()).
type FS struct {
	mu    sync.Mutex
	files map[string]*Inode
	cache *hashtable.Hashtable_t
}

// New creates an empty filesystem.
func New() *FS {
	return &FS{
		files: make(map[string]*Inode),
		cache: hashtable.MkHash(64),
	}
}

// Create adds a new file at path with the given initial contents,
// replacing any existing file there.
func (fs *FS) Create(path string, contents []byte) *Inode {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ino := &Inode{data: append([]byte(nil), contents...)}
	if _, ok := fs.files[path]; ok {
		fs.cache.Del(path)
	}
	fs.files[path] = ino
	fs.cache.Set(path, ino)
	return ino
}

// CreateDevice adds a device node at path, encoding major/minor with
// defs.Mkdev the way the kernel's device directory entries do. Device
// inodes hold no file-backed-VMA content of their own; fsx.Open still
// returns a FileHandle for them so callers can distinguish a device fd
// from a regular one via Inode.IsDevice.
func (fs *FS) CreateDevice(path string, major, minor int) *Inode {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	ino := &Inode{Dev: defs.Mkdev(major, minor)}
	fs.files[path] = ino
	fs.cache.Set(path, ino)
	return ino
}

// Namei resolves path to its inode, the Go analog of namei()+ilock():
// cache hits skip the path-walk entirely, just as a real inode cache would.
func (fs *FS) Namei(path string) (*Inode, defs.Err_t) {
	if v, ok := fs.cache.Get(path); ok {
		return v.(*Inode), 0
	}
	fs.mu.Lock()
	ino, ok := fs.files[path]
	fs.mu.Unlock()
	if !ok {
		return nil, defs.ENOFILE
	}
	fs.cache.Set(path, ino)
	return ino, 0
}

// FileHandle is an open file descriptor, the Go analog of fd.Fd_t, minus
// the Fdops_i indirection biscuit uses to support pipes/sockets/devices
// through the same type: a FileHandle always wraps an Inode, whether a
// regular file or a device node (see Inode.IsDevice).
type FileHandle struct {
	Inode *Inode
	Perms int
}

// Open resolves path via Namei and returns a FileHandle for it.
func (fs *FS) Open(path string, perms int) (*FileHandle, defs.Err_t) {
	ino, err := fs.Namei(path)
	if err != 0 {
		return nil, err
	}
	return &FileHandle{Inode: ino, Perms: perms}, 0
}
