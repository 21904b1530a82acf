// Package oommsg lets the frame allocator notify an out-of-memory daemon
// that it is running low, without the allocator itself knowing who (if
// anyone) is listening.
package oommsg

// Oommsg_t is sent on OomCh when memory is exhausted. Need is the number of
// frames the caller was unable to obtain; Resume, if non-nil, is closed by
// the daemon once it believes frames have been freed and the caller may
// retry.
type Oommsg_t struct {
	Need   int
	Resume chan bool
}

// OomCh is notified by mem.SimAllocator whenever Alloc fails. Sends are
// best-effort: with no daemon listening, Notify drops the message rather
// than blocking the allocator's caller.
var OomCh chan Oommsg_t = make(chan Oommsg_t)

// Notify performs the best-effort, non-blocking send described above.
func Notify(need int) {
	select {
	case OomCh <- Oommsg_t{Need: need}:
	default:
	}
}
