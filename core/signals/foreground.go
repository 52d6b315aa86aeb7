package signals

import "sync/atomic"

// Foreground holds the pid of the external command the interpreter is
// currently waiting on. It is a single atomic word so the signal path can read
// it without taking locks.
type Foreground struct {
	pid atomic.Int64
}

// Set records pid as the foreground child.
func (f *Foreground) Set(pid int) {
	f.pid.Store(int64(pid))
}

// Clear forgets the foreground child.
func (f *Foreground) Clear() {
	f.pid.Store(0)
}

// Get returns the foreground pid and whether one is set.
func (f *Foreground) Get() (int, bool) {
	pid := int(f.pid.Load())
	return pid, pid > 0
}

// Is reports whether pid is the current foreground child.
func (f *Foreground) Is(pid int) bool {
	current, ok := f.Get()
	return ok && current == pid
}
