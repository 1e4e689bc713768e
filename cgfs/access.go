//go:build linux

package cgfs

import "golang.org/x/sys/unix"

// AccessBits is a subset of the read/write/execute bits probed by the
// permission matrix (component §4.3).
type AccessBits uint8

const (
	AccessRead AccessBits = 1 << iota
	AccessWrite
	AccessExecute
)

// Access reports whether the calling process has every bit in want against
// path, using the kernel's access(2) semantics (real uid/gid, not effective).
func Access(path string, want AccessBits) bool {
	var mode uint32
	if want&AccessRead != 0 {
		mode |= unix.R_OK
	}
	if want&AccessWrite != 0 {
		mode |= unix.W_OK
	}
	if want&AccessExecute != 0 {
		mode |= unix.X_OK
	}
	if mode == 0 {
		mode = unix.F_OK
	}
	return unix.Access(path, mode) == nil
}
