//go:build linux

package cgfs

import (
	"golang.org/x/sys/unix"
)

// LockDir opens the directory at path and takes an advisory exclusive
// flock(2) on it. When block is false and the lock is already held
// elsewhere, LockDir returns (-1, nil) rather than an error — contention is
// an expected, non-exceptional outcome for a non-blocking caller.
func LockDir(path string, block bool) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return -1, err
	}

	flags := unix.LOCK_EX
	if !block {
		flags |= unix.LOCK_NB
	}

	if err := unix.Flock(fd, flags); err != nil {
		_ = unix.Close(fd)
		if !block && err == unix.EWOULDBLOCK {
			return -1, nil
		}
		return -1, err
	}

	return fd, nil
}

// Unlock releases the advisory lock taken by LockDir and closes its
// descriptor. Every exit path that acquires a lock must route through here,
// including error paths, so a lock is never leaked.
func Unlock(fd int) error {
	if fd < 0 {
		return nil
	}
	_ = unix.Flock(fd, unix.LOCK_UN)
	return unix.Close(fd)
}
