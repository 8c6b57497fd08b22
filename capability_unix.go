//go:build unix

package recdb

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockWrite acquires a non-blocking advisory exclusive lock on f, turning
// the single-writer contract into something enforced rather than merely
// documented. Two processes racing to open the same database file for
// writing get ErrLocked instead of silent corruption.
func lockWrite(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrLocked
		}
		return ioErr("flock", err)
	}
	return nil
}

func lockUnlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return ioErr("funlock", err)
	}
	return nil
}
