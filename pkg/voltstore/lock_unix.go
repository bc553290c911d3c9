//go:build unix

package voltstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an advisory, process-exclusive lock on a disk-backed store's
// data directory: Open refuses to run two VoltStores against the same
// DataDir concurrently. Grounded on the teacher's internal/ticket/lock.go
// flock-based fileLock, ported to golang.org/x/sys/unix to match this
// package's existing mmap build-tag split (mmap_unix.go / mmap_other.go).
type fileLock struct {
	file *os.File
}

// acquireLock opens (creating if needed) path and takes a non-blocking
// exclusive flock on it, returning ErrLocked if another process already
// holds it.
func acquireLock(path string) (*fileLock, error) {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return nil, wrapStorage("create lock dir", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, wrapStorage("open lock file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, wrapStorage("acquire data dir lock", ErrLocked)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() {
	if l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
}
