//go:build unix

package voltstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile is a read-only memory-mapped view of a sorted-run file.
type mmapFile struct {
	data []byte
}

// mmapOpen maps path read-only for the lifetime of the returned mmapFile.
// Closing mmapFile unmaps it; the backing fd is not needed afterward.
func mmapOpen(path string) (*mmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapSortedRun("open sorted run", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, wrapSortedRun("stat sorted run", err)
	}
	size := info.Size()
	if size == 0 {
		return &mmapFile{data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, wrapSortedRun("mmap sorted run", err)
	}
	return &mmapFile{data: data}, nil
}

func (m *mmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	return unix.Munmap(m.data)
}
