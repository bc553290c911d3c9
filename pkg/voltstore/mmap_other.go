//go:build !unix

package voltstore

import "os"

// mmapFile is a read-only view of a sorted-run file. On non-unix targets
// (Windows, wasm) there is no portable mmap in golang.org/x/sys available
// to this module, so the whole file is read into memory instead. A
// level-0 run holds about one memtable's worth of entries; a compacted run
// merges several runs and is correspondingly larger.
type mmapFile struct {
	data []byte
}

func mmapOpen(path string) (*mmapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapSortedRun("read sorted run", err)
	}
	return &mmapFile{data: data}, nil
}

func (m *mmapFile) Close() error { return nil }
