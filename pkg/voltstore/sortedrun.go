package voltstore

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/voltxa/voltdb/pkg/bloom"
)

var sortedRunMagic = [4]byte{'V', 'X', 'S', 'R'}

const sortedRunVersion = 1
const sortedRunHeaderSize = 16 // magic(4) + version(4) + entry_count(4) + bloom_len(4)
const sortedRunIndexEntrySize = 17

type indexEntry struct {
	frameID       uint64
	dataOffset    uint32
	dataLength    uint32
	decayLevelTag uint8
}

// sortedRun is one immutable, sorted, bloom-filtered on-disk file of
// frame entries: magic header, bloom filter region, a sorted (by frame
// id) index region of fixed-width entries, then the raw frame-entry
// payload region the index points into. Read via mmap; see mmap_unix.go
// / mmap_other.go.
type sortedRun struct {
	path    string
	level   int
	runID   int
	mm      *mmapFile
	bloom   *bloom.Filter
	index   []indexEntry // sorted ascending by frameID
	dataOff int          // byte offset of the data region within mm.data
}

// writeSortedRun serializes entries (already deduplicated, newest wins)
// to path as a new sorted run and opens it for reading.
func writeSortedRun(path string, level, runID int, entries map[uint64]*FrameEntry, fpr float64) (*sortedRun, error) {
	ids := make([]uint64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bf := bloom.New(uint64(len(ids)), fpr)
	idx := make([]indexEntry, 0, len(ids))
	var dataRegion []byte
	for _, id := range ids {
		bf.Insert(id)
		payload, err := entries[id].ToBinary()
		if err != nil {
			return nil, wrapSortedRun("encode frame entry", err)
		}
		idx = append(idx, indexEntry{
			frameID:       id,
			dataOffset:    uint32(len(dataRegion)),
			dataLength:    uint32(len(payload)),
			decayLevelTag: entries[id].DecayLevel().Tag(),
		})
		dataRegion = append(dataRegion, payload...)
	}

	bloomBytes := bf.Bytes()
	buf := make([]byte, 0, sortedRunHeaderSize+len(bloomBytes)+len(idx)*sortedRunIndexEntrySize+len(dataRegion))
	buf = append(buf, sortedRunMagic[:]...)
	buf = appendU32(buf, sortedRunVersion)
	buf = appendU32(buf, uint32(len(idx)))
	buf = appendU32(buf, uint32(len(bloomBytes)))
	buf = append(buf, bloomBytes...)
	for _, e := range idx {
		buf = appendU64(buf, e.frameID)
		buf = appendU32(buf, e.dataOffset)
		buf = appendU32(buf, e.dataLength)
		buf = append(buf, e.decayLevelTag)
	}
	buf = append(buf, dataRegion...)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, wrapSortedRun("create sorted run file", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return nil, wrapSortedRun("write sorted run file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, wrapSortedRun("fsync sorted run file", err)
	}
	if err := f.Close(); err != nil {
		return nil, wrapSortedRun("close sorted run file", err)
	}
	return openSortedRun(path, level, runID)
}

// openSortedRun mmaps path and validates + parses its header, bloom
// filter, and index, failing the whole open on any corruption per spec §7.
func openSortedRun(path string, level, runID int) (*sortedRun, error) {
	mm, err := mmapOpen(path)
	if err != nil {
		return nil, err
	}
	data := mm.data
	if len(data) < sortedRunHeaderSize {
		mm.Close()
		return nil, wrapSortedRun("header", errTruncated)
	}
	if string(data[0:4]) != string(sortedRunMagic[:]) {
		mm.Close()
		return nil, wrapSortedRun("magic", errBadMagic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != sortedRunVersion {
		mm.Close()
		return nil, wrapSortedRun("version", errBadVersion)
	}
	entryCount := binary.LittleEndian.Uint32(data[8:12])
	bloomLen := binary.LittleEndian.Uint32(data[12:16])

	pos := sortedRunHeaderSize
	if len(data) < pos+int(bloomLen) {
		mm.Close()
		return nil, wrapSortedRun("bloom region", errTruncated)
	}
	bf, err := bloom.FromBytes(data[pos : pos+int(bloomLen)])
	if err != nil {
		mm.Close()
		return nil, wrapSortedRun("bloom filter", err)
	}
	pos += int(bloomLen)

	indexLen := int(entryCount) * sortedRunIndexEntrySize
	if len(data) < pos+indexLen {
		mm.Close()
		return nil, wrapSortedRun("index region", errTruncated)
	}
	idx := make([]indexEntry, entryCount)
	for i := 0; i < int(entryCount); i++ {
		off := pos + i*sortedRunIndexEntrySize
		idx[i] = indexEntry{
			frameID:       binary.LittleEndian.Uint64(data[off : off+8]),
			dataOffset:    binary.LittleEndian.Uint32(data[off+8 : off+12]),
			dataLength:    binary.LittleEndian.Uint32(data[off+12 : off+16]),
			decayLevelTag: data[off+16],
		}
	}
	pos += indexLen

	return &sortedRun{
		path:    path,
		level:   level,
		runID:   runID,
		mm:      mm,
		bloom:   bf,
		index:   idx,
		dataOff: pos,
	}, nil
}

// get returns the raw payload bytes for frameID, or nil if absent. The
// bloom filter short-circuits most misses before the binary search.
func (r *sortedRun) get(frameID uint64) []byte {
	if !r.bloom.MayContain(frameID) {
		return nil
	}
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].frameID >= frameID })
	if i >= len(r.index) || r.index[i].frameID != frameID {
		return nil
	}
	e := r.index[i]
	start := r.dataOff + int(e.dataOffset)
	return r.mm.data[start : start+int(e.dataLength)]
}

func (r *sortedRun) frameIDs() []uint64 {
	ids := make([]uint64, len(r.index))
	for i, e := range r.index {
		ids[i] = e.frameID
	}
	return ids
}

func (r *sortedRun) close() error { return r.mm.Close() }

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
