package voltstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// WalOp enumerates the mutation kinds recorded in the log.
type WalOp uint8

const (
	WalOpStore WalOp = iota
	WalOpCompress
	WalOpGist
	WalOpTombstone
)

// WalEntry is one logical record appended to a strand's WAL.
//
// Wire format per record (little-endian throughout), matching spec §4.11:
//
//	entry_len  u32  // length of frame_id through payload (excludes the crc32)
//	frame_id   u64
//	strand_id  u64
//	op         u8
//	payload_len u32
//	payload    [payload_len]byte
//	crc32      u32  // IEEE polynomial, over every preceding byte of the record
//
// The CRC uses the standard IEEE-802.3 polynomial (hash/crc32.IEEETable),
// not Castagnoli, to stay bit-exact with the reference implementation's
// crc32fast crate.
type WalEntry struct {
	FrameID  uint64
	StrandID uint64
	Op       WalOp
	Payload  []byte
}

func (e *WalEntry) encode() []byte {
	body := make([]byte, 0, 8+8+1+4+len(e.Payload))
	body = putU64(body, e.FrameID)
	body = putU64(body, e.StrandID)
	body = append(body, byte(e.Op))
	var pl [4]byte
	binary.LittleEndian.PutUint32(pl[:], uint32(len(e.Payload)))
	body = append(body, pl[:]...)
	body = append(body, e.Payload...)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	record := make([]byte, 0, 4+len(body)+4)
	record = append(record, lenBuf[:]...)
	record = append(record, body...)

	crc := crc32.ChecksumIEEE(record)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	record = append(record, crcBuf[:]...)
	return record
}

// decodeWalEntry reads one record from r. io.EOF (clean end) and
// ErrWALCorrupt (torn or corrupt tail) are both signals to stop replay;
// callers distinguish them when they care which happened.
func decodeWalEntry(r *bufio.Reader) (*WalEntry, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err // typically io.EOF: clean end of file
	}
	bodyLen := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, ErrWALCorrupt // torn tail: length header present, body missing
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		return nil, ErrWALCorrupt
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf[:])
	hashed := make([]byte, 0, 4+len(body))
	hashed = append(hashed, lenBuf[:]...)
	hashed = append(hashed, body...)
	if crc32.ChecksumIEEE(hashed) != wantCRC {
		return nil, ErrWALCorrupt
	}
	if len(body) < 21 {
		return nil, ErrWALCorrupt
	}
	e := &WalEntry{}
	e.FrameID = binary.LittleEndian.Uint64(body[0:8])
	e.StrandID = binary.LittleEndian.Uint64(body[8:16])
	e.Op = WalOp(body[16])
	payloadLen := binary.LittleEndian.Uint32(body[17:21])
	if uint32(len(body)-21) != payloadLen {
		return nil, ErrWALCorrupt
	}
	e.Payload = body[21:]
	return e, nil
}

// WalManager owns one append-only log file per strand under dir.
type WalManager struct {
	dir   string
	files map[uint64]*os.File
}

// OpenWalManager ensures dir exists and returns a manager ready to log or
// replay per-strand files within it.
func OpenWalManager(dir string) (*WalManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, wrapStorage("create wal dir", err)
	}
	return &WalManager{dir: dir, files: make(map[uint64]*os.File)}, nil
}

func (w *WalManager) pathFor(strandID uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("strand_%d.wal", strandID))
}

func (w *WalManager) fileFor(strandID uint64) (*os.File, error) {
	if f, ok := w.files[strandID]; ok {
		return f, nil
	}
	f, err := os.OpenFile(w.pathFor(strandID), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, wrapStorage("open wal file", err)
	}
	w.files[strandID] = f
	return f, nil
}

// LogEntry appends entry to its strand's log, without forcing an fsync
// (callers batch and call SyncAll).
func (w *WalManager) LogEntry(entry *WalEntry) error {
	f, err := w.fileFor(entry.StrandID)
	if err != nil {
		return err
	}
	if _, err := f.Write(entry.encode()); err != nil {
		return wrapStorage("append wal entry", err)
	}
	return nil
}

// SyncAll fsyncs every open strand log.
func (w *WalManager) SyncAll() error {
	for _, f := range w.files {
		if err := f.Sync(); err != nil {
			return wrapStorage("sync wal file", err)
		}
	}
	return nil
}

// ReplayAll replays every strand_*.wal file found in dir, in ascending
// strand-id order, invoking fn for each valid entry. Replay for a given
// file stops at the first corrupt or torn record (the valid prefix is
// trusted, the rest is discarded) rather than failing the whole open.
func (w *WalManager) ReplayAll(fn func(*WalEntry) error) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return wrapStorage("read wal dir", err)
	}
	var strandIDs []uint64
	for _, de := range entries {
		var id uint64
		if n, _ := fmt.Sscanf(de.Name(), "strand_%d.wal", &id); n == 1 {
			strandIDs = append(strandIDs, id)
		}
	}
	sort.Slice(strandIDs, func(i, j int) bool { return strandIDs[i] < strandIDs[j] })
	for _, id := range strandIDs {
		if err := w.replayStrand(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *WalManager) replayStrand(strandID uint64, fn func(*WalEntry) error) error {
	f, err := os.Open(w.pathFor(strandID))
	if err != nil {
		return wrapStorage("open wal for replay", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		entry, err := decodeWalEntry(r)
		if err == io.EOF || err == ErrWALCorrupt {
			break
		}
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// Checkpoint truncates strandID's log to empty, discarding entries that
// are now durable in T1/T2.
func (w *WalManager) Checkpoint(strandID uint64) error {
	f, err := w.fileFor(strandID)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return wrapStorage("truncate wal", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return wrapStorage("seek wal", err)
	}
	return nil
}

// CheckpointAll truncates every strand's log known to this manager.
func (w *WalManager) CheckpointAll() error {
	for strandID := range w.files {
		if err := w.Checkpoint(strandID); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every open strand log file.
func (w *WalManager) Close() error {
	for _, f := range w.files {
		if err := f.Close(); err != nil {
			return wrapStorage("close wal file", err)
		}
	}
	return nil
}

// Dir returns the manager's log directory.
func (w *WalManager) Dir() string { return w.dir }
