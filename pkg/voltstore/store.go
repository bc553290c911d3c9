package voltstore

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// VoltStore is the unified façade (§4.12): the single owner of T0, T1, the
// optional on-disk T2/WAL pair, the ANN and temporal indexes, GC state
// (pins, ref counts, wisdom/supersession bookkeeping), the active strand
// pointer, and the frame id counter. Every other type in this package is a
// leaf collaborator that VoltStore wires together; callers only ever talk
// to a VoltStore (or its Concurrent wrapper, see concurrent.go).
type VoltStore struct {
	cfg  Config
	t0   *Tier0Ring
	t1   *Tier1Store
	t2   *Tier2Store // nil in memory-only mode
	wal  *WalManager // nil in memory-only mode
	flk  *fileLock   // nil in memory-only mode

	ann      *AnnIndex
	temporal *TemporalIndex
	pins     *PinSet
	refs     *RefCounts

	wisdom       map[uint64]bool
	supersededBy map[uint64]uint64

	nextFrameID  uint64
	activeStrand uint64

	// clock returns the current wall-clock time in microseconds since
	// epoch; overridable by tests so Store() assigns deterministic
	// timestamps instead of time.Now().
	clock func() uint64
}

// NewMemoryStore returns a memory-only VoltStore: no T2, no WAL, nothing
// durable. save()/load() round-trip T1 (and only T1) to a caller-chosen
// path. t0Capacity <= 0 uses DefaultT0Capacity.
func NewMemoryStore(t0Capacity int) *VoltStore {
	s := newBareStore(t0Capacity)
	s.cfg.GC = DefaultGCConfig()
	s.cfg.Consolidation = DefaultConsolidationConfig()
	s.t1.CreateStrand(0)
	return s
}

func newBareStore(t0Capacity int) *VoltStore {
	return &VoltStore{
		t0:           NewTier0Ring(t0Capacity),
		t1:           NewTier1Store(),
		ann:          NewAnnIndex(),
		temporal:     NewTemporalIndex(),
		pins:         NewPinSet(),
		refs:         NewRefCounts(),
		wisdom:       make(map[uint64]bool),
		supersededBy: make(map[uint64]uint64),
		nextFrameID:  1,
		activeStrand: 0,
		clock:        wallClockMicros,
	}
}

// Open opens (or creates) a disk-backed VoltStore rooted at cfg.DataDir,
// per §4.11's startup integration: open T2 and its sorted-run indexes,
// load the T1 snapshot (if any), rebuild ANN+temporal by scanning T1,
// replay every strand's WAL, and set next_frame_id from the high-water
// mark across T1, T2, and anything recovered from the WAL. A second
// process attempting to Open the same DataDir fails with ErrLocked.
func Open(cfg Config) (*VoltStore, error) {
	s := newBareStore(DefaultT0Capacity)
	s.cfg = cfg

	flk, err := acquireLock(filepath.Join(cfg.DataDir, ".lock"))
	if err != nil {
		return nil, err
	}
	s.flk = flk

	t2, err := OpenTier2Store(cfg.T2)
	if err != nil {
		flk.release()
		return nil, err
	}
	s.t2 = t2

	t1, err := LoadTier1(filepath.Join(cfg.DataDir, "t1_strands.json"))
	if err != nil {
		t2.Close()
		flk.release()
		return nil, err
	}
	s.t1 = t1
	s.t1.CreateStrand(0)

	s.rebuildIndexesFromT1()

	wal, err := OpenWalManager(filepath.Join(cfg.DataDir, "wal"))
	if err != nil {
		t2.Close()
		flk.release()
		return nil, err
	}
	s.wal = wal

	if err := s.replayWAL(); err != nil {
		wal.Close()
		t2.Close()
		flk.release()
		return nil, err
	}

	s.nextFrameID = 1 + s.maxKnownFrameID()
	return s, nil
}

func (s *VoltStore) rebuildIndexesFromT1() {
	for _, strandID := range s.t1.ListStrands() {
		for _, f := range s.t1.GetByStrand(strandID) {
			s.indexFrame(f)
		}
	}
}

func (s *VoltStore) indexFrame(f *voltframe.TensorFrame) {
	s.temporal.Insert(f.FrameMeta.CreatedAt, f.FrameMeta.FrameID)
	if gist, ok := ExtractGist(f); ok {
		s.ann.Insert(f.FrameMeta.StrandID, f.FrameMeta.FrameID, gist)
	}
}

// replayWAL implements §4.11's replay policy: a Store record whose
// frame_id is already in T1 is a no-op (already durable); otherwise the
// frame is reconstructed from its JSON payload and reinserted into T1 and
// the indexes. A Compress/Gist/Tombstone record re-applies that demotion
// to T2 (idempotent: T2 puts are newest-wins) and, if the frame is still
// in T1, removes it from there and from the indexes.
func (s *VoltStore) replayWAL() error {
	return s.wal.ReplayAll(func(e *WalEntry) error {
		switch e.Op {
		case WalOpStore:
			if s.t1.GetByID(e.FrameID) != nil {
				return nil
			}
			var f voltframe.TensorFrame
			if err := json.Unmarshal(e.Payload, &f); err != nil {
				return wrapStorage("replay store record", err)
			}
			s.t1.CreateStrand(f.FrameMeta.StrandID)
			s.t1.Store(&f)
			s.indexFrame(&f)
			return nil
		case WalOpCompress:
			cf, err := CompressedFrameFromBinary(e.Payload)
			if err != nil {
				return err
			}
			if err := s.t2.Put(&FrameEntry{Compressed: cf}); err != nil {
				return err
			}
			s.demoteFromT1AndIndexes(e.FrameID, e.StrandID)
			return nil
		case WalOpGist:
			gf, err := GistFrameFromBinary(e.Payload)
			if err != nil {
				return err
			}
			if err := s.t2.Put(&FrameEntry{Gist: gf}); err != nil {
				return err
			}
			s.demoteFromT1AndIndexes(e.FrameID, e.StrandID)
			return nil
		case WalOpTombstone:
			t, err := TombstoneFromBinary(e.Payload)
			if err != nil {
				return err
			}
			if err := s.t2.Put(&FrameEntry{Tomb: t}); err != nil {
				return err
			}
			s.demoteFromT1AndIndexes(e.FrameID, e.StrandID)
			return nil
		default:
			return nil
		}
	})
}

func (s *VoltStore) demoteFromT1AndIndexes(frameID, strandID uint64) {
	if f := s.t1.GetByID(frameID); f != nil {
		s.t1.RemoveFrame(frameID)
		s.temporal.Remove(f.FrameMeta.CreatedAt, frameID)
	}
	s.ann.MarkDeleted(frameID)
	_ = strandID
}

func (s *VoltStore) maxKnownFrameID() uint64 {
	var max uint64
	for _, strandID := range s.t1.ListStrands() {
		for _, f := range s.t1.GetByStrand(strandID) {
			if f.FrameMeta.FrameID > max {
				max = f.FrameMeta.FrameID
			}
		}
	}
	if s.t2 != nil {
		for _, level := range s.t2.levels {
			for _, run := range level {
				for _, id := range run.frameIDs() {
					if id > max {
						max = id
					}
				}
			}
		}
		for id := range s.t2.memtable {
			if id > max {
				max = id
			}
		}
	}
	return max
}

// Close releases T2's mmaps, the WAL files, and the data-dir lock. A
// memory-only store's Close is a no-op.
func (s *VoltStore) Close() error {
	if s.wal != nil {
		if err := s.wal.Close(); err != nil {
			return err
		}
	}
	if s.t2 != nil {
		if err := s.t2.Close(); err != nil {
			return err
		}
	}
	if s.flk != nil {
		s.flk.release()
	}
	return nil
}

// --- ingestion ---

// Store assigns (frame_id, strand_id, created_at), WAL-appends a Store
// record, inserts into T0 (evicting the oldest into T1 on overflow),
// extracts a gist and indexes it, then checks T1->T2 overflow and T2
// maintenance thresholds. strandID selects the owning strand, auto-created
// if unknown; it is used as given (0 is strand 0), and the active strand
// pointer is not consulted.
func (s *VoltStore) Store(f *voltframe.TensorFrame, strandID uint64) (uint64, error) {
	frameID := s.nextFrameID
	s.nextFrameID++
	now := s.clock()

	f.FrameMeta.FrameID = frameID
	f.FrameMeta.StrandID = strandID
	f.FrameMeta.CreatedAt = now
	if gc, ok := f.MinCertainty(); ok {
		f.FrameMeta.GlobalCertainty = gc
	}

	if err := validateFrame(f); err != nil {
		s.nextFrameID-- // leave the store unchanged on validation failure
		return 0, err
	}

	if s.wal != nil {
		payload, err := json.Marshal(f)
		if err != nil {
			return 0, wrapStorage("marshal store record", err)
		}
		if err := s.wal.LogEntry(&WalEntry{FrameID: frameID, StrandID: strandID, Op: WalOpStore, Payload: payload}); err != nil {
			return 0, err
		}
	}

	s.t1.CreateStrand(strandID)
	if evicted := s.t0.Store(f); evicted != nil {
		s.t1.Store(evicted)
	}
	s.indexFrame(f)

	if err := s.maybeOverflowT1(); err != nil {
		return frameID, err
	}
	if s.t2 != nil {
		if err := s.t2.maybeCompact(0); err != nil {
			return frameID, err
		}
	}
	return frameID, nil
}

func validateFrame(f *voltframe.TensorFrame) error {
	for _, s := range f.Slots {
		if s == nil {
			continue
		}
		for _, r := range s.Resolutions {
			if r != nil && !voltframe.FiniteVector(r) {
				return wrapStorage("ingest", voltframe.ErrBus)
			}
		}
	}
	return nil
}

// maybeOverflowT1 implements §4.12's T1->T2 overflow: once T1's total
// frame count exceeds T1OverflowThreshold, the globally oldest excess
// frames are compressed and moved into T2.
func (s *VoltStore) maybeOverflowT1() error {
	if s.t2 == nil {
		return nil
	}
	threshold := s.cfg.T1OverflowThreshold
	if threshold <= 0 {
		threshold = 1024
	}
	over := s.t1.Len() - threshold
	if over <= 0 {
		return nil
	}
	for _, frameID := range s.t1.OldestFrameIDs(over) {
		f := s.t1.GetByID(frameID)
		if f == nil {
			continue
		}
		if err := s.demoteFullToCompressed(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *VoltStore) demoteFullToCompressed(f *voltframe.TensorFrame) error {
	cf := Compress(f)
	if s.wal != nil {
		if err := s.wal.LogEntry(&WalEntry{
			FrameID: cf.FrameID, StrandID: cf.StrandID, Op: WalOpCompress, Payload: cf.ToBinary(),
		}); err != nil {
			return err
		}
	}
	s.t1.RemoveFrame(cf.FrameID)
	if s.t2 != nil {
		if err := s.t2.Put(&FrameEntry{Compressed: cf}); err != nil {
			return err
		}
	}
	s.ann.MarkDeleted(cf.FrameID)
	s.temporal.Remove(f.FrameMeta.CreatedAt, cf.FrameID)
	return nil
}

// --- lookups ---

// GetByID returns a Full frame from T0 or T1 only (per spec's
// `get_by_id`); a frame already demoted past Full is reported as absent
// here even though GetEntryByID would still find it.
func (s *VoltStore) GetByID(frameID uint64) (*voltframe.TensorFrame, bool) {
	if f := s.t0.GetByID(frameID); f != nil {
		return f, true
	}
	if f := s.t1.GetByID(frameID); f != nil {
		return f, true
	}
	return nil, false
}

// GetEntryByID returns the frame at whatever decay level it currently
// occupies, checking T0, then T1, then T2 in turn.
func (s *VoltStore) GetEntryByID(frameID uint64) (*FrameEntry, bool, error) {
	if f := s.t0.GetByID(frameID); f != nil {
		return &FrameEntry{Full: f}, true, nil
	}
	if f := s.t1.GetByID(frameID); f != nil {
		return &FrameEntry{Full: f}, true, nil
	}
	if s.t2 != nil {
		e, err := s.t2.Get(frameID)
		if err != nil {
			return nil, false, err
		}
		if e != nil {
			return e, true, nil
		}
	}
	return nil, false, nil
}

// GetByStrand returns every Full frame belonging to strandID across T0 and
// T1, oldest first.
func (s *VoltStore) GetByStrand(strandID uint64) []*voltframe.TensorFrame {
	out := append([]*voltframe.TensorFrame{}, s.t1.GetByStrand(strandID)...)
	out = append(out, s.t0.GetByStrand(strandID)...)
	return out
}

// Recent returns up to n of T0's most recently stored Full frames, newest
// first.
func (s *VoltStore) Recent(n int) []*voltframe.TensorFrame {
	return s.t0.Recent(n)
}

// --- strands ---

func (s *VoltStore) CreateStrand(strandID uint64) { s.t1.CreateStrand(strandID) }

// SwitchStrand moves the active strand pointer to strandID, auto-creating
// it if unknown.
func (s *VoltStore) SwitchStrand(strandID uint64) {
	s.t1.CreateStrand(strandID)
	s.activeStrand = strandID
}

func (s *VoltStore) ActiveStrand() uint64 { return s.activeStrand }

func (s *VoltStore) ListStrands() []uint64 { return s.t1.ListStrands() }

// ReassignFrameStrand moves frameID to newStrand within T1 and resets its
// ANN presence: soft-delete under the old strand, reinsert its gist under
// the new one. Per spec §9's open question, a T2-resident copy of this
// frame (if one already exists from a prior demotion) keeps its original
// strand_id — this implementation matches the reference source's actual
// behavior rather than adding T2-side rewriting. Returns false if frameID
// is not currently in T1 (T0/T2-resident frames cannot be reassigned).
func (s *VoltStore) ReassignFrameStrand(frameID, newStrand uint64) bool {
	f := s.t1.GetByID(frameID)
	if f == nil {
		return false
	}
	s.t1.RemoveFrame(frameID)
	s.ann.MarkDeleted(frameID)
	f.FrameMeta.StrandID = newStrand
	s.t1.CreateStrand(newStrand)
	s.t1.Store(f)
	if gist, ok := ExtractGist(f); ok {
		s.ann.Insert(newStrand, frameID, gist)
	}
	return true
}

// --- similarity & time queries ---

func (s *VoltStore) QuerySimilar(query *voltframe.Vector, k int) []AnnHit {
	return s.ann.QueryAll(query, k)
}

func (s *VoltStore) QuerySimilarInStrand(strandID uint64, query *voltframe.Vector, k int) []AnnHit {
	return s.ann.QueryStrand(strandID, query, k)
}

func (s *VoltStore) QueryTimeRange(lo, hi uint64) []uint64 {
	return s.temporal.QueryRange(lo, hi)
}

// GhostGists returns the most recent top-k ANN entries across every
// strand: a convenience for the inference/attention collaborator (§6),
// which consumes gists without caring which strand they came from.
func (s *VoltStore) GhostGists(k int) []AnnHit {
	recent := s.t0.Recent(k)
	out := make([]AnnHit, 0, len(recent))
	for _, f := range recent {
		gist, ok := ExtractGist(f)
		if !ok {
			continue
		}
		out = append(out, AnnHit{FrameID: f.FrameMeta.FrameID, StrandID: f.FrameMeta.StrandID, Gist: gist})
	}
	return out
}

// --- pins & refs ---

func (s *VoltStore) PinFrame(frameID uint64)      { s.pins.Pin(frameID) }
func (s *VoltStore) UnpinFrame(frameID uint64)    { s.pins.Unpin(frameID) }
func (s *VoltStore) IsFramePinned(frameID uint64) bool { return s.pins.IsPinned(frameID) }

// --- save/load (memory-only T1 round trip) ---

// Save writes a JSON snapshot of T1 to path. It does not touch T0, T2, or
// the WAL — a disk-backed store persists those continuously and does not
// need Save/Load; this exists for the memory-only mode.
func (s *VoltStore) Save(path string) error { return s.t1.Save(path) }

// Load replaces T1 with the snapshot at path (or an empty store if path
// does not exist) and rebuilds the ANN and temporal indexes from it.
func (s *VoltStore) Load(path string) error {
	t1, err := LoadTier1(path)
	if err != nil {
		return err
	}
	s.t1 = t1
	s.t1.CreateStrand(0)
	s.ann = NewAnnIndex()
	s.temporal = NewTemporalIndex()
	s.rebuildIndexesFromT1()
	s.nextFrameID = 1 + s.maxKnownFrameID()
	return nil
}

func wallClockMicros() uint64 {
	return uint64(nowMicros())
}

// sortUint64s sorts ids ascending in place and returns them; ConsolidateStrand
// uses it to report its wisdom frame ids in a deterministic order.
func sortUint64s(ids []uint64) []uint64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
