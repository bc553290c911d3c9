package voltstore

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/natefinch/atomic"
	"github.com/voltxa/voltdb/pkg/voltframe"
)

type tier1Pos struct {
	strandID uint64
	index    int
}

// Tier1Store is the warm in-memory tier: a per-strand slice of full
// TensorFrames plus a frame_id -> (strand, position) secondary index for
// O(1) point lookups. Persisted to disk as a single JSON snapshot so a
// restart does not have to replay the entire WAL from scratch.
type Tier1Store struct {
	strands map[uint64][]*voltframe.TensorFrame
	byID    map[uint64]tier1Pos
}

// NewTier1Store returns an empty store.
func NewTier1Store() *Tier1Store {
	return &Tier1Store{
		strands: make(map[uint64][]*voltframe.TensorFrame),
		byID:    make(map[uint64]tier1Pos),
	}
}

// CreateStrand registers strandID with an empty frame list. A no-op if the
// strand already exists.
func (t *Tier1Store) CreateStrand(strandID uint64) {
	if _, ok := t.strands[strandID]; !ok {
		t.strands[strandID] = nil
	}
}

// HasStrand reports whether strandID has been created.
func (t *Tier1Store) HasStrand(strandID uint64) bool {
	_, ok := t.strands[strandID]
	return ok
}

// ListStrands returns every known strand id in ascending order.
func (t *Tier1Store) ListStrands() []uint64 {
	out := make([]uint64, 0, len(t.strands))
	for id := range t.strands {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Store appends f to its strand's frame list, creating the strand if
// necessary, and indexes it by frame id.
func (t *Tier1Store) Store(f *voltframe.TensorFrame) {
	strandID := f.FrameMeta.StrandID
	t.strands[strandID] = append(t.strands[strandID], f)
	t.byID[f.FrameMeta.FrameID] = tier1Pos{strandID: strandID, index: len(t.strands[strandID]) - 1}
}

// RemoveFrame deletes frameID from T1 (e.g. once demoted into T2),
// compacting its strand's slice and re-indexing the frames shifted down.
func (t *Tier1Store) RemoveFrame(frameID uint64) *voltframe.TensorFrame {
	pos, ok := t.byID[frameID]
	if !ok {
		return nil
	}
	frames := t.strands[pos.strandID]
	removed := frames[pos.index]
	frames = append(frames[:pos.index], frames[pos.index+1:]...)
	t.strands[pos.strandID] = frames
	delete(t.byID, frameID)
	for i := pos.index; i < len(frames); i++ {
		t.byID[frames[i].FrameMeta.FrameID] = tier1Pos{strandID: pos.strandID, index: i}
	}
	return removed
}

// GetByID returns the frame with the given id, or nil.
func (t *Tier1Store) GetByID(frameID uint64) *voltframe.TensorFrame {
	pos, ok := t.byID[frameID]
	if !ok {
		return nil
	}
	return t.strands[pos.strandID][pos.index]
}

// GetByStrand returns every frame in strandID, insertion order.
func (t *Tier1Store) GetByStrand(strandID uint64) []*voltframe.TensorFrame {
	return t.strands[strandID]
}

// OldestFrameIDs returns the frame ids of the n globally oldest frames
// across all strands (by CreatedAt), used to select T1->T2 overflow
// candidates.
func (t *Tier1Store) OldestFrameIDs(n int) []uint64 {
	all := make([]*voltframe.TensorFrame, 0, len(t.byID))
	for _, frames := range t.strands {
		all = append(all, frames...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].FrameMeta.CreatedAt < all[j].FrameMeta.CreatedAt
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].FrameMeta.FrameID
	}
	return out
}

// Len returns the total number of frames held across all strands.
func (t *Tier1Store) Len() int { return len(t.byID) }

type tier1Snapshot struct {
	Strands map[uint64][]*voltframe.TensorFrame `json:"strands"`
}

// Save writes a JSON snapshot of the entire store to path, atomically
// (write-temp-then-rename), matching pkg/fs's AtomicWriter pattern.
func (t *Tier1Store) Save(path string) error {
	snap := tier1Snapshot{Strands: t.strands}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return wrapStorage("marshal t1 snapshot", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return wrapStorage("write t1 snapshot", err)
	}
	return nil
}

// LoadTier1 reads a snapshot written by Save. A missing file yields a
// fresh, empty store (first-run case), not an error.
func LoadTier1(path string) (*Tier1Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewTier1Store(), nil
	}
	if err != nil {
		return nil, wrapStorage("read t1 snapshot", err)
	}
	var snap tier1Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, wrapStorage("unmarshal t1 snapshot", err)
	}
	t := NewTier1Store()
	for strandID, frames := range snap.Strands {
		t.strands[strandID] = frames
		for i, f := range frames {
			t.byID[f.FrameMeta.FrameID] = tier1Pos{strandID: strandID, index: i}
		}
	}
	return t, nil
}
