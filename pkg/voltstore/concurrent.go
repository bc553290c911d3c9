package voltstore

import (
	"sync"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// Locking architecture
//
//  1. Concurrent.mu — a single process-wide guard over one VoltStore.
//     Readers (GetByID, GetByStrand, QuerySimilar, ...) take RLock, so any
//     number of lookups can run together. Writers (Store, RunGC,
//     ConsolidateStrand, ...) take Lock, so at most one mutation — and no
//     concurrent reads — happens at a time.
//  2. Everything below Concurrent (T0/T1/T2, the WAL, the ANN and temporal
//     indexes) assumes single-threaded access; Concurrent is what makes a
//     VoltStore safe to share across goroutines, the same way the store
//     itself is not.
//
// Unlike a shared mmap file visible to multiple processes, a VoltStore has
// exactly one in-process owner, so there is no cross-process registry here:
// one RWMutex per store is enough.

// Concurrent wraps a *VoltStore with a many-reader/single-writer lock,
// making it safe to call from multiple goroutines. The zero value is not
// usable; construct with NewConcurrent.
type Concurrent struct {
	mu sync.RWMutex
	s  *VoltStore
}

// NewConcurrent wraps s for concurrent use. s must not be accessed directly
// (without going through the returned Concurrent) after this call.
func NewConcurrent(s *VoltStore) *Concurrent {
	return &Concurrent{s: s}
}

// Close releases the underlying store's resources. No other call may be in
// flight; callers are expected to quiesce before closing.
func (c *Concurrent) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Close()
}

// Store ingests f under strandID.
func (c *Concurrent) Store(f *voltframe.TensorFrame, strandID uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Store(f, strandID)
}

// GetByID returns a Full frame from T0 or T1.
func (c *Concurrent) GetByID(frameID uint64) (*voltframe.TensorFrame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.GetByID(frameID)
}

// GetEntryByID returns the frame at whatever decay level it currently
// occupies.
func (c *Concurrent) GetEntryByID(frameID uint64) (*FrameEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.GetEntryByID(frameID)
}

// GetByStrand returns every Full frame belonging to strandID.
func (c *Concurrent) GetByStrand(strandID uint64) []*voltframe.TensorFrame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.GetByStrand(strandID)
}

// Recent returns up to n of the most recently stored Full frames.
func (c *Concurrent) Recent(n int) []*voltframe.TensorFrame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.Recent(n)
}

// CreateStrand registers strandID if it does not already exist.
func (c *Concurrent) CreateStrand(strandID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.CreateStrand(strandID)
}

// SwitchStrand moves the active strand pointer to strandID.
func (c *Concurrent) SwitchStrand(strandID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.SwitchStrand(strandID)
}

// ActiveStrand returns the active strand pointer's current value.
func (c *Concurrent) ActiveStrand() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.ActiveStrand()
}

// ListStrands returns every known strand id.
func (c *Concurrent) ListStrands() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.ListStrands()
}

// ReassignFrameStrand moves a T1-resident frame to a different strand.
func (c *Concurrent) ReassignFrameStrand(frameID, newStrand uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.ReassignFrameStrand(frameID, newStrand)
}

// QuerySimilar returns the top-k nearest gists to query across every
// strand.
func (c *Concurrent) QuerySimilar(query *voltframe.Vector, k int) []AnnHit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.QuerySimilar(query, k)
}

// QuerySimilarInStrand returns the top-k nearest gists to query within one
// strand.
func (c *Concurrent) QuerySimilarInStrand(strandID uint64, query *voltframe.Vector, k int) []AnnHit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.QuerySimilarInStrand(strandID, query, k)
}

// QueryTimeRange returns frame ids created within [lo, hi].
func (c *Concurrent) QueryTimeRange(lo, hi uint64) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.QueryTimeRange(lo, hi)
}

// GhostGists returns up to k recent gists across every strand.
func (c *Concurrent) GhostGists(k int) []AnnHit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.GhostGists(k)
}

// PinFrame marks frameID immortal to GC.
func (c *Concurrent) PinFrame(frameID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.PinFrame(frameID)
}

// UnpinFrame clears frameID's pin.
func (c *Concurrent) UnpinFrame(frameID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.UnpinFrame(frameID)
}

// IsFramePinned reports whether frameID is pinned.
func (c *Concurrent) IsFramePinned(frameID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.IsFramePinned(frameID)
}

// Save writes a JSON snapshot of T1 to path.
func (c *Concurrent) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.Save(path)
}

// Load replaces T1 (and rebuilds the indexes) from the snapshot at path.
func (c *Concurrent) Load(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Load(path)
}

// RunGC runs one retention-scoring and demotion pass.
func (c *Concurrent) RunGC() (*GCResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.RunGC()
}

// RunGCAt runs one retention-scoring and demotion pass as of now.
func (c *Concurrent) RunGCAt(now uint64) (*GCResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.RunGCAt(now)
}

// ConsolidateStrand clusters and synthesizes wisdom frames for strandID.
func (c *Concurrent) ConsolidateStrand(strandID uint64) (*ConsolidationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.ConsolidateStrand(strandID)
}

// SupersededBy reports the wisdom frame id that superseded frameID, if any.
func (c *Concurrent) SupersededBy(frameID uint64) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.SupersededBy(frameID)
}
