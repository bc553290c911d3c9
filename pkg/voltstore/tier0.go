package voltstore

import "github.com/voltxa/voltdb/pkg/voltframe"

// DefaultT0Capacity is the ring's fixed slot count.
const DefaultT0Capacity = 64

// Tier0Ring is the hottest tier: a fixed-capacity FIFO ring of full
// TensorFrames, entirely in memory and never persisted. It exists to
// absorb bursts of writes before they settle into T1.
type Tier0Ring struct {
	capacity int
	frames   []*voltframe.TensorFrame
	head     int // index of the oldest frame
	size     int
}

// NewTier0Ring creates an empty ring of the given capacity (DefaultT0Capacity
// if capacity <= 0).
func NewTier0Ring(capacity int) *Tier0Ring {
	if capacity <= 0 {
		capacity = DefaultT0Capacity
	}
	return &Tier0Ring{capacity: capacity, frames: make([]*voltframe.TensorFrame, capacity)}
}

// Store inserts f at the write position, evicting and returning the oldest
// frame if the ring was already full.
func (t *Tier0Ring) Store(f *voltframe.TensorFrame) (evicted *voltframe.TensorFrame) {
	writePos := (t.head + t.size) % t.capacity
	if t.size == t.capacity {
		evicted = t.frames[t.head]
		t.head = (t.head + 1) % t.capacity
	} else {
		t.size++
	}
	t.frames[writePos] = f
	return evicted
}

// Len returns the current number of frames held.
func (t *Tier0Ring) Len() int { return t.size }

// Capacity returns the ring's fixed capacity.
func (t *Tier0Ring) Capacity() int { return t.capacity }

func (t *Tier0Ring) forEach(fn func(*voltframe.TensorFrame)) {
	for i := 0; i < t.size; i++ {
		fn(t.frames[(t.head+i)%t.capacity])
	}
}

// GetByID scans the ring for frameID, oldest first.
func (t *Tier0Ring) GetByID(frameID uint64) *voltframe.TensorFrame {
	var found *voltframe.TensorFrame
	t.forEach(func(f *voltframe.TensorFrame) {
		if found == nil && f.FrameMeta.FrameID == frameID {
			found = f
		}
	})
	return found
}

// GetByStrand returns every frame belonging to strandID, oldest first.
func (t *Tier0Ring) GetByStrand(strandID uint64) []*voltframe.TensorFrame {
	var out []*voltframe.TensorFrame
	t.forEach(func(f *voltframe.TensorFrame) {
		if f.FrameMeta.StrandID == strandID {
			out = append(out, f)
		}
	})
	return out
}

// Recent returns up to n of the most recently stored frames, newest first.
func (t *Tier0Ring) Recent(n int) []*voltframe.TensorFrame {
	if n > t.size {
		n = t.size
	}
	out := make([]*voltframe.TensorFrame, 0, n)
	for i := 0; i < n; i++ {
		pos := (t.head + t.size - 1 - i + t.capacity) % t.capacity
		out = append(out, t.frames[pos])
	}
	return out
}

// All returns every frame in the ring, oldest first.
func (t *Tier0Ring) All() []*voltframe.TensorFrame {
	out := make([]*voltframe.TensorFrame, 0, t.size)
	t.forEach(func(f *voltframe.TensorFrame) { out = append(out, f) })
	return out
}
