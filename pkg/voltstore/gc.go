package voltstore

import "math"

const microsPerDay = 86_400_000_000

// RetentionInput is the per-frame state the retention scorer needs: it
// does not take a TensorFrame directly since the frame may already have
// been demoted to a Compressed or Gist representation.
type RetentionInput struct {
	CreatedAt uint64
	Certainty float32
	RefCount  uint64
	Pinned    bool
	Wisdom    bool
}

// RetentionScore computes the §4.9 weighted score at wall-clock now,
// clamped to [0,1]. Pinned, γ≥1.0, and wisdom frames short-circuit to 1.0
// without evaluating the weighted sum.
func RetentionScore(in RetentionInput, cfg GCConfig, now uint64) float32 {
	if in.Pinned || in.Certainty >= 1.0 || in.Wisdom {
		return 1.0
	}
	var ageMicros uint64
	if now > in.CreatedAt {
		ageMicros = now - in.CreatedAt
	}
	ageDays := float64(ageMicros) / microsPerDay

	score := float64(cfg.WAge)*math.Exp(-ageDays/float64(cfg.TauDays)) +
		float64(cfg.WGamma)*float64(in.Certainty) +
		float64(cfg.WRefs)*math.Log1p(float64(in.RefCount)) +
		float64(cfg.WPinned)*0 // Pinned already handled by the shortcut above.

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return float32(score)
}

// TargetDecayLevel maps a score to the decay level it calls for, then
// clamps to current so GC never promotes a frame.
func TargetDecayLevel(score float32, current DecayLevel, cfg GCConfig) DecayLevel {
	var fromScore DecayLevel
	switch {
	case score >= cfg.ThresholdFullToCompressed:
		fromScore = DecayFull
	case score >= cfg.ThresholdCompressedToGist:
		fromScore = DecayCompressed
	case score >= cfg.ThresholdGistToTombstone:
		fromScore = DecayGist
	default:
		fromScore = DecayTombstoned
	}
	if fromScore < current {
		return fromScore
	}
	return current
}

// PinSet is an in-memory set of pinned frame ids, exempting them from GC
// via the retention score's immortality shortcut.
type PinSet struct {
	pinned map[uint64]bool
}

// NewPinSet returns an empty pin set.
func NewPinSet() *PinSet { return &PinSet{pinned: make(map[uint64]bool)} }

func (p *PinSet) Pin(frameID uint64)   { p.pinned[frameID] = true }
func (p *PinSet) Unpin(frameID uint64) { delete(p.pinned, frameID) }
func (p *PinSet) IsPinned(frameID uint64) bool { return p.pinned[frameID] }

// RefCounts is a frame_id -> reference count map. Decrementing to zero
// removes the entry entirely (a frame absent from the map has refcount 0).
type RefCounts struct {
	counts map[uint64]uint64
}

// NewRefCounts returns an empty map.
func NewRefCounts() *RefCounts { return &RefCounts{counts: make(map[uint64]uint64)} }

func (r *RefCounts) Incr(frameID uint64) {
	r.counts[frameID]++
}

func (r *RefCounts) Decr(frameID uint64) {
	if r.counts[frameID] <= 1 {
		delete(r.counts, frameID)
		return
	}
	r.counts[frameID]--
}

func (r *RefCounts) Get(frameID uint64) uint64 { return r.counts[frameID] }

// DemotionPlan is one (frame_id, target decay level) transition computed
// by a GC pass.
type DemotionPlan struct {
	FrameID  uint64
	StrandID uint64
	From     DecayLevel
	To       DecayLevel
}
