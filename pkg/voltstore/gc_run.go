package voltstore

import (
	"math"
	"sort"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// GCResult summarizes one GC pass: how many frames were scored and the
// demotions actually applied, in ascending frame-id order.
type GCResult struct {
	Scored  int
	Demoted []DemotionPlan
}

type frameSnapshot struct {
	frameID   uint64
	strandID  uint64
	createdAt uint64
	certainty float32
	level     DecayLevel
}

// RunGC runs a GC pass at the current wall-clock time.
func (s *VoltStore) RunGC() (*GCResult, error) {
	return s.RunGCAt(s.clock())
}

// RunGCAt runs a GC pass as if the current time were now: §4.9's score is
// computed for every frame across T1 and T2, each frame's target decay
// level is derived (never promoting past its current level), and the
// demotion plan is applied. Running RunGCAt twice with the same now is
// idempotent: the second pass computes the same scores against the
// already-demoted levels and finds nothing left to do, per spec §8.
func (s *VoltStore) RunGCAt(now uint64) (*GCResult, error) {
	snapshots, err := s.snapshotFrames()
	if err != nil {
		return nil, err
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].frameID < snapshots[j].frameID })

	result := &GCResult{Scored: len(snapshots)}
	for _, snap := range snapshots {
		in := RetentionInput{
			CreatedAt: snap.createdAt,
			Certainty: snap.certainty,
			RefCount:  s.refs.Get(snap.frameID),
			Pinned:    s.pins.IsPinned(snap.frameID),
			Wisdom:    s.wisdom[snap.frameID],
		}
		score := RetentionScore(in, s.cfg.GC, now)
		target := TargetDecayLevel(score, snap.level, s.cfg.GC)
		if target == snap.level {
			continue
		}
		if err := s.applyDemotion(snap, target, now); err != nil {
			return nil, err
		}
		result.Demoted = append(result.Demoted, DemotionPlan{
			FrameID: snap.frameID, StrandID: snap.strandID, From: snap.level, To: target,
		})
	}
	return result, nil
}

// snapshotFrames gathers a frameSnapshot for every frame in T1 (always
// Full) and every frame entry in T2 (whatever decay level it occupies),
// matching §4.9's "snapshots metadata across T1 and T2".
func (s *VoltStore) snapshotFrames() ([]frameSnapshot, error) {
	var out []frameSnapshot
	for _, strandID := range s.t1.ListStrands() {
		for _, f := range s.t1.GetByStrand(strandID) {
			out = append(out, frameSnapshot{
				frameID: f.FrameMeta.FrameID, strandID: strandID,
				createdAt: f.FrameMeta.CreatedAt, certainty: f.FrameMeta.GlobalCertainty,
				level: DecayFull,
			})
		}
	}
	if s.t2 == nil {
		return out, nil
	}
	seen := make(map[uint64]bool, len(out))
	for _, snap := range out {
		seen[snap.frameID] = true
	}
	for id := range s.t2.memtable {
		if seen[id] {
			continue
		}
		e := s.t2.memtable[id]
		out = append(out, entrySnapshot(e))
		seen[id] = true
	}
	for _, level := range s.t2.levels {
		for _, run := range level {
			for _, id := range run.frameIDs() {
				if seen[id] {
					continue
				}
				payload := run.get(id)
				e, err := FrameEntryFromBinary(payload)
				if err != nil {
					return nil, err
				}
				out = append(out, entrySnapshot(e))
				seen[id] = true
			}
		}
	}
	return out, nil
}

func entrySnapshot(e *FrameEntry) frameSnapshot {
	return frameSnapshot{
		frameID: e.FrameID(), strandID: e.StrandID(),
		createdAt: e.CreatedAt(), certainty: e.GlobalCertainty(),
		level: e.DecayLevel(),
	}
}

// applyDemotion implements §4.9's apply plan for one (frame_id, target)
// transition.
func (s *VoltStore) applyDemotion(snap frameSnapshot, target DecayLevel, now uint64) error {
	if snap.level == DecayFull {
		f := s.t1.GetByID(snap.frameID)
		if f == nil {
			return nil // already moved by an earlier step in this pass
		}
		return s.demoteFullFrame(f, target, now)
	}
	entry, err := s.t2.Get(snap.frameID)
	if err != nil || entry == nil {
		return err
	}
	return s.demoteT2Entry(entry, target, now)
}

func (s *VoltStore) demoteFullFrame(f *voltframe.TensorFrame, target DecayLevel, now uint64) error {
	switch target {
	case DecayCompressed:
		return s.demoteFullToCompressed(f)
	case DecayGist:
		cf := Compress(f)
		gist, ok := ExtractGist(f)
		if !ok {
			// No R0 data to gist: fall through to tombstoning, per §4.8 —
			// a gistless frame cannot occupy the Gist level at all.
			return s.demoteFullToTombstone(f, now)
		}
		gf := cf.ToGistFrame(gist)
		return s.writeDemotion(f.FrameMeta.FrameID, f.FrameMeta.StrandID, f.FrameMeta.CreatedAt, WalOpGist, gf.ToBinary(), &FrameEntry{Gist: gf})
	default: // DecayTombstoned
		return s.demoteFullToTombstone(f, now)
	}
}

func (s *VoltStore) demoteFullToTombstone(f *voltframe.TensorFrame, now uint64) error {
	var supersededBy *uint64
	if id, ok := s.supersededBy[f.FrameMeta.FrameID]; ok {
		supersededBy = &id
	}
	t := &Tombstone{FrameID: f.FrameMeta.FrameID, StrandID: f.FrameMeta.StrandID, TombstonedAt: now, SupersededBy: supersededBy}
	return s.writeDemotion(f.FrameMeta.FrameID, f.FrameMeta.StrandID, f.FrameMeta.CreatedAt, WalOpTombstone, t.ToBinary(), &FrameEntry{Tomb: t})
}

// writeDemotion is the shared Full->{Compressed,Gist,Tombstoned} tail:
// WAL-log the transition, drop the frame from T1, write the T2 entry,
// soft-delete it from the ANN index, and remove it from the temporal
// index.
func (s *VoltStore) writeDemotion(frameID, strandID, createdAt uint64, op WalOp, payload []byte, entry *FrameEntry) error {
	if s.wal != nil {
		if err := s.wal.LogEntry(&WalEntry{FrameID: frameID, StrandID: strandID, Op: op, Payload: payload}); err != nil {
			return err
		}
	}
	s.t1.RemoveFrame(frameID)
	if s.t2 != nil {
		if err := s.t2.Put(entry); err != nil {
			return err
		}
	}
	s.ann.MarkDeleted(frameID)
	s.temporal.Remove(createdAt, frameID)
	return nil
}

// demoteT2Entry implements Compressed->Gist / Compressed->Tombstoned /
// Gist->Tombstoned: a T2 Put under the same frame id (LSM newest-wins);
// ANN and temporal are already clean from the Full->* transition that put
// the frame into T2 in the first place.
func (s *VoltStore) demoteT2Entry(entry *FrameEntry, target DecayLevel, now uint64) error {
	frameID, strandID := entry.FrameID(), entry.StrandID()
	var supersededBy *uint64
	if id, ok := s.supersededBy[frameID]; ok {
		supersededBy = &id
	}
	switch target {
	case DecayGist:
		cf := entry.Compressed
		gist, ok := extractGistFromCompressed(cf)
		if !ok {
			t := &Tombstone{FrameID: frameID, StrandID: strandID, TombstonedAt: now, SupersededBy: supersededBy}
			return s.writeT2Demotion(frameID, strandID, WalOpTombstone, t.ToBinary(), &FrameEntry{Tomb: t})
		}
		gf := cf.ToGistFrame(gist)
		return s.writeT2Demotion(frameID, strandID, WalOpGist, gf.ToBinary(), &FrameEntry{Gist: gf})
	default: // DecayTombstoned, from either Compressed or Gist
		t := &Tombstone{FrameID: frameID, StrandID: strandID, TombstonedAt: now, SupersededBy: supersededBy}
		return s.writeT2Demotion(frameID, strandID, WalOpTombstone, t.ToBinary(), &FrameEntry{Tomb: t})
	}
}

func (s *VoltStore) writeT2Demotion(frameID, strandID uint64, op WalOp, payload []byte, entry *FrameEntry) error {
	if s.wal != nil {
		if err := s.wal.LogEntry(&WalEntry{FrameID: frameID, StrandID: strandID, Op: op, Payload: payload}); err != nil {
			return err
		}
	}
	return s.t2.Put(entry)
}

// extractGistFromCompressed mirrors ExtractGist but reads a CompressedSlot's
// R0 instead of a TensorFrame slot's, for the Compressed->Gist GC
// transition where no TensorFrame is available anymore.
func extractGistFromCompressed(cf *CompressedFrame) (*voltframe.Vector, bool) {
	var sum voltframe.Vector
	count := 0
	for _, s := range cf.Slots {
		if s == nil || s.R0 == nil {
			continue
		}
		for i, v := range s.R0 {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil, false
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return normalizeInPlace(&sum)
}

func normalizeInPlace(v *voltframe.Vector) (*voltframe.Vector, bool) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm < 1e-10 {
		return nil, false
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, true
}
