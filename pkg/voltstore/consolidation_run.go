package voltstore

import "github.com/voltxa/voltdb/pkg/voltframe"

// ConsolidationResult summarizes one consolidate_strand pass.
type ConsolidationResult struct {
	ClustersFound int
	WisdomFrames  []uint64
}

// ConsolidateStrand runs §4.10's consolidation engine over every Full
// frame currently resident in strandID (T0 and T1): discover clusters of
// similar gists via the strand's own ANN index, then synthesize and store
// a wisdom frame per surviving cluster through the normal Store path (so
// it is WAL-logged, indexed, and queryable like any other frame). Source
// frames are recorded as superseded by their cluster's wisdom frame.
func (s *VoltStore) ConsolidateStrand(strandID uint64) (*ConsolidationResult, error) {
	members := s.GetByStrand(strandID)
	sources := make([]gistSource, 0, len(members))
	byID := make(map[uint64]*voltframe.TensorFrame, len(members))
	for _, f := range members {
		gist, ok := ExtractGist(f)
		if !ok {
			continue
		}
		sources = append(sources, gistSource{frameID: f.FrameMeta.FrameID, gist: gist, frame: f})
		byID[f.FrameMeta.FrameID] = f
	}

	clusters := DiscoverClusters(s.ann, strandID, sources, s.cfg.Consolidation)
	result := &ConsolidationResult{ClustersFound: len(clusters)}

	for _, cluster := range clusters {
		clusterFrames := make([]*voltframe.TensorFrame, 0, len(cluster.FrameIDs))
		for _, id := range cluster.FrameIDs {
			if f, ok := byID[id]; ok {
				clusterFrames = append(clusterFrames, f)
			}
		}
		if len(clusterFrames) == 0 {
			continue
		}
		now := s.clock()
		wisdom := SynthesizeWisdomFrame(strandID, s.nextFrameID, clusterFrames, s.cfg.Consolidation, now)
		wisdomID, err := s.Store(wisdom, strandID)
		if err != nil {
			return nil, err
		}
		s.wisdom[wisdomID] = true
		for _, id := range cluster.FrameIDs {
			s.supersededBy[id] = wisdomID
		}
		result.WisdomFrames = append(result.WisdomFrames, wisdomID)
	}
	result.WisdomFrames = sortUint64s(result.WisdomFrames)
	return result, nil
}

// SupersededBy reports the wisdom frame id that superseded frameID via
// consolidation, if any. Used when a superseded source frame later decays
// all the way to Tombstoned: its tombstone's SupersededBy field is filled
// in from this map (§4.10).
func (s *VoltStore) SupersededBy(frameID uint64) (uint64, bool) {
	id, ok := s.supersededBy[frameID]
	return id, ok
}
