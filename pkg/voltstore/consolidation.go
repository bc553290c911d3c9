package voltstore

import (
	"github.com/voltxa/voltdb/pkg/voltframe"
)

// unionFind is a standard disjoint-set structure over {0..n-1}, used to
// discover connected components of "similar enough" gists.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// FrameCluster groups the frame ids consolidation decided are similar
// enough to synthesize a wisdom frame from.
type FrameCluster struct {
	FrameIDs []uint64
	// AverageCertainty is carried for API parity with the reference
	// source's FrameCluster, which always sets this to 0.5 since
	// clustering operates on gist-only data with no real certainty
	// available at that point. Wisdom-frame synthesis does not read this
	// field (it derives gamma from ConsolidationConfig.WisdomGamma
	// instead) — see DESIGN.md.
	AverageCertainty float32
}

// gistSource supplies the candidate gists for one strand's consolidation
// pass: frame id, its gist vector, and which slot each gist's underlying
// frame populated at R0 (needed to synthesize the wisdom frame's slots).
type gistSource struct {
	frameID uint64
	gist    *voltframe.Vector
	frame   *voltframe.TensorFrame
}

// DiscoverClusters implements spec §4.10's cluster discovery: union-find
// over positions 0..n-1, unioning any pair whose ANN-reported similarity
// meets the threshold. Returns clusters with at least minClusterSize
// members.
func DiscoverClusters(ann *AnnIndex, strandID uint64, sources []gistSource, cfg ConsolidationConfig) []FrameCluster {
	n := len(sources)
	if n == 0 {
		return nil
	}
	uf := newUnionFind(n)
	byID := make(map[uint64]int, n)
	for i, s := range sources {
		byID[s.frameID] = i
	}

	for i, s := range sources {
		hits := ann.QueryStrand(strandID, s.gist, cfg.QueryK)
		for _, hit := range hits {
			if hit.FrameID == s.frameID {
				continue
			}
			j, ok := byID[hit.FrameID]
			if !ok {
				continue
			}
			similarity := 1 - hit.Distance
			if similarity >= cfg.SimilarityThreshold {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range sources {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var clusters []FrameCluster
	for _, members := range groups {
		if len(members) < cfg.MinClusterSize {
			continue
		}
		ids := make([]uint64, len(members))
		for k, idx := range members {
			ids[k] = sources[idx].frameID
		}
		clusters = append(clusters, FrameCluster{FrameIDs: ids, AverageCertainty: 0.5})
	}
	return clusters
}

// SynthesizeWisdomFrame averages the R0 resolution of every slot position
// that any member frame populated, L2-normalizes each averaged slot, and
// produces a new frame: same strand, DiscourseResponse, Verified=true,
// GlobalCertainty=cfg.WisdomGamma, CreatedAt=now.
func SynthesizeWisdomFrame(strandID uint64, newFrameID uint64, members []*voltframe.TensorFrame, cfg ConsolidationConfig, now uint64) *voltframe.TensorFrame {
	wisdom := voltframe.New()
	var sums [voltframe.MaxSlots]voltframe.Vector
	var counts [voltframe.MaxSlots]int
	var roles [voltframe.MaxSlots]voltframe.SlotRole

	for _, f := range members {
		for i, s := range f.Slots {
			if s == nil || s.Resolutions[0] == nil {
				continue
			}
			if counts[i] == 0 {
				roles[i] = s.Role // first-seen role wins
			}
			r0 := s.Resolutions[0]
			for d, v := range r0 {
				sums[i][d] += v
			}
			counts[i]++
		}
	}

	for i := 0; i < voltframe.MaxSlots; i++ {
		if counts[i] == 0 {
			continue
		}
		vec := sums[i]
		for d := range vec {
			vec[d] /= float32(counts[i])
		}
		slot := voltframe.SlotData{Role: roles[i]}
		slot.WriteResolution(0, vec)
		wisdom.Slots[i] = &slot
		wisdom.Meta[i] = voltframe.SlotMeta{Certainty: cfg.WisdomGamma, Source: voltframe.SourceMemory}
	}
	_ = wisdom.NormalizeAll() // best-effort; an all-zero averaged slot (no source data) is skipped above

	wisdom.FrameMeta = voltframe.FrameMeta{
		FrameID:         newFrameID,
		StrandID:        strandID,
		CreatedAt:       now,
		GlobalCertainty: cfg.WisdomGamma,
		DiscourseType:   voltframe.DiscourseResponse,
		Verified:        true,
	}
	return wisdom
}
