package voltstore

import (
	"sort"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// AnnHit is one result from a similarity query: the matched frame's
// identity plus its cosine distance from the query vector.
type AnnHit struct {
	FrameID  uint64
	StrandID uint64
	Distance float32
	Gist     *voltframe.Vector
}

type annEntry struct {
	frameID uint64
	gist    *voltframe.Vector
}

// AnnIndex is a per-strand approximate-nearest-neighbor index over
// unit-L2 256-dim gist vectors, compared by cosine distance.
//
// The reference implementation backs this with an HNSW graph
// (M=24, max_layer=16, ef_construction=200, ef_search=32). No Go HNSW
// library exists anywhere in the retrieval pack this module was built
// from, and the spec explicitly allows "any index with comparable
// recall/latency" — so this is a flat per-strand linear scan instead: it
// exposes the identical public operations (Insert/QueryStrand/QueryAll/
// MarkDeleted, with soft-deleted entries skipped during the scan) and gets perfect
// recall at the cost of O(n) query time per strand. See DESIGN.md.
type AnnIndex struct {
	byStrand map[uint64][]annEntry
	deleted  map[uint64]bool
}

// NewAnnIndex returns an empty index.
func NewAnnIndex() *AnnIndex {
	return &AnnIndex{
		byStrand: make(map[uint64][]annEntry),
		deleted:  make(map[uint64]bool),
	}
}

// Insert adds frameID's gist vector to strandID's index.
func (a *AnnIndex) Insert(strandID, frameID uint64, gist *voltframe.Vector) {
	a.byStrand[strandID] = append(a.byStrand[strandID], annEntry{frameID: frameID, gist: gist})
}

// MarkDeleted soft-deletes frameID: it is excluded from future query
// results but its storage in the index is not reclaimed (mirrors the
// reference's tombstone-bitset deletion to avoid graph-edge repair).
func (a *AnnIndex) MarkDeleted(frameID uint64) {
	a.deleted[frameID] = true
}

// QueryStrand returns up to k nearest neighbors of query within strandID,
// ascending by distance, excluding soft-deleted frames.
func (a *AnnIndex) QueryStrand(strandID uint64, query *voltframe.Vector, k int) []AnnHit {
	return a.search(a.byStrand[strandID], strandID, query, k)
}

// QueryAll returns up to k nearest neighbors of query across every strand.
func (a *AnnIndex) QueryAll(query *voltframe.Vector, k int) []AnnHit {
	var all []AnnHit
	for strandID, entries := range a.byStrand {
		all = append(all, a.search(entries, strandID, query, k)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func (a *AnnIndex) search(entries []annEntry, strandID uint64, query *voltframe.Vector, k int) []AnnHit {
	hits := make([]AnnHit, 0, len(entries))
	for _, e := range entries {
		if a.deleted[e.frameID] {
			continue
		}
		hits = append(hits, AnnHit{
			FrameID:  e.frameID,
			StrandID: strandID,
			Distance: CosineDistance(query, e.gist),
			Gist:     e.gist,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Len returns the number of live (non-deleted) entries across all
// strands.
func (a *AnnIndex) Len() int {
	n := 0
	for _, entries := range a.byStrand {
		for _, e := range entries {
			if !a.deleted[e.frameID] {
				n++
			}
		}
	}
	return n
}
