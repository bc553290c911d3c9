package voltstore

import "sort"

// TemporalIndex maps creation timestamps to the frame ids created at that
// instant, supporting range queries. Go has no built-in ordered map, so
// this keeps keys sorted in a slice alongside the timestamp->ids map,
// matching the reference source's BTreeMap<u64, Vec<u64>> semantics.
// Rebuilt from T1 on every startup; never persisted.
type TemporalIndex struct {
	byTime map[uint64][]uint64
	times  []uint64 // kept sorted ascending
}

// NewTemporalIndex returns an empty index.
func NewTemporalIndex() *TemporalIndex {
	return &TemporalIndex{byTime: make(map[uint64][]uint64)}
}

// Insert records that frameID was created at timestamp ts.
func (idx *TemporalIndex) Insert(ts uint64, frameID uint64) {
	ids, exists := idx.byTime[ts]
	if !exists {
		pos := sort.Search(len(idx.times), func(i int) bool { return idx.times[i] >= ts })
		idx.times = append(idx.times, 0)
		copy(idx.times[pos+1:], idx.times[pos:])
		idx.times[pos] = ts
	}
	idx.byTime[ts] = append(ids, frameID)
}

// Remove drops frameID from the timestamp it was recorded under.
func (idx *TemporalIndex) Remove(ts uint64, frameID uint64) {
	ids, ok := idx.byTime[ts]
	if !ok {
		return
	}
	for i, id := range ids {
		if id == frameID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(idx.byTime, ts)
		pos := sort.Search(len(idx.times), func(i int) bool { return idx.times[i] >= ts })
		if pos < len(idx.times) && idx.times[pos] == ts {
			idx.times = append(idx.times[:pos], idx.times[pos+1:]...)
		}
		return
	}
	idx.byTime[ts] = ids
}

// QueryRange returns every frame id created within [lo, hi], inclusive,
// ordered by timestamp then insertion order.
func (idx *TemporalIndex) QueryRange(lo, hi uint64) []uint64 {
	var out []uint64
	start := sort.Search(len(idx.times), func(i int) bool { return idx.times[i] >= lo })
	for i := start; i < len(idx.times) && idx.times[i] <= hi; i++ {
		out = append(out, idx.byTime[idx.times[i]]...)
	}
	return out
}

// Len returns the number of distinct timestamps indexed.
func (idx *TemporalIndex) Len() int { return len(idx.times) }
