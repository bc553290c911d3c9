package voltstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Tier2Store is the cold, on-disk tier: an LSM-style engine with an
// in-memory memtable absorbing writes, flushed to immutable bloom-filtered
// sorted runs on disk once it grows past MemtableFlushThreshold, with
// leveled compaction keeping the number of runs per level bounded.
type Tier2Store struct {
	cfg      T2Config
	memtable map[uint64]*FrameEntry
	memSize  int64
	levels   [][]*sortedRun // levels[0] newest/hottest; each level sorted newest-run-first
	nextRun  int
}

// OpenTier2Store creates cfg.DataDir if needed, then reloads any existing
// sorted-run files into their levels. A bad magic/version/truncated
// region on any existing run fails the entire open, per spec §7.
func OpenTier2Store(cfg T2Config) (*Tier2Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, wrapStorage("create t2 dir", err)
	}
	t := &Tier2Store{
		cfg:      cfg,
		memtable: make(map[uint64]*FrameEntry),
		levels:   make([][]*sortedRun, cfg.MaxLevels),
	}

	entries, err := os.ReadDir(cfg.DataDir)
	if err != nil {
		return nil, wrapStorage("read t2 dir", err)
	}
	maxRunID := -1
	for _, de := range entries {
		var level, runID int
		if n, _ := fmt.Sscanf(de.Name(), "run_%d_L%d.vxr", &runID, &level); n != 2 {
			continue
		}
		run, err := openSortedRun(filepath.Join(cfg.DataDir, de.Name()), level, runID)
		if err != nil {
			return nil, err
		}
		if level >= len(t.levels) {
			grown := make([][]*sortedRun, level+1)
			copy(grown, t.levels)
			t.levels = grown
		}
		t.levels[level] = append(t.levels[level], run)
		if runID > maxRunID {
			maxRunID = runID
		}
	}
	for lvl := range t.levels {
		sort.Slice(t.levels[lvl], func(i, j int) bool { return t.levels[lvl][i].runID > t.levels[lvl][j].runID })
	}
	t.nextRun = maxRunID + 1
	return t, nil
}

func frameEntrySize(e *FrameEntry) int64 {
	b, err := e.ToBinary()
	if err != nil {
		return 0
	}
	return int64(len(b))
}

// Put writes entry into the memtable, possibly triggering a flush once
// the accumulated size crosses MemtableFlushThreshold. A later Put for
// the same frame id overwrites the earlier one (LSM newest-wins).
func (t *Tier2Store) Put(entry *FrameEntry) error {
	id := entry.FrameID()
	if old, ok := t.memtable[id]; ok {
		t.memSize -= frameEntrySize(old)
	}
	t.memtable[id] = entry
	t.memSize += frameEntrySize(entry)
	if t.memSize >= t.cfg.MemtableFlushThreshold {
		return t.Flush()
	}
	return nil
}

// Get looks up frameID: memtable first, then each level from newest to
// oldest run, returning the first (therefore newest) hit.
func (t *Tier2Store) Get(frameID uint64) (*FrameEntry, error) {
	if e, ok := t.memtable[frameID]; ok {
		return e, nil
	}
	for _, level := range t.levels {
		for _, run := range level {
			if payload := run.get(frameID); payload != nil {
				return FrameEntryFromBinary(payload)
			}
		}
	}
	return nil, nil
}

// ScanStrand linearly scans every entry in the memtable and every sorted
// run, decoding each and keeping those whose strand matches strandID. A
// frame id present in more than one place (memtable shadows a run, a newer
// run shadows an older one) is reported only once, from its newest copy.
func (t *Tier2Store) ScanStrand(strandID uint64) ([]*FrameEntry, error) {
	newest := make(map[uint64]*FrameEntry)
	order := make([]uint64, 0)
	consider := func(id uint64, e *FrameEntry) {
		if _, ok := newest[id]; !ok {
			order = append(order, id)
		}
		newest[id] = e
	}
	// Oldest level first, oldest run first, memtable last: each later copy
	// overwrites the earlier one in newest, so the newest copy wins.
	for l := len(t.levels) - 1; l >= 0; l-- {
		level := t.levels[l]
		for i := len(level) - 1; i >= 0; i-- {
			run := level[i]
			for _, id := range run.frameIDs() {
				payload := run.get(id)
				e, err := FrameEntryFromBinary(payload)
				if err != nil {
					return nil, err
				}
				consider(id, e)
			}
		}
	}
	for id, e := range t.memtable {
		consider(id, e)
	}
	out := make([]*FrameEntry, 0, len(order))
	for _, id := range order {
		e := newest[id]
		if e.StrandID() == strandID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of distinct frame ids visible across the
// memtable and all sorted runs (a frame present in both is counted once;
// older levels' entries shadowed by a newer one are not counted).
func (t *Tier2Store) Len() int {
	seen := make(map[uint64]bool, len(t.memtable))
	for id := range t.memtable {
		seen[id] = true
	}
	for _, level := range t.levels {
		for _, run := range level {
			for _, id := range run.frameIDs() {
				seen[id] = true
			}
		}
	}
	return len(seen)
}

// Flush writes the memtable out as a new level-0 sorted run, then checks
// whether level 0 now needs compacting.
func (t *Tier2Store) Flush() error {
	if len(t.memtable) == 0 {
		return nil
	}
	path := filepath.Join(t.cfg.DataDir, fmt.Sprintf("run_%d_L%d.vxr", t.nextRun, 0))
	run, err := writeSortedRun(path, 0, t.nextRun, t.memtable, t.cfg.BloomFPR)
	if err != nil {
		return err
	}
	t.nextRun++
	t.levels[0] = append([]*sortedRun{run}, t.levels[0]...)
	t.memtable = make(map[uint64]*FrameEntry)
	t.memSize = 0
	return t.maybeCompact(0)
}

// maybeCompact merges level's runs into the next level once it holds
// more than MaxRunsPerLevel runs, cascading if the target level then also
// overflows. A no-op once level reaches the last configured level.
func (t *Tier2Store) maybeCompact(level int) error {
	if level >= len(t.levels)-1 {
		return nil
	}
	if len(t.levels[level]) <= t.cfg.MaxRunsPerLevel {
		return nil
	}
	merged := make(map[uint64]*FrameEntry)
	// Runs are newest-first; iterate oldest-to-newest so later (newer)
	// writes overwrite earlier ones in the merge map.
	runs := t.levels[level]
	for i := len(runs) - 1; i >= 0; i-- {
		for _, id := range runs[i].frameIDs() {
			payload := runs[i].get(id)
			entry, err := FrameEntryFromBinary(payload)
			if err != nil {
				return err
			}
			merged[id] = entry
		}
	}

	nextLevel := level + 1
	path := filepath.Join(t.cfg.DataDir, fmt.Sprintf("run_%d_L%d.vxr", t.nextRun, nextLevel))
	newRun, err := writeSortedRun(path, nextLevel, t.nextRun, merged, t.cfg.BloomFPR)
	if err != nil {
		return err
	}
	t.nextRun++

	oldPaths := make([]string, len(runs))
	for i, r := range runs {
		oldPaths[i] = r.path
		if err := r.close(); err != nil {
			return wrapStorage("close compacted run", err)
		}
	}
	t.levels[level] = nil
	t.levels[nextLevel] = append([]*sortedRun{newRun}, t.levels[nextLevel]...)

	for _, p := range oldPaths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return wrapStorage("remove compacted run", err)
		}
	}
	return t.maybeCompact(nextLevel)
}

// Close releases every mmap held by the store's sorted runs.
func (t *Tier2Store) Close() error {
	for _, level := range t.levels {
		for _, run := range level {
			if err := run.close(); err != nil {
				return err
			}
		}
	}
	return nil
}
