package voltstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTier2PutGetRoundTrip(t *testing.T) {
	cfg := DefaultT2Config()
	cfg.DataDir = t.TempDir()
	store, err := OpenTier2Store(cfg)
	require.NoError(t, err)
	defer store.Close()

	f := testFrame(1, 0.7)
	f.FrameMeta.FrameID = 42
	f.FrameMeta.StrandID = 3
	cf := Compress(f)

	require.NoError(t, store.Put(&FrameEntry{Compressed: cf}))

	got, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(42), got.FrameID())
	require.Equal(t, uint64(3), got.StrandID())
}

func TestTier2FlushMakesEntriesVisibleAfterMemtableReset(t *testing.T) {
	cfg := DefaultT2Config()
	cfg.DataDir = t.TempDir()
	cfg.MemtableFlushThreshold = 1 // force an immediate flush on the first Put
	store, err := OpenTier2Store(cfg)
	require.NoError(t, err)
	defer store.Close()

	f := testFrame(1, 0.7)
	f.FrameMeta.FrameID = 7
	f.FrameMeta.StrandID = 0
	require.NoError(t, store.Put(&FrameEntry{Compressed: Compress(f)}))

	require.Empty(t, store.memtable, "a flush must have emptied the memtable")
	got, err := store.Get(7)
	require.NoError(t, err)
	require.NotNil(t, got, "a flushed entry is still reachable from its sorted run")
}

func TestTier2CompactionMergesLevels(t *testing.T) {
	cfg := DefaultT2Config()
	cfg.DataDir = t.TempDir()
	cfg.MemtableFlushThreshold = 1
	cfg.MaxRunsPerLevel = 2
	store, err := OpenTier2Store(cfg)
	require.NoError(t, err)
	defer store.Close()

	for i := uint64(0); i < 6; i++ {
		f := testFrame(1, 0.7)
		f.FrameMeta.FrameID = i
		f.FrameMeta.StrandID = 0
		require.NoError(t, store.Put(&FrameEntry{Compressed: Compress(f)}))
	}

	require.LessOrEqual(t, len(store.levels[0]), cfg.MaxRunsPerLevel,
		"level 0 must have compacted down once it exceeded MaxRunsPerLevel")

	for i := uint64(0); i < 6; i++ {
		got, err := store.Get(i)
		require.NoError(t, err)
		require.NotNil(t, got)
	}
}

func TestTier2ScanStrandFiltersAndDedups(t *testing.T) {
	cfg := DefaultT2Config()
	cfg.DataDir = t.TempDir()
	cfg.MemtableFlushThreshold = 1
	store, err := OpenTier2Store(cfg)
	require.NoError(t, err)
	defer store.Close()

	mk := func(id, strand uint64) {
		f := testFrame(1, 0.7)
		f.FrameMeta.FrameID = id
		f.FrameMeta.StrandID = strand
		require.NoError(t, store.Put(&FrameEntry{Compressed: Compress(f)}))
	}
	mk(1, 0)
	mk(2, 1)
	mk(3, 0)

	got, err := store.ScanStrand(0)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
