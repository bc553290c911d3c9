package voltstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreAndGetByID(t *testing.T) {
	s := NewMemoryStore(4)
	id, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)

	got, ok := s.GetByID(id)
	require.True(t, ok)
	require.Equal(t, id, got.FrameMeta.FrameID)
	require.Equal(t, uint64(0), got.FrameMeta.StrandID)
}

func TestGetByIDMissingReturnsFalse(t *testing.T) {
	s := NewMemoryStore(4)
	_, ok := s.GetByID(999)
	require.False(t, ok)
}

func TestStoreAssignsMonotonicFrameIDs(t *testing.T) {
	s := NewMemoryStore(4)
	first, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	second, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestStoreRejectsNonFiniteVector(t *testing.T) {
	s := NewMemoryStore(4)
	f := testFrame(1, 0.9)
	var nan float32
	nan = nan / nan
	f.Slots[0].Resolutions[0][0] = nan

	_, err := s.Store(f, 0)
	require.Error(t, err)
}

func TestT0OverflowSpillsIntoT1(t *testing.T) {
	s := NewMemoryStore(2)
	var ids []uint64
	for i := 0; i < 3; i++ {
		id, err := s.Store(testFrame(1, 0.9), 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// The ring only holds 2; the oldest (ids[0]) must have spilled into T1,
	// but get_by_id still finds it there.
	got, ok := s.GetByID(ids[0])
	require.True(t, ok)
	require.Equal(t, ids[0], got.FrameMeta.FrameID)

	got, ok = s.GetByID(ids[2])
	require.True(t, ok)
	require.Equal(t, ids[2], got.FrameMeta.FrameID)
}

func TestGetByStrandReturnsOnlyThatStrand(t *testing.T) {
	s := NewMemoryStore(8)
	_, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	id1, err := s.Store(testFrame(1, 0.9), 1)
	require.NoError(t, err)

	frames := s.GetByStrand(1)
	require.Len(t, frames, 1)
	require.Equal(t, id1, frames[0].FrameMeta.FrameID)
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	s := NewMemoryStore(8)
	_, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	id2, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)

	recent := s.Recent(1)
	require.Len(t, recent, 1)
	require.Equal(t, id2, recent[0].FrameMeta.FrameID)
}

func TestQuerySimilarFindsClosestGist(t *testing.T) {
	s := NewMemoryStore(8)
	idSame, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(-1, 0.9), 0)
	require.NoError(t, err)

	query := testFrame(1, 0.9)
	gist, ok := ExtractGist(query)
	require.True(t, ok)

	hits := s.QuerySimilar(gist, 1)
	require.Len(t, hits, 1)
	require.Equal(t, idSame, hits[0].FrameID)
}

func TestPinExemptsFromGC(t *testing.T) {
	s := NewMemoryStore(1) // capacity 1: the second Store evicts the first frame into T1, where GC scores it
	const created uint64 = 1_000_000
	s.clock = func() uint64 { return created }
	id, err := s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)
	s.PinFrame(id)
	require.True(t, s.IsFramePinned(id))

	far := created + 365*uint64(microsPerDay)
	_, err = s.RunGCAt(far)
	require.NoError(t, err)

	_, ok := s.GetByID(id)
	require.True(t, ok, "a pinned frame must survive GC regardless of age or certainty")
}

func TestLowScoreFrameDecaysUnderGC(t *testing.T) {
	s := NewMemoryStore(1) // capacity 1: the second Store evicts the first frame into T1, where GC scores it
	const created uint64 = 1_000_000
	s.clock = func() uint64 { return created }
	id, err := s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)

	far := created + 365*uint64(microsPerDay)
	result, err := s.RunGCAt(far)
	require.NoError(t, err)
	require.NotEmpty(t, result.Demoted)
	require.Equal(t, DecayFull, result.Demoted[0].From)
	require.Less(t, result.Demoted[0].To, DecayFull)

	_, ok := s.GetByID(id)
	require.False(t, ok, "a demoted frame is no longer a Full get_by_id hit")
}

func TestGCIsIdempotent(t *testing.T) {
	s := NewMemoryStore(1) // capacity 1: the second Store evicts the first frame into T1, where GC scores it
	const created uint64 = 1_000_000
	s.clock = func() uint64 { return created }
	_, err := s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(1, 0.05), 0)
	require.NoError(t, err)

	far := created + 365*uint64(microsPerDay)
	first, err := s.RunGCAt(far)
	require.NoError(t, err)
	require.NotEmpty(t, first.Demoted)

	second, err := s.RunGCAt(far)
	require.NoError(t, err)
	require.Empty(t, second.Demoted, "a second pass at the same time must find nothing left to do")
}

func TestSaveLoadRoundTripsT1(t *testing.T) {
	s := NewMemoryStore(1) // capacity 1: the second Store evicts the first frame into T1
	id1, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(1, 0.8), 0)
	require.NoError(t, err)

	path := t.TempDir() + "/t1.json"
	require.NoError(t, s.Save(path))

	loaded := NewMemoryStore(1)
	require.NoError(t, loaded.Load(path))

	got, ok := loaded.GetByID(id1)
	require.True(t, ok)
	require.Equal(t, id1, got.FrameMeta.FrameID)
}

func TestReassignFrameStrandMovesFrame(t *testing.T) {
	s := NewMemoryStore(1) // force into T1 immediately
	id, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	_, err = s.Store(testFrame(1, 0.9), 0) // evicts the first into T1
	require.NoError(t, err)

	require.True(t, s.ReassignFrameStrand(id, 7))
	frames := s.GetByStrand(7)
	require.Len(t, frames, 1)
	require.Equal(t, id, frames[0].FrameMeta.FrameID)
}
