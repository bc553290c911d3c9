package voltstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func corruptHeaderByte(t *testing.T, path string, offset int64, b byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{b}, offset)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestWriteSortedRunGetRoundTrip(t *testing.T) {
	entries := map[uint64]*FrameEntry{}
	for id := uint64(1); id <= 5; id++ {
		f := testFrame(1, 0.7)
		f.FrameMeta.FrameID = id
		f.FrameMeta.StrandID = 0
		entries[id] = &FrameEntry{Compressed: Compress(f)}
	}

	path := filepath.Join(t.TempDir(), "run_0_L0.vxr")
	run, err := writeSortedRun(path, 0, 0, entries, 0.01)
	require.NoError(t, err)
	defer run.close()

	for id := uint64(1); id <= 5; id++ {
		payload := run.get(id)
		require.NotNil(t, payload)
		e, err := FrameEntryFromBinary(payload)
		require.NoError(t, err)
		require.Equal(t, id, e.FrameID())
	}

	require.Nil(t, run.get(999), "a frame id never inserted must not be found")
}

func TestOpenSortedRunRejectsBadMagic(t *testing.T) {
	f := testFrame(1, 0.7)
	f.FrameMeta.FrameID = 1
	entries := map[uint64]*FrameEntry{1: {Compressed: Compress(f)}}

	path := filepath.Join(t.TempDir(), "run_0_L0.vxr")
	run, err := writeSortedRun(path, 0, 0, entries, 0.01)
	require.NoError(t, err)
	require.NoError(t, run.close())

	corruptHeaderByte(t, path, 0, 'X')

	_, err = openSortedRun(path, 0, 0)
	require.ErrorIs(t, err, ErrSortedRun)
}
