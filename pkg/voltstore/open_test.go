package voltstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenStoreCloseReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	s, err := Open(cfg)
	require.NoError(t, err)

	id, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.GetByID(id)
	require.True(t, ok)
	require.Equal(t, id, got.FrameMeta.FrameID)
}

func TestOpenTwiceFailsWithLock(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(cfg)
	require.Error(t, err)
}

func TestOpenReplaysUncheckpointedWAL(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	s, err := Open(cfg)
	require.NoError(t, err)
	id, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	// Simulate a crash: the WAL record is durable but the process never
	// called Close (so no clean shutdown happened). A dead process's flock
	// is released by the OS, so only the data-dir lock is dropped here.
	require.NoError(t, s.wal.SyncAll())
	s.flk.release()

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.GetByID(id)
	require.True(t, ok, "replay must recover the frame from its WAL record")
	require.Equal(t, id, got.FrameMeta.FrameID)
}

func TestOpenNextFrameIDAdvancesPastReplayedFrames(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	s, err := Open(cfg)
	require.NoError(t, err)
	id, err := s.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	nextID, err := reopened.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)
	require.Greater(t, nextID, id)
}
