package voltstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/voltxa/voltdb/pkg/voltframe"
)

// These use go-cmp rather than testify/require.Equal because CompressedFrame,
// GistFrame, and Tombstone carry pointer fields (R0, R1, CodebookID,
// SupersededBy, ...) — cmp.Diff follows pointers and reports which leaf
// field actually differs, where require.Equal would just say "not equal".

func TestCompressedFrameBinaryRoundTrip(t *testing.T) {
	f := testFrame(1, 0.88)
	f.FrameMeta.FrameID = 7
	f.FrameMeta.StrandID = 3
	f.FrameMeta.Verified = true

	original := Compress(f)
	decoded, err := CompressedFrameFromBinary(original.ToBinary())
	require.NoError(t, err)

	// SlotRole keeps its tag/free fields unexported; cmp must be allowed to read them.
	if diff := cmp.Diff(original, decoded, cmp.AllowUnexported(voltframe.SlotRole{})); diff != "" {
		t.Errorf("CompressedFrame round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGistFrameBinaryRoundTrip(t *testing.T) {
	f := testFrame(1, 0.5)
	f.FrameMeta.FrameID = 9
	cf := Compress(f)
	gist, ok := ExtractGist(f)
	require.True(t, ok)

	original := cf.ToGistFrame(gist)
	decoded, err := GistFrameFromBinary(original.ToBinary())
	require.NoError(t, err)

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("GistFrame round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTombstoneBinaryRoundTrip(t *testing.T) {
	f := testFrame(1, 0.5)
	f.FrameMeta.FrameID = 11
	cf := Compress(f)
	gist, ok := ExtractGist(f)
	require.True(t, ok)
	gf := cf.ToGistFrame(gist)

	supersededBy := uint64(99)
	original := gf.ToTombstone(12345, &supersededBy)
	decoded, err := TombstoneFromBinary(original.ToBinary())
	require.NoError(t, err)

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("Tombstone round trip mismatch (-want +got):\n%s", diff)
	}
}
