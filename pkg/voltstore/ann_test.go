package voltstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnQueryExcludesSoftDeleted(t *testing.T) {
	a := NewAnnIndex()
	f1 := testFrame(1, 0.9)
	f1.FrameMeta.FrameID = 1
	g1, ok := ExtractGist(f1)
	require.True(t, ok)
	a.Insert(0, 1, g1)

	f2 := testFrame(1, 0.9)
	f2.FrameMeta.FrameID = 2
	g2, ok := ExtractGist(f2)
	require.True(t, ok)
	a.Insert(0, 2, g2)

	require.Equal(t, 2, a.Len())
	a.MarkDeleted(1)
	require.Equal(t, 1, a.Len())

	hits := a.QueryStrand(0, g1, 10)
	require.Len(t, hits, 1)
	require.Equal(t, uint64(2), hits[0].FrameID)
}
