package voltstore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voltxa/voltdb/pkg/voltframe"
)

func TestConsolidateStrandSynthesizesWisdomFrame(t *testing.T) {
	s := NewMemoryStore(128)
	const strand = 0
	for i := 0; i < 10; i++ {
		_, err := s.Store(testFrame(1, 0.6), strand)
		require.NoError(t, err)
	}

	result, err := s.ConsolidateStrand(strand)
	require.NoError(t, err)
	require.Equal(t, 1, result.ClustersFound)
	require.Len(t, result.WisdomFrames, 1)

	wisdomID := result.WisdomFrames[0]
	wisdom, ok := s.GetByID(wisdomID)
	require.True(t, ok)
	require.GreaterOrEqual(t, wisdom.FrameMeta.GlobalCertainty, float32(0.9))
	require.True(t, wisdom.FrameMeta.Verified)
	require.Equal(t, voltframe.SourceMemory, wisdom.Meta[0].Source,
		"a synthesized wisdom-frame slot must be tagged as memory-sourced")

	for id := uint64(1); id < wisdomID; id++ {
		superseded, ok := s.SupersededBy(id)
		require.True(t, ok)
		require.Equal(t, wisdomID, superseded)
	}
}

func TestConsolidateStrandIgnoresDissimilarFrames(t *testing.T) {
	s := NewMemoryStore(128)
	const strand = 0
	for i := 0; i < 5; i++ {
		_, err := s.Store(testFrame(1, 0.6), strand)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := s.Store(testFrame(-1, 0.6), strand)
		require.NoError(t, err)
	}

	result, err := s.ConsolidateStrand(strand)
	require.NoError(t, err)
	require.Equal(t, 2, result.ClustersFound)
	require.Len(t, result.WisdomFrames, 2)
}

func TestConsolidateStrandBelowMinClusterSizeFindsNothing(t *testing.T) {
	s := NewMemoryStore(128)
	const strand = 0
	for i := 0; i < 3; i++ { // fewer than ConsolidationConfig.MinClusterSize (5)
		_, err := s.Store(testFrame(1, 0.6), strand)
		require.NoError(t, err)
	}

	result, err := s.ConsolidateStrand(strand)
	require.NoError(t, err)
	require.Empty(t, result.WisdomFrames)
}
