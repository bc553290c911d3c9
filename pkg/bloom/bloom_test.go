package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertedKeysAlwaysHit(t *testing.T) {
	f := New(10_000, 0.01)
	for i := uint64(0); i < 1000; i++ {
		f.Insert(i)
	}
	for i := uint64(0); i < 1000; i++ {
		require.True(t, f.MayContain(i), "key %d should hit", i)
	}
}

func TestFalsePositiveRateBounded(t *testing.T) {
	f := New(10_000, 0.01)
	for i := uint64(0); i < 1000; i++ {
		f.Insert(i)
	}
	hits := 0
	const samples = 10_000
	for i := uint64(1000); i < 1000+samples; i++ {
		if f.MayContain(i) {
			hits++
		}
	}
	rate := float64(hits) / float64(samples)
	require.Less(t, rate, 0.05)
}

func TestBytesRoundtrip(t *testing.T) {
	f := New(100, 0.01)
	for i := uint64(0); i < 50; i++ {
		f.Insert(i)
	}
	restored, err := FromBytes(f.Bytes())
	require.NoError(t, err)
	for i := uint64(0); i < 50; i++ {
		require.True(t, restored.MayContain(i))
	}
}

func TestFromBytesShortBufferErrors(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}
