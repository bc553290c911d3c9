package voltstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentAllowsParallelReaders(t *testing.T) {
	c := NewConcurrent(NewMemoryStore(64))
	id, err := c.Store(testFrame(1, 0.9), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := c.GetByID(id)
			require.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestConcurrentSerializesWriters(t *testing.T) {
	c := NewConcurrent(NewMemoryStore(64))

	var wg sync.WaitGroup
	ids := make([]uint64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := c.Store(testFrame(1, 0.9), 0)
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		require.False(t, seen[id], "serialized writers must never hand out the same frame id twice")
		seen[id] = true
	}
}
