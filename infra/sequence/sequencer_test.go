package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerStartsAfterSeed(t *testing.T) {
	s := New(41)
	assert.Equal(t, uint64(42), s.Next())
	assert.Equal(t, uint64(43), s.Next())
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := New(0)
	const workers, per = 8, 1000

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, workers*per)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, s.Next())
			}
			mu.Lock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*per)
	assert.Equal(t, uint64(workers*per+1), s.Next())
}
