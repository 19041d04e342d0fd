package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var mu sync.Mutex
	counters := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "item:1", "item:2")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			counters["a"]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counters["a"])
}

func TestKeyedMutexDeduplicatesKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlock, err := km.Lock(context.Background(), "item:1", "item:1")
	require.NoError(t, err)
	unlock()

	// a second acquisition must not deadlock against leftover holds
	unlock, err = km.Lock(context.Background(), "item:1")
	require.NoError(t, err)
	unlock()
}
