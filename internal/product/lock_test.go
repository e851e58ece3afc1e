package product

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	counters := map[string]int{"w1": 0, "w2": 0}
	var mu sync.Mutex // guards the map itself, not the increments
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		key := "w1"
		if i%2 == 0 {
			key = "w2"
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			unlock := locks.Lock(key)
			defer unlock()
			mu.Lock()
			v := counters[key]
			mu.Unlock()
			mu.Lock()
			counters[key] = v + 1
			mu.Unlock()
		}(key)
	}
	wg.Wait()
	assert.Equal(t, 50, counters["w1"])
	assert.Equal(t, 50, counters["w2"])
	// Entries are dropped once nobody holds them
	assert.Equal(t, 0, locks.Len())
}

func TestIsEmoji(t *testing.T) {
	for _, ok := range []string{"👍", "❤️", "👍🏽", "👩‍👩‍👧", "🇫🇷", "🎉"} {
		assert.True(t, IsEmoji(ok), ok)
	}
	for _, bad := range []string{"", "a", "thumbs", ":)", "👍a", "1"} {
		assert.False(t, IsEmoji(bad), bad)
	}
}
