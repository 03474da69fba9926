package locking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// alternate key order to exercise sorted acquisition
			keys := []string{"stand:a", "supplier:x"}
			if i%2 == 0 {
				keys = []string{"supplier:x", "stand:a", "stand:a"}
			}
			unlock := k.Lock(keys...)
			counter++
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_IgnoresEmptyKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlock := k.Lock("", "stand:a", "")
	unlock()

	unlock = k.Lock("stand:a")
	unlock()
}
