package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedLocksMutualExclusion(t *testing.T) {
	var locks KeyedLocks
	var mu sync.Mutex
	inCritical := false

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Acquire("k")
			defer unlock()

			mu.Lock()
			require.False(t, inCritical, "two holders inside the same key's section")
			inCritical = true
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical = false
			mu.Unlock()
		}()
	}
	wg.Wait()
}

func TestKeyedLocksDistinctKeysDoNotBlock(t *testing.T) {
	var locks KeyedLocks
	unlockA := locks.Acquire("a")
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlockB := locks.Acquire("b")
		defer unlockB()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("distinct key blocked behind an unrelated holder")
	}
}
