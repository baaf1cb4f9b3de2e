package randutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 50; i++ {
		if a.IntN(1<<30) == b.IntN(1<<30) {
			same++
		}
	}
	assert.Less(t, same, 5)
}

func TestLockedWrapsOnce(t *testing.T) {
	l := NewLocked(New(7))
	assert.Same(t, l, NewLocked(l))
}

func TestLockedConcurrentUse(t *testing.T) {
	l := NewLocked(New(7))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				v := l.IntN(6)
				if v < 0 || v >= 6 {
					t.Errorf("out of range: %d", v)
				}
			}
		}()
	}
	wg.Wait()
}
