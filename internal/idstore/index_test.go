package idstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rickgao/collection-replay/internal/model"
)

func TestIndex(t *testing.T) {
	x := NewIndex()

	_, ok := x.Lookup(1)
	assert.False(t, ok)

	x.Remember(1, model.IDEntry{ID: "a", Name: "A"})
	e, ok := x.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "A", e.Name)
	assert.Equal(t, 1, x.Len())
}

func TestIndex_Concurrent(t *testing.T) {
	x := NewIndex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(seq int64) {
			defer wg.Done()
			x.Remember(seq, model.IDEntry{ID: "id"})
			x.Lookup(seq)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 50, x.Len())
}
