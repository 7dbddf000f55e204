package idstore

import (
	"sync"

	"github.com/rickgao/collection-replay/internal/model"
)

// Index maps issued sequence ids back to the store entry they were built from.
// The source records every item it yields; the router looks labels up when a response arrives.
type Index struct {
	mu      sync.RWMutex
	entries map[int64]model.IDEntry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[int64]model.IDEntry)}
}

// Remember records the entry for seq.
func (x *Index) Remember(seq int64, e model.IDEntry) {
	x.mu.Lock()
	x.entries[seq] = e
	x.mu.Unlock()
}

// Lookup returns the entry for seq.
func (x *Index) Lookup(seq int64) (model.IDEntry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[seq]
	return e, ok
}

// Len returns the number of remembered entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
