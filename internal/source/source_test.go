package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/collection-replay/internal/idstore"
	"github.com/rickgao/collection-replay/internal/model"
)

// memStore serves pages from memory.
type memStore struct {
	pages map[int][]model.IDEntry
	fail  map[int]error
	calls []int
}

func (m *memStore) GetPage(_ context.Context, page int) ([]model.IDEntry, error) {
	m.calls = append(m.calls, page)
	if err, ok := m.fail[page]; ok {
		return nil, err
	}
	entries, ok := m.pages[page]
	if !ok {
		return nil, fmt.Errorf("page %d: %w", page, idstore.ErrPageNotFound)
	}
	return entries, nil
}

func newMemStore(pages, perPage int) *memStore {
	m := &memStore{pages: make(map[int][]model.IDEntry)}
	for p := 1; p <= pages; p++ {
		for i := 0; i < perPage; i++ {
			id := fmt.Sprintf("p%d-%d", p, i)
			m.pages[p] = append(m.pages[p], model.IDEntry{ID: id, Name: "name " + id})
		}
	}
	return m
}

func TestSource_UniqueIncreasingSeq(t *testing.T) {
	store := newMemStore(3, 4)
	src := New(DefaultConfig(), store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, items, 12)

	seen := make(map[int64]bool)
	for i, item := range items {
		assert.False(t, seen[item.Seq], "duplicate seq %d", item.Seq)
		seen[item.Seq] = true
		assert.Equal(t, int64(i+1), item.Seq)
	}
	assert.Equal(t, "p1-0", items[0].ResourceID)
	assert.Equal(t, "p3-3", items[11].ResourceID)
	assert.Equal(t, 3, items[11].Page)
}

func TestSource_DeterministicAndRestartable(t *testing.T) {
	store := newMemStore(2, 5)
	src := New(DefaultConfig(), store, nil, nil)

	first, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)
	second, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSource_BaseOffset(t *testing.T) {
	store := newMemStore(1, 3)
	src := New(Config{FirstPage: 1, BaseOffset: 1000}, store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(1001), items[0].Seq)
	assert.Equal(t, int64(1003), items[2].Seq)
}

func TestSource_Skip(t *testing.T) {
	store := newMemStore(2, 3)
	src := New(Config{FirstPage: 1, BaseOffset: 4, Skip: 4}, store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p2-1", items[0].ResourceID)
	assert.Equal(t, int64(9), items[0].Seq)
}

func TestSource_SkipKeepsFullRunSeq(t *testing.T) {
	store := newMemStore(2, 2)

	full, err := Collect(New(DefaultConfig(), store, nil, nil).Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, full, 4)

	resumed, err := Collect(New(Config{FirstPage: 1, Skip: 2}, store, nil, nil).Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, resumed, 2)

	// A resumed item carries the same seq it had in the full run, so no id is reused.
	assert.Equal(t, full[2:], resumed)
	assert.Equal(t, int64(3), resumed[0].Seq)
	assert.Equal(t, "p2-0", resumed[0].ResourceID)
}

func TestSource_PageRange(t *testing.T) {
	store := newMemStore(5, 2)
	src := New(Config{FirstPage: 2, LastPage: 3}, store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, []int{2, 3}, store.calls)
	assert.Equal(t, "p2-0", items[0].ResourceID)
}

func TestSource_MissingPageInsideRange(t *testing.T) {
	store := newMemStore(1, 2)
	src := New(Config{FirstPage: 1, LastPage: 2}, store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	assert.Len(t, items, 2)
	assert.True(t, errors.Is(err, idstore.ErrPageNotFound), "error = %v", err)
}

func TestSource_StoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	store := newMemStore(3, 1)
	store.fail = map[int]error{2: boom}
	src := New(DefaultConfig(), store, nil, nil)

	items, err := Collect(src.Produce(context.Background()))
	assert.Len(t, items, 1)
	assert.ErrorIs(t, err, boom)
}

func TestSource_EarlyStop(t *testing.T) {
	store := newMemStore(10, 10)
	src := New(DefaultConfig(), store, nil, nil)

	n := 0
	for _, err := range src.Produce(context.Background()) {
		require.NoError(t, err)
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, []int{1}, store.calls)
}

func TestSource_RemembersInIndex(t *testing.T) {
	store := newMemStore(1, 2)
	index := idstore.NewIndex()
	src := New(DefaultConfig(), store, index, nil)

	_, err := Collect(src.Produce(context.Background()))
	require.NoError(t, err)

	e, ok := index.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "p1-1", e.ID)
	assert.Equal(t, "name p1-1", e.Name)
}
