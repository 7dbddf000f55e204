package idstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, dir string, page int, content string) {
	t.Helper()
	path := NewFileStore(dir, "").Path(page)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write page: %v", err)
	}
}

func TestFileStore_GetPage(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, 1, `[
		{"id": "a1", "name": "Orders"},
		{"id": 17, "name": "Numeric id"},
		{"id": "c3"}
	]`)

	s := NewFileStore(dir, "")
	entries, err := s.GetPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, "Orders", entries[0].Name)
	assert.Equal(t, "17", entries[1].ID)
	assert.Equal(t, "c3", entries[2].ID)
	assert.Empty(t, entries[2].Name)
}

func TestFileStore_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, 2, `[{"id":"x"},{"id":"y"},{"id":"z"}]`)

	s := NewFileStore(dir, "")
	first, err := s.GetPage(context.Background(), 2)
	require.NoError(t, err)
	second, err := s.GetPage(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFileStore_MissingPage(t *testing.T) {
	s := NewFileStore(t.TempDir(), "")

	_, err := s.GetPage(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrPageNotFound), "error = %v", err)
}

func TestFileStore_BadPages(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `[{"id":`},
		{"not an array", `{"id":"a"}`},
		{"missing id", `[{"id":"a"},{"name":"no id"}]`},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writePage(t, dir, i+1, tt.content)

			_, err := NewFileStore(dir, "").GetPage(context.Background(), i+1)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrPageNotFound))
		})
	}
}

func TestFileStore_Pattern(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "page-%03d.json")

	assert.Equal(t, filepath.Join(dir, "page-004.json"), s.Path(4))
}

func TestFileStore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStore(t.TempDir(), "").GetPage(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
