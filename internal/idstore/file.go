package idstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/rickgao/collection-replay/internal/model"
)

// DefaultPagePattern names page files inside the store directory.
const DefaultPagePattern = "%d.json"

// FileStore reads pages from JSON files, one array of {"id", "name"} objects per file.
type FileStore struct {
	dir     string
	pattern string
}

// NewFileStore creates a store over dir. An empty pattern uses DefaultPagePattern.
func NewFileStore(dir, pattern string) *FileStore {
	if pattern == "" {
		pattern = DefaultPagePattern
	}
	return &FileStore{dir: dir, pattern: pattern}
}

// Path returns the file backing a page.
func (s *FileStore) Path(page int) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.pattern, page))
}

// GetPage reads and parses one page file.
// Ids may be JSON strings or numbers; both are returned as their string form.
func (s *FileStore) GetPage(ctx context.Context, page int) ([]model.IDEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(page))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("page %d: %w", page, ErrPageNotFound)
		}
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}

	return parsePage(page, data)
}

func parsePage(page int, data []byte) ([]model.IDEntry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("page %d: invalid json", page)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("page %d: expected json array, got %s", page, doc.Type)
	}

	var (
		entries []model.IDEntry
		bad     error
		pos     int
	)
	doc.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id")
		if !id.Exists() || id.String() == "" {
			bad = fmt.Errorf("page %d entry %d: missing id", page, pos)
			return false
		}
		entries = append(entries, model.IDEntry{
			ID:   id.String(),
			Name: v.Get("name").String(),
		})
		pos++
		return true
	})
	if bad != nil {
		return nil, bad
	}

	return entries, nil
}
