// Package source enumerates work items from the id/name store.
//
// Items are produced lazily, one page at a time, in page order then position order.
// Sequence ids start at BaseOffset+1 and grow by one per item, so two runs with
// non-overlapping offsets never reuse an id.
package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/rickgao/collection-replay/internal/idstore"
	"github.com/rickgao/collection-replay/internal/model"
)

// Config controls which part of the store is enumerated.
type Config struct {
	FirstPage  int   // First page to read (default 1)
	LastPage   int   // Last page to read, inclusive; 0 reads until the first missing page
	BaseOffset int64 // Sequence ids start at BaseOffset+1
	Skip       int64 // Entries to skip before the first yielded item; they still consume seq ids
}

// DefaultConfig returns the enumeration used by a fresh run.
func DefaultConfig() Config {
	return Config{FirstPage: 1}
}

// Source produces work items from a store.
type Source struct {
	cfg    Config
	store  idstore.Store
	index  *idstore.Index
	logger *slog.Logger
}

// New creates a Source. index may be nil when bucket labels are not needed.
func New(cfg Config, store idstore.Store, index *idstore.Index, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FirstPage < 1 {
		cfg.FirstPage = 1
	}
	return &Source{
		cfg:    cfg,
		store:  store,
		index:  index,
		logger: logger,
	}
}

// Produce returns the item sequence. Each call restarts enumeration from the first page.
//
// A store error other than a missing page after LastPage is yielded once as
// (zero item, err) and ends the sequence.
func (s *Source) Produce(ctx context.Context) iter.Seq2[model.WorkItem, error] {
	return func(yield func(model.WorkItem, error) bool) {
		seq := s.cfg.BaseOffset
		skipped := int64(0)

		for page := s.cfg.FirstPage; s.cfg.LastPage == 0 || page <= s.cfg.LastPage; page++ {
			entries, err := s.store.GetPage(ctx, page)
			if err != nil {
				if errors.Is(err, idstore.ErrPageNotFound) && s.cfg.LastPage == 0 {
					s.logger.Info("end of collection", "page", page, "last_seq", seq)
					return
				}
				yield(model.WorkItem{}, fmt.Errorf("get page %d: %w", page, err))
				return
			}

			s.logger.Debug("page loaded", "page", page, "entries", len(entries))

			for _, e := range entries {
				// Skipped entries still consume their ids so a resumed item keeps
				// the seq it had in the full run.
				seq++
				if skipped < s.cfg.Skip {
					skipped++
					continue
				}

				item := model.WorkItem{
					Seq:        seq,
					ResourceID: e.ID,
					Name:       e.Name,
					Page:       page,
				}
				if s.index != nil {
					s.index.Remember(seq, item.Entry())
				}
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect drains a sequence into a slice. Intended for tooling and tests.
func Collect(items iter.Seq2[model.WorkItem, error]) ([]model.WorkItem, error) {
	var out []model.WorkItem
	for item, err := range items {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
