// Package idstore provides the paginated id/name collection the replay reads its work from.
//
// Pages are numbered from 1 and hold an ordered list of {id, name} entries. Every page but
// the last is expected to be full (DefaultPageSize entries in the exported collections).
package idstore

import (
	"context"
	"errors"

	"github.com/rickgao/collection-replay/internal/model"
)

// DefaultPageSize is the number of entries per exported page.
const DefaultPageSize = 500

// ErrPageNotFound is returned when a page does not exist.
var ErrPageNotFound = errors.New("page not found")

// Store returns pages of the id/name collection.
// GetPage must return the same ordered entries for the same page on every call.
type Store interface {
	GetPage(ctx context.Context, page int) ([]model.IDEntry, error)
}
