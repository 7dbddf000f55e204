package idstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/collection-replay/internal/model"
)

// DefaultTable holds the collection ids when the store is backed by Postgres.
//
//	CREATE TABLE collection_ids (
//	    page     integer NOT NULL,
//	    position integer NOT NULL,
//	    id       text    NOT NULL,
//	    name     text    NOT NULL DEFAULT '',
//	    PRIMARY KEY (page, position)
//	);
const DefaultTable = "collection_ids"

// PGStore reads pages from a Postgres table.
type PGStore struct {
	pool  *pgxpool.Pool
	query string
}

// NewPGStore creates a store over table. An empty table uses DefaultTable.
func NewPGStore(pool *pgxpool.Pool, table string) *PGStore {
	return &PGStore{
		pool:  pool,
		query: pageQuery(table),
	}
}

func pageQuery(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf(
		"SELECT id, name FROM %s WHERE page = $1 ORDER BY position",
		pgx.Identifier{table}.Sanitize(),
	)
}

// GetPage returns the entries of one page in position order.
func (s *PGStore) GetPage(ctx context.Context, page int) ([]model.IDEntry, error) {
	rows, err := s.pool.Query(ctx, s.query, page)
	if err != nil {
		return nil, fmt.Errorf("query page %d: %w", page, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.IDEntry, error) {
		var e model.IDEntry
		err := row.Scan(&e.ID, &e.Name)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan page %d: %w", page, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("page %d: %w", page, ErrPageNotFound)
	}

	return entries, nil
}
