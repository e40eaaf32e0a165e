// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package replay

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/cache"
)

var _ Store = (*SQLiteStore)(nil)

// DefaultTagCacheSize bounds the consumed tags SQLiteStore remembers in memory
const DefaultTagCacheSize = 4096

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS consumed_tags (
	tag BLOB PRIMARY KEY NOT NULL,
	consumed_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
) WITHOUT ROWID;
`

// SQLiteStore is a durable Store. The primary key on tag turns
// INSERT OR IGNORE into the atomic check-and-insert.
type SQLiteStore struct {
	db *sql.DB

	// Consumed tags are never removed, so a cached hit is always current.
	seen *cache.LRUCache[xmsg.Tag, bool]
}

// OpenSQLiteStore opens or creates the tag database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay database: %w", err)
	}
	// A single connection serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{
		db:   db,
		seen: cache.NewLRUCache[xmsg.Tag, bool](DefaultTagCacheSize),
	}, nil
}

func (s *SQLiteStore) Has(tag xmsg.Tag) (bool, error) {
	return s.seen.Get(tag, s.lookup, func(seen bool) bool { return seen })
}

func (s *SQLiteStore) lookup(tag xmsg.Tag) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM consumed_tags WHERE tag = ?", tag[:]).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Add(tag xmsg.Tag) (bool, error) {
	res, err := s.db.Exec("INSERT OR IGNORE INTO consumed_tags (tag) VALUES (?)", tag[:])
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// Present either way now
	s.seen.Add(tag, true)
	return n == 1, nil
}

func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM consumed_tags").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
