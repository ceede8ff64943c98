// Package index keeps a SQLite search index of compiled posts, with FTS5
// when built with the sqlite_fts5 tag, and keeps it current from a file
// watcher.
package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDSN is a shared in-memory database: nothing survives a restart.
const DefaultDSN = "file:quire-index?mode=memory&cache=shared"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
	slug        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME,
	words       INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the database and applies the schema. An empty
// dsn means DefaultDSN.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	conn, err := sql.Open("sqlite3", withParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if isMemory(dsn) {
		// The in-memory database lives as long as one connection does.
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func withParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	params := "_busy_timeout=5000"
	if !isMemory(dsn) {
		params = "_journal_mode=WAL&" + params
	}
	return dsn + sep + params
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
