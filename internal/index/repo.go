package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostRow is a row in the posts table.
type PostRow struct {
	Slug        string
	Title       string
	Description string
	CreatedAt   time.Time
	Words       int
	Checksum    string
}

// SearchResult is one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPost inserts or replaces a post and its FTS entry in one transaction.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var created any
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO posts (slug, title, description, created_at, words, checksum, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			created_at  = excluded.created_at,
			words       = excluded.words,
			checksum    = excluded.checksum,
			body        = excluded.body
	`, p.Slug, p.Title, p.Description, created, p.Words, p.Checksum, body)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	if err := ftsUpsert(tx, p.Slug, p.Title, p.Description, body); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(slug string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, slug); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM posts WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for slug, or "" if it is not
// indexed.
func (db *DB) GetChecksum(slug string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE slug = ?`, slug).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed slug to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT slug, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var slug, cs string
		if err := rows.Scan(&slug, &cs); err != nil {
			return nil, err
		}
		out[slug] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed posts.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Slug, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
