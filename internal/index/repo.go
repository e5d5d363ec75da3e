package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Key identifies one locale variant of a post.
type Key struct {
	ID     string
	Locale string
}

// PostRow represents a row in the posts table.
type PostRow struct {
	Key
	Title       string
	Description string
	Tags        []string
	Body        string
	PublishedAt int64
	Checksum    string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Locale  string `json:"locale"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPost inserts or replaces a post and its FTS entry within a transaction.
func (db *DB) UpsertPost(r PostRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO posts (id, locale, title, description, tags, body, published_at, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, locale) DO UPDATE SET
			title        = excluded.title,
			description  = excluded.description,
			tags         = excluded.tags,
			body         = excluded.body,
			published_at = excluded.published_at,
			checksum     = excluded.checksum
	`, r.ID, r.Locale, r.Title, r.Description, string(tagsJSON), r.Body, r.PublishedAt, r.Checksum)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	if err := ftsUpsert(tx, r); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePost removes a post variant and its FTS entry.
func (db *DB) DeletePost(k Key) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, k); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM posts WHERE id = ? AND locale = ?`, k.ID, k.Locale); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(k Key) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE id = ? AND locale = ?`, k.ID, k.Locale).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed post variant.
func (db *DB) AllChecksums() (map[Key]string, error) {
	rows, err := db.conn.Query(`SELECT id, locale, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[Key]string)
	for rows.Next() {
		var k Key
		var cs string
		if err := rows.Scan(&k.ID, &k.Locale, &cs); err != nil {
			return nil, err
		}
		out[k] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed post variants.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
