// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/jeranaias/mediguard/internal/database"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStorage keeps generations in a SQLite database so an installed
// cache survives restarts.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates the database at path.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, path, migrations)
	if err != nil {
		return nil, err
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Cache, error) {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO cache_generations (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return &sqliteCache{db: s.db, name: name}, nil
}

func (s *SQLiteStorage) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_generations WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check cache %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM cache_generations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_generations WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type sqliteCache struct {
	db   *sql.DB
	name string
}

func (c *sqliteCache) Name() string { return c.name }

func (c *sqliteCache) Match(ctx context.Context, key string) (*Entry, bool, error) {
	var (
		e        Entry
		header   string
		storedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT url, status, header, body, stored_at FROM cache_entries WHERE generation = ? AND url = ?",
		c.name, key).Scan(&e.URL, &e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to match %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, false, fmt.Errorf("corrupt header for %s: %w", key, err)
	}
	if e.Header == nil {
		e.Header = make(http.Header)
	}
	e.StoredAt = time.Unix(0, storedAt).UTC()
	return &e, true, nil
}

func (c *sqliteCache) PutAll(ctx context.Context, entries []*Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO cache_generations (name) VALUES (?) ON CONFLICT(name) DO NOTHING", c.name); err != nil {
		return fmt.Errorf("failed to create cache %s: %w", c.name, err)
	}

	for _, e := range entries {
		header, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("failed to encode header for %s: %w", e.URL, err)
		}
		body := e.Body
		if body == nil {
			body = []byte{}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cache_entries (generation, url, status, header, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(generation, url) DO UPDATE SET
				status = excluded.status, header = excluded.header,
				body = excluded.body, stored_at = excluded.stored_at`,
			c.name, e.URL, e.Status, string(header), body, e.StoredAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT url FROM cache_entries WHERE generation = ? ORDER BY url", c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.name, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
