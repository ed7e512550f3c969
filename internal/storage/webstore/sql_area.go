package webstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/yndnr/stowage-go/internal/storage/adapter"
	"github.com/yndnr/stowage-go/internal/storage/webstore/migrations"
)

// SQLArea is a durable area persisted in an SQLite file.
type SQLArea struct {
	db    *sql.DB
	path  string
	quota int64

	// mu serializes writers so the quota check and the write are atomic.
	mu sync.Mutex
}

// OpenSQLArea opens (creating if needed) the area file at path and applies
// the embedded migrations. A quota <= 0 applies DefaultQuota.
func OpenSQLArea(ctx context.Context, path string, quota int64) (*SQLArea, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite area: path is required")
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite area: create parent dir: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite area: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite area: ping: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite area: run migrations: %w", err)
	}

	return &SQLArea{db: db, path: cleanPath, quota: quota}, nil
}

var _ Area = (*SQLArea)(nil)

// Path returns the database file path.
func (a *SQLArea) Path() string { return a.path }

// GetItem returns the value for key.
func (a *SQLArea) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := a.db.QueryRowContext(ctx, `SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite area: get item: %w", err)
	}
	return value, true, nil
}

// SetItem stores value under key within the quota.
func (a *SQLArea) SetItem(ctx context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := entrySize(key, value)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("sqlite area: begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var others int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM items WHERE key != ?`, key,
	).Scan(&others); err != nil {
		return fmt.Errorf("sqlite area: measure: %w", err)
	}
	if used := others + size; used > a.quota {
		return &adapter.QuotaExceededError{Used: used, Limit: a.quota}
	}

	// Rewrites move the key to the end of the write order.
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE key = ?`, key); err != nil {
		return mapSQLiteError(fmt.Errorf("sqlite area: set item: %w", err))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO items (key, value, size) VALUES (?, ?, ?)`,
		key, value, size,
	); err != nil {
		return mapSQLiteError(fmt.Errorf("sqlite area: set item: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteError(fmt.Errorf("sqlite area: commit: %w", err))
	}
	return nil
}

// RemoveItem deletes key.
func (a *SQLArea) RemoveItem(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite area: remove item: %w", err)
	}
	return nil
}

// Range visits entries in write order. Rows are read before fn runs so
// fn may modify the area.
func (a *SQLArea) Range(ctx context.Context, fn func(key, value string) bool) error {
	rows, err := a.db.QueryContext(ctx, `SELECT key, value FROM items ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("sqlite area: scan: %w", err)
	}

	type pair struct{ key, value string }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("sqlite area: scan row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("sqlite area: scan rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("sqlite area: close rows: %w", err)
	}

	for _, p := range pairs {
		if !fn(p.key, p.value) {
			return nil
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (a *SQLArea) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// mapSQLiteError turns SQLITE_FULL into a quota failure.
func mapSQLiteError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3lib.SQLITE_FULL {
		return fmt.Errorf("%w: %v", &adapter.QuotaExceededError{}, err)
	}
	return err
}
