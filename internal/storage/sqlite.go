package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite stores every profile in one table of a local database file.
type SQLite struct {
	db    *sql.DB
	quota int
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc connections do not share an in-memory database.
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS local_storage (
		profile TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (profile, key)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}
	return &SQLite{db: db, quota: DefaultQuota}, nil
}

// WithQuota overrides DefaultQuota; quota <= 0 disables the check.
func (s *SQLite) WithQuota(quota int) *SQLite {
	s.quota = quota
	return s
}

func (s *SQLite) Scope(profileID string) Storage {
	return &sqliteScope{s: s, profile: profileID}
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteScope struct {
	s       *SQLite
	profile string
}

func (sc *sqliteScope) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := sc.s.db.QueryRowContext(ctx,
		`SELECT value FROM local_storage WHERE profile = ? AND key = ?`, sc.profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, err)
	}
	return value, true, nil
}

func (sc *sqliteScope) SetItem(ctx context.Context, key, value string) error {
	if err := checkQuota(value, sc.s.quota); err != nil {
		return err
	}
	const q = `
	INSERT INTO local_storage (profile, key, value, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := sc.s.db.ExecContext(ctx, q, sc.profile, key, value); err != nil {
		return fmt.Errorf("set item %q: %w", key, err)
	}
	return nil
}

func (sc *sqliteScope) RemoveItem(ctx context.Context, key string) error {
	if _, err := sc.s.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE profile = ? AND key = ?`, sc.profile, key); err != nil {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}
